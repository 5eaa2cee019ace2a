// Package tracker implements the user-facing commands on top of the store
// and the query cache.
//
// Every command reads the cache, decides, and then issues a single store
// rewrite. Commands are serialized so that decision and rewrite see the same
// sequence.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/query"
	"github.com/calvinalkan/timelog/internal/store"
)

// Tracker runs commands against a store.
type Tracker struct {
	store  *store.Store
	cache  *query.Cache
	logger *slog.Logger

	mu sync.Mutex
}

// New returns a tracker over s. cache must be invalidated by s, see
// [query.ForStore]. logger may be nil.
func New(s *store.Store, cache *query.Cache, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Tracker{store: s, cache: cache, logger: logger}
}

// Cache returns the query cache the tracker decides on.
func (t *Tracker) Cache() *query.Cache {
	return t.cache
}

// Dispatch runs req. ctx is only checked before the command starts; a
// started rewrite always runs to completion.
func (t *Tracker) Dispatch(ctx context.Context, req Request) (Result, error) {
	err := ctx.Err()
	if err != nil {
		return Result{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.logger.Debug("dispatch", "request", req.name())

	res, err := req.apply(t)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", req.name(), err)
	}

	return res, nil
}

// Start records it. An item starting where the ongoing item starts replaces
// it, as does a finished item with exactly the same bounds as it. Otherwise it
// is merged into the sequence.
func (t *Tracker) Start(it item.Item) error {
	_, err := t.Dispatch(context.Background(), NewActivity{Item: it})

	return err
}

// EndCurrent ends the ongoing item at at. No-op when nothing is ongoing.
func (t *Tracker) EndCurrent(at time.Time) error {
	_, err := t.Dispatch(context.Background(), EndCurrent{At: at})

	return err
}

// Remove deletes it. No-op when it is not stored.
func (t *Tracker) Remove(it item.Item) error {
	_, err := t.Dispatch(context.Background(), Remove{Item: it})

	return err
}

// RemoveAndCloseGap deletes it and closes the gap it leaves:
//
//   - if both zero-gap neighbours exist and share an activity, they are merged
//     into one item spanning from the previous start to the next end
//   - else if it was ongoing and the previous neighbour started the same day,
//     the previous item becomes ongoing
//   - else it is simply deleted
func (t *Tracker) RemoveAndCloseGap(it item.Item) error {
	_, err := t.Dispatch(context.Background(), RemoveAndCloseGap{Item: it})

	return err
}

// Resume starts a new ongoing item at at, copying the activity of it. No-op
// when it is the ongoing item.
func (t *Tracker) Resume(it item.Item, at time.Time) error {
	_, err := t.Dispatch(context.Background(), Resume{Item: it, At: at})

	return err
}

// ResumeLast resumes the last item if it is finished. No-op otherwise.
func (t *Tracker) ResumeLast(at time.Time) error {
	_, err := t.Dispatch(context.Background(), ResumeLast{At: at})

	return err
}

// BulkRename sets the activity of items and returns the changed pairs.
func (t *Tracker) BulkRename(items []item.Item, activity string) ([]store.Renamed, error) {
	res, err := t.Dispatch(context.Background(), BulkRename{Items: items, Activity: activity})

	return res.Renamed, err
}

func (t *Tracker) start(it item.Item) error {
	current, ok, err := t.cache.OngoingItem()
	if err != nil {
		return err
	}

	if ok && current.Start().Equal(it.Start()) {
		return t.store.Replace(current, it)
	}

	if end, finished := it.End(); finished {
		existing, found, err := t.cache.Find(query.Where().StartsAt(it.Start()).EndsAt(end))
		if err != nil {
			return err
		}

		if found {
			return t.store.Replace(existing, it)
		}
	}

	return t.store.Persist(it)
}

func (t *Tracker) endCurrent(at time.Time) error {
	current, ok, err := t.cache.OngoingItem()
	if err != nil || !ok {
		return err
	}

	ended, err := current.WithEnd(at)
	if err != nil {
		return err
	}

	return t.store.Replace(current, ended)
}

func (t *Tracker) remove(it item.Item) error {
	return t.store.Delete(it)
}

func (t *Tracker) removeAndCloseGap(it item.Item) error {
	adj, err := t.cache.AdjacentItems(it)
	if err != nil {
		return err
	}

	prev, next := adj.Prev, adj.Next

	if prev != nil && next != nil && prev.Activity() == next.Activity() {
		merged := item.NewOngoing(prev.Activity(), prev.Start())

		if end, ok := next.End(); ok {
			merged, err = item.New(prev.Activity(), prev.Start(), end)
			if err != nil {
				return err
			}
		}

		t.logger.Debug("closing gap by merging neighbours", "item", it.String(), "merged", merged.String())

		return t.store.ReplaceAll([]item.Item{*prev, it, *next}, merged)
	}

	if prev != nil && it.Ongoing() && query.StartOfDay(prev.Start()).Equal(query.StartOfDay(it.Start())) {
		t.logger.Debug("closing gap by extending previous item", "item", it.String(), "previous", prev.String())

		return t.store.ReplaceAll([]item.Item{*prev, it}, prev.WithPendingEnd())
	}

	return t.store.Delete(it)
}

func (t *Tracker) resume(it item.Item, at time.Time) (*item.Item, error) {
	if it.Ongoing() {
		current, ok, err := t.cache.OngoingItem()
		if err != nil {
			return nil, err
		}

		if ok && current.Equal(it) {
			return nil, nil
		}
	}

	resumed := item.NewOngoing(it.Activity(), at)

	err := t.store.Persist(resumed)
	if err != nil {
		return nil, err
	}

	return &resumed, nil
}

func (t *Tracker) resumeLast(at time.Time) (*item.Item, error) {
	last, ok, err := t.cache.LastItem()
	if err != nil || !ok || last.Ongoing() {
		return nil, err
	}

	return t.resume(last, at)
}

func (t *Tracker) bulkRename(items []item.Item, activity string) ([]store.Renamed, error) {
	return t.store.BulkRename(items, activity)
}
