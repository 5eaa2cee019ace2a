// Package query answers questions about the stored sequence from an
// in-memory copy that is rebuilt lazily after every mutation.
package query

import (
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/store"
)

// Loader reads the full sequence from the backing store.
type Loader func() ([]item.Item, error)

// Cache holds the full sequence in memory.
//
// It is Stale until the first query and after every [Cache.Invalidate];
// the next query then rebuilds it from the loader and publishes the new
// snapshot atomically. Concurrent queries on a Stale cache share a single
// rebuild. Queries on a Fresh cache do not lock.
type Cache struct {
	load   Loader
	logger *slog.Logger

	snap  atomic.Pointer[[]item.Item]
	group singleflight.Group

	// mu orders publishing against Invalidate. A rebuild only publishes if
	// no invalidation happened since it started.
	mu  sync.Mutex
	gen uint64
}

// NewCache returns a Stale cache over load. logger may be nil.
func NewCache(load Loader, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Cache{load: load, logger: logger}
}

// ForStore returns a cache over s that s invalidates on every mutation.
func ForStore(s *store.Store, logger *slog.Logger) *Cache {
	c := NewCache(s.ReadAll, logger)
	s.Subscribe(c)

	return c
}

// Invalidate marks the cache Stale. It is idempotent.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.snap.Store(nil)
}

// SequenceChanged implements [store.Observer].
func (c *Cache) SequenceChanged(ev store.Event) {
	c.logger.Debug("cache invalidated", "event", ev.Kind.String())
	c.Invalidate()
}

// Fresh reports whether the next query is served without a rebuild.
func (c *Cache) Fresh() bool {
	return c.snap.Load() != nil
}

// snapshot returns the current sequence, rebuilding it if Stale. The returned
// slice is shared and must not be modified.
func (c *Cache) snapshot() ([]item.Item, error) {
	if items := c.snap.Load(); items != nil {
		return *items, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	// Keyed by generation so a caller never joins a rebuild that started
	// before the invalidation it is reacting to.
	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		started := time.Now()

		items, err := c.load()
		if err != nil {
			return nil, err
		}

		if items == nil {
			items = []item.Item{}
		}

		c.mu.Lock()
		if c.gen == gen {
			c.snap.Store(&items)
		}
		c.mu.Unlock()

		c.logger.Debug("cache rebuilt", "items", len(items), "took", time.Since(started))

		return items, nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]item.Item)

	return items, nil
}

// All returns a copy of the whole sequence.
func (c *Cache) All() ([]item.Item, error) {
	items, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	return slices.Clone(items), nil
}

// OngoingItem returns the last item if it has no end.
func (c *Cache) OngoingItem() (item.Item, bool, error) {
	last, ok, err := c.LastItem()
	if err != nil || !ok || !last.Ongoing() {
		return item.Item{}, false, err
	}

	return last, true, nil
}

// LastItem returns the chronologically last item.
func (c *Cache) LastItem() (item.Item, bool, error) {
	items, err := c.snapshot()
	if err != nil || len(items) == 0 {
		return item.Item{}, false, err
	}

	return items[len(items)-1], true, nil
}

// Adjacent holds the zero-gap neighbours of an item. A nil side has no
// neighbour that touches the item exactly.
type Adjacent struct {
	Prev *item.Item
	Next *item.Item
}

// AdjacentItems finds forItem (by structural equality) and returns the
// neighbours whose boundary coincides with its own: the predecessor if it
// ends where forItem starts, the successor if it starts where forItem ends.
func (c *Cache) AdjacentItems(forItem item.Item) (Adjacent, error) {
	items, err := c.snapshot()
	if err != nil {
		return Adjacent{}, err
	}

	idx := slices.IndexFunc(items, forItem.Equal)
	if idx < 0 {
		return Adjacent{}, nil
	}

	var adj Adjacent

	if idx > 0 {
		prev := items[idx-1]
		if end, ok := prev.End(); ok && end.Equal(forItem.Start()) {
			adj.Prev = &prev
		}
	}

	if idx < len(items)-1 {
		next := items[idx+1]
		if end, ok := forItem.End(); ok && end.Equal(next.Start()) {
			adj.Next = &next
		}
	}

	return adj, nil
}

// Items returns the items matching criteria in chronological order. The
// sequence is evaluated lazily over the snapshot taken by this call.
func (c *Cache) Items(criteria Criteria) (iter.Seq[item.Item], error) {
	items, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	return func(yield func(item.Item) bool) {
		for _, it := range items {
			if criteria.Matches(it) && !yield(it) {
				return
			}
		}
	}, nil
}

// Find returns the first item matching criteria.
func (c *Cache) Find(criteria Criteria) (item.Item, bool, error) {
	seq, err := c.Items(criteria)
	if err != nil {
		return item.Item{}, false, err
	}

	for it := range seq {
		return it, true, nil
	}

	return item.Item{}, false, nil
}

// TrackedDays returns the distinct local calendar days on which items start,
// as midnights in first-seen order.
func (c *Cache) TrackedDays() ([]time.Time, error) {
	items, err := c.snapshot()
	if err != nil {
		return nil, err
	}

	var days []time.Time

	for _, it := range items {
		day := StartOfDay(it.Start())

		if !slices.ContainsFunc(days, day.Equal) {
			days = append(days, day)
		}
	}

	return days, nil
}
