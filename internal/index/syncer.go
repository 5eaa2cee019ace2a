package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/store"
)

// Syncer rebuilds the index at a path after every store change.
//
// Observers cannot fail a rewrite that already happened, so sync errors are
// logged and the index is left stale until the next change or an explicit
// [Sync].
type Syncer struct {
	path   string
	load   func() ([]item.Item, error)
	logger *slog.Logger
}

// NewSyncer returns an observer keeping the index at path in sync with s.
func NewSyncer(path string, s *store.Store, logger *slog.Logger) *Syncer {
	return &Syncer{path: path, load: s.ReadAll, logger: logger}
}

// SequenceChanged implements [store.Observer].
func (sy *Syncer) SequenceChanged(ev store.Event) {
	items, err := sy.load()
	if err == nil {
		err = Sync(context.Background(), sy.path, items)
	}

	if err != nil {
		sy.logger.Warn("index sync failed", "path", sy.path, "event", ev.Kind.String(), "error", err)

		return
	}

	sy.logger.Debug("index synced", "path", sy.path, "items", len(items))
}

// Sync opens the index at path, rebuilds it from items and closes it.
func Sync(ctx context.Context, path string, items []item.Item) error {
	ix, err := Open(ctx, path)
	if err != nil {
		return err
	}

	err = ix.Rebuild(ctx, items)

	closeErr := ix.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("close index: %w", closeErr)
	}

	return err
}
