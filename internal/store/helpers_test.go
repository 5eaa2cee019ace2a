package store_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/store"
)

const testLockTimeout = 50 * time.Millisecond

func at(hour, minute int) time.Time {
	return time.Date(2024, time.May, 1, hour, minute, 0, 0, time.Local)
}

func finished(t *testing.T, activity string, start, end time.Time) item.Item {
	t.Helper()

	it, err := item.New(activity, start, end)
	if err != nil {
		t.Fatalf("new item: %v", err)
	}

	return it
}

func ongoing(activity string, start time.Time) item.Item {
	return item.NewOngoing(activity, start)
}

func lines(items []item.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, item.Encode(it))
	}

	return out
}

func assertItems(t *testing.T, got []item.Item, want ...item.Item) {
	t.Helper()

	if diff := cmp.Diff(lines(want), lines(got)); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func newStore(t *testing.T, opts store.Options) *store.Store {
	t.Helper()

	if opts.LockTimeout == 0 {
		opts.LockTimeout = testLockTimeout
	}

	return store.New(filepath.Join(t.TempDir(), "timelog.txt"), opts)
}

func writeStoreFile(t *testing.T, s *store.Store, items ...item.Item) {
	t.Helper()

	var b strings.Builder
	for _, it := range items {
		b.WriteString(item.Encode(it))
		b.WriteByte('\n')
	}

	err := os.WriteFile(s.Path(), []byte(b.String()), 0o600)
	if err != nil {
		t.Fatalf("write store file: %v", err)
	}
}

func readStoreFile(t *testing.T, s *store.Store) string {
	t.Helper()

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read store file: %v", err)
	}

	return string(data)
}

func mustReadAll(t *testing.T, s *store.Store) []item.Item {
	t.Helper()

	items, err := s.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}

	return items
}

// recorder collects store events.
type recorder struct {
	events []store.Event
}

func (r *recorder) SequenceChanged(ev store.Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []store.EventKind {
	out := make([]store.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}

	return out
}
