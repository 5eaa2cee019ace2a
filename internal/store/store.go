// Package store persists the item sequence in a flat text file.
//
// The file only supports whole-sequence reads and whole-sequence rewrites.
// Every mutation reads the current sequence, streams it through a transform
// into memory and then replaces the file atomically, all while holding the
// store lock. A failure before the final rename leaves the file untouched.
package store

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/calvinalkan/timelog/internal/fs"
	"github.com/calvinalkan/timelog/internal/item"
)

// DefaultLockTimeout bounds how long a rewrite waits for another process.
const DefaultLockTimeout = 2 * time.Second

// locksDirName keeps lock files out of the way of the store file, which gets
// replaced by rename on every write.
const locksDirName = ".locks"

const dirPerms = 0o750

// Options configures a [Store]. Zero values select defaults.
type Options struct {
	FS          fs.FS         // defaults to fs.NewReal()
	LockTimeout time.Duration // defaults to DefaultLockTimeout
	Observer    Observer      // notified after each rewrite; may be nil
}

// Store is the persistence facade over one store file.
//
// Rewrites are serialized within the process by a mutex and across processes
// by an exclusive flock on a sibling lock file. Reads take the shared
// variants.
type Store struct {
	path     string
	lockPath string
	fs       fs.FS
	locker   *fs.Locker
	timeout  time.Duration

	mu sync.RWMutex

	obsMu    sync.Mutex
	observer Observers
}

// Renamed pairs an item with its renamed copy.
type Renamed struct {
	Original item.Item
	Updated  item.Item
}

// New returns a store for the file at path. The file does not need to exist.
func New(path string, opts Options) *Store {
	fsys := opts.FS
	if fsys == nil {
		fsys = fs.NewReal()
	}

	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	s := &Store{
		path:     path,
		lockPath: filepath.Join(filepath.Dir(path), locksDirName, filepath.Base(path)+".lock"),
		fs:       fsys,
		locker:   fs.NewLocker(fsys),
		timeout:  timeout,
	}

	if opts.Observer != nil {
		s.observer = Observers{opts.Observer}
	}

	return s
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// Subscribe adds an observer for rewrite events.
func (s *Store) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	s.observer = append(s.observer, o)
}

func (s *Store) notify(ev Event) {
	s.obsMu.Lock()
	obs := make(Observers, len(s.observer))
	copy(obs, s.observer)
	s.obsMu.Unlock()

	obs.SequenceChanged(ev)
}

// ReadAll returns the whole stored sequence.
func (s *Store) ReadAll() ([]item.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lock, err := s.locker.RLockWithTimeout(s.lockPath, s.timeout)
	if err != nil {
		return nil, fmt.Errorf("acquiring read lock: %w", err)
	}

	defer func() { _ = lock.Close() }()

	r, err := OpenReader(s.fs, s.path)
	if err != nil {
		return nil, err
	}

	defer func() { _ = r.Close() }()

	return Drain(r)
}

// Persist inserts it, trimming or dropping the items it overlaps.
func (s *Store) Persist(it item.Item) error {
	err := s.rewrite(func(src Source, dst Sink) (bool, error) {
		return true, Merge(src, dst, it)
	})
	if err != nil {
		return fmt.Errorf("persist %s: %w", it, err)
	}

	s.notify(Event{Kind: ItemInserted, Item: it})

	return nil
}

// Delete removes every stored item whose encoded line encodes to the same
// line as it. Deleting an absent item is a no-op and does not rewrite the file.
func (s *Store) Delete(it item.Item) error {
	var removed bool

	err := s.rewrite(func(src Source, dst Sink) (bool, error) {
		filtered := newExcluding(src, it)

		err := copyAll(filtered, dst)
		removed = filtered.found > 0

		return removed, err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", it, err)
	}

	if removed {
		s.notify(Event{Kind: ItemDeleted, Item: it})
	}

	return nil
}

// Replace deletes old and persists with, in one locked pass. It behaves like
// [Store.Delete] followed by [Store.Persist]; with is persisted even when old
// is not stored.
func (s *Store) Replace(old, with item.Item) error {
	return s.ReplaceAll([]item.Item{old}, with)
}

// ReplaceAll deletes every item in olds and persists with, in one locked pass.
func (s *Store) ReplaceAll(olds []item.Item, with item.Item) error {
	err := s.rewrite(func(src Source, dst Sink) (bool, error) {
		return true, Merge(newExcluding(src, olds...), dst, with)
	})
	if err != nil {
		return fmt.Errorf("replace with %s: %w", with, err)
	}

	s.notify(Event{Kind: ItemReplaced, Item: with, Replaced: olds})

	return nil
}

// BulkRename sets the activity of every stored item structurally equal to
// one of items. Each input item is consumed at most once. Returns the pairs
// that actually changed.
func (s *Store) BulkRename(items []item.Item, activity string) ([]Renamed, error) {
	var renamed []Renamed

	err := s.rewrite(func(src Source, dst Sink) (bool, error) {
		renamed = renamed[:0]
		pending := dedupe(items)

		for {
			it, ok, err := src.Next()
			if err != nil {
				return false, err
			}

			if !ok {
				return len(renamed) > 0, nil
			}

			if idx := indexOf(pending, it); idx >= 0 {
				pending = append(pending[:idx], pending[idx+1:]...)

				if it.Activity() != activity {
					updated := it.WithActivity(activity)
					renamed = append(renamed, Renamed{Original: it, Updated: updated})
					it = updated
				}
			}

			err = dst.Write(it)
			if err != nil {
				return false, err
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("rename to %q: %w", activity, err)
	}

	if len(renamed) > 0 {
		s.notify(Event{Kind: ItemsRenamed, Renamed: renamed})
	}

	return renamed, nil
}

// Overwrite replaces the whole sequence with items after validating it.
func (s *Store) Overwrite(items []item.Item) error {
	err := Validate(items)
	if err != nil {
		return err
	}

	err = s.rewrite(func(_ Source, dst Sink) (bool, error) {
		return true, copyAll(NewSliceSource(items), dst)
	})
	if err != nil {
		return fmt.Errorf("overwrite: %w", err)
	}

	s.notify(Event{Kind: SequenceOverwritten, Count: len(items)})

	return nil
}

// rewrite runs transform over the current sequence under the write lock.
// When transform reports a change, its buffered output replaces the file.
func (s *Store) rewrite(transform func(src Source, dst Sink) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.locker.LockWithTimeout(s.lockPath, s.timeout)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}

	defer func() { _ = lock.Close() }()

	r, err := OpenReader(s.fs, s.path)
	if err != nil {
		return err
	}

	defer func() { _ = r.Close() }()

	var buf bytes.Buffer

	w := NewWriter(&buf)

	changed, err := transform(r, w)
	if err != nil {
		return err
	}

	err = w.Close()
	if err != nil {
		return err
	}

	if !changed {
		return nil
	}

	err = s.fs.MkdirAll(filepath.Dir(s.path), dirPerms)
	if err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	err = s.fs.WriteFileAtomic(s.path, &buf)
	if err != nil {
		return fmt.Errorf("writing store: %w", err)
	}

	return nil
}

func copyAll(src Source, dst Sink) error {
	for {
		it, ok, err := src.Next()
		if err != nil || !ok {
			return err
		}

		err = dst.Write(it)
		if err != nil {
			return err
		}
	}
}

func dedupe(items []item.Item) []item.Item {
	out := make([]item.Item, 0, len(items))

	for _, it := range items {
		if indexOf(out, it) < 0 {
			out = append(out, it)
		}
	}

	return out
}

func indexOf(items []item.Item, it item.Item) int {
	for i := range items {
		if items[i].Equal(it) {
			return i
		}
	}

	return -1
}
