package tracker

import (
	"time"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/store"
)

// Request is a typed command accepted by [Tracker.Dispatch].
type Request interface {
	apply(t *Tracker) (Result, error)
	name() string
}

// Result carries what a command changed, where the command reports anything.
type Result struct {
	Renamed []store.Renamed

	// Resumed is the ongoing item a resume started. Nil when the resume was
	// a no-op.
	Resumed *item.Item
}

// NewActivity starts or edits an item. See [Tracker.Start].
type NewActivity struct {
	Item item.Item
}

// EndCurrent ends the ongoing item at At.
type EndCurrent struct {
	At time.Time
}

// Remove deletes Item.
type Remove struct {
	Item item.Item
}

// RemoveAndCloseGap deletes Item and lets its neighbours fill the hole.
type RemoveAndCloseGap struct {
	Item item.Item
}

// Resume starts a new ongoing item with Item's activity at At. Resuming the
// ongoing item itself is a no-op.
type Resume struct {
	Item item.Item
	At   time.Time
}

// ResumeLast resumes the last item at At if it is finished.
type ResumeLast struct {
	At time.Time
}

// BulkRename renames Items to Activity.
type BulkRename struct {
	Items    []item.Item
	Activity string
}

func (r NewActivity) apply(t *Tracker) (Result, error) { return Result{}, t.start(r.Item) }
func (r EndCurrent) apply(t *Tracker) (Result, error)  { return Result{}, t.endCurrent(r.At) }
func (r Remove) apply(t *Tracker) (Result, error)      { return Result{}, t.remove(r.Item) }

func (r RemoveAndCloseGap) apply(t *Tracker) (Result, error) {
	return Result{}, t.removeAndCloseGap(r.Item)
}

func (r Resume) apply(t *Tracker) (Result, error) {
	resumed, err := t.resume(r.Item, r.At)

	return Result{Resumed: resumed}, err
}

func (r ResumeLast) apply(t *Tracker) (Result, error) {
	resumed, err := t.resumeLast(r.At)

	return Result{Resumed: resumed}, err
}

func (r BulkRename) apply(t *Tracker) (Result, error) {
	renamed, err := t.bulkRename(r.Items, r.Activity)

	return Result{Renamed: renamed}, err
}

func (NewActivity) name() string       { return "new-activity" }
func (EndCurrent) name() string        { return "end-current" }
func (Remove) name() string            { return "remove" }
func (RemoveAndCloseGap) name() string { return "remove-and-close-gap" }
func (Resume) name() string            { return "resume" }
func (ResumeLast) name() string        { return "resume-last" }
func (BulkRename) name() string        { return "bulk-rename" }
