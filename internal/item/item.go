// Package item defines the tracked activity interval and its line encoding.
//
// An [Item] is an immutable value: every modification returns a copy. Times
// are truncated to whole seconds and kept in [time.Local], because the stored
// line format carries no zone information.
package item

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by constructors and the codec.
var (
	ErrEndBeforeStart    = errors.New("end is before start")
	ErrMalformedLine     = errors.New("malformed line")
	ErrAmbiguousActivity = errors.New("ongoing activity would read back as an end time")
)

// Item is an activity with a start and an optional end.
// An item without end is ongoing.
type Item struct {
	activity string
	start    time.Time
	end      time.Time
	hasEnd   bool
}

// New returns a finished item. Returns [ErrEndBeforeStart] if end < start.
func New(activity string, start, end time.Time) (Item, error) {
	it := Item{
		activity: activity,
		start:    normalize(start),
		end:      normalize(end),
		hasEnd:   true,
	}

	if it.end.Before(it.start) {
		return Item{}, fmt.Errorf("%w: %s < %s", ErrEndBeforeStart, FormatTimestamp(it.end), FormatTimestamp(it.start))
	}

	return it, nil
}

// NewOngoing returns an item without end.
func NewOngoing(activity string, start time.Time) Item {
	return Item{activity: activity, start: normalize(start)}
}

func normalize(t time.Time) time.Time {
	return t.Truncate(time.Second).In(time.Local)
}

// Activity returns the activity text.
func (it Item) Activity() string { return it.activity }

// Start returns the start time.
func (it Item) Start() time.Time { return it.start }

// End returns the end time and whether the item has one.
func (it Item) End() (time.Time, bool) { return it.end, it.hasEnd }

// Ongoing reports whether the item has no end.
func (it Item) Ongoing() bool { return !it.hasEnd }

// Duration returns end - start, or now - start for ongoing items.
func (it Item) Duration(now time.Time) time.Duration {
	if it.hasEnd {
		return it.end.Sub(it.start)
	}

	return normalize(now).Sub(it.start)
}

// WithEnd returns a copy ending at end.
func (it Item) WithEnd(end time.Time) (Item, error) {
	return New(it.activity, it.start, end)
}

// WithStart returns a copy starting at start, keeping the end (if any).
func (it Item) WithStart(start time.Time) (Item, error) {
	if !it.hasEnd {
		return NewOngoing(it.activity, start), nil
	}

	return New(it.activity, start, it.end)
}

// WithPendingEnd returns an ongoing copy.
func (it Item) WithPendingEnd() Item {
	return NewOngoing(it.activity, it.start)
}

// WithActivity returns a copy with a different activity.
func (it Item) WithActivity(activity string) Item {
	it.activity = activity

	return it
}

// Equal reports structural equality over activity, start and end.
func (it Item) Equal(other Item) bool {
	if it.activity != other.activity || !it.start.Equal(other.start) || it.hasEnd != other.hasEnd {
		return false
	}

	return !it.hasEnd || it.end.Equal(other.end)
}

// String returns the encoded line; handy in test failures and logs.
func (it Item) String() string {
	return Encode(it)
}
