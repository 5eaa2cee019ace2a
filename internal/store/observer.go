package store

import (
	"github.com/calvinalkan/timelog/internal/item"
)

// EventKind says what kind of rewrite happened.
type EventKind int

// Event kinds.
const (
	ItemInserted EventKind = iota + 1
	ItemDeleted
	ItemReplaced
	ItemsRenamed
	SequenceOverwritten
)

func (k EventKind) String() string {
	switch k {
	case ItemInserted:
		return "inserted"
	case ItemDeleted:
		return "deleted"
	case ItemReplaced:
		return "replaced"
	case ItemsRenamed:
		return "renamed"
	case SequenceOverwritten:
		return "overwritten"
	default:
		return "unknown"
	}
}

// Event describes a completed rewrite of the store.
type Event struct {
	Kind EventKind

	// Item is the inserted, deleted or replacement item.
	Item item.Item

	// Replaced holds the items removed by a replace.
	Replaced []item.Item

	// Renamed holds the pairs changed by a bulk rename.
	Renamed []Renamed

	// Count is the number of items in an overwritten sequence.
	Count int
}

// Observer is notified after every successful rewrite. Calls happen after the
// store released its locks, so an observer may read the store again.
type Observer interface {
	SequenceChanged(ev Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(ev Event)

func (f ObserverFunc) SequenceChanged(ev Event) { f(ev) }

// Observers fans an event out to each non-nil observer in order.
type Observers []Observer

func (obs Observers) SequenceChanged(ev Event) {
	for _, o := range obs {
		if o != nil {
			o.SequenceChanged(ev)
		}
	}
}
