package store

import (
	"fmt"

	"github.com/calvinalkan/timelog/internal/item"
)

// Merge copies src to dst with newItem inserted, trimming or dropping
// whatever newItem overlaps. src must already be a valid sequence; dst then is
// one too.
//
// It is a single pass with one item of lookahead:
//
//  1. items ending at or before newItem's start are copied
//  2. the first remaining item, if it starts before newItem, is cut to end
//     at newItem's start
//  3. newItem is written
//  4. items that newItem covers (newItem ends at or after them, or newItem is
//     ongoing) are dropped
//  5. the first uncovered item is moved to start at newItem's end if it
//     starts earlier
//  6. the rest is copied
//
// Activities are never looked at: on conflict newItem wins.
func Merge(src Source, dst Sink, newItem item.Item) error {
	start := newItem.Start()

	var (
		pending item.Item
		ok      bool
		err     error
	)

	for {
		pending, ok, err = src.Next()
		if err != nil {
			return err
		}

		if !ok {
			break
		}

		end, finished := pending.End()
		if !finished || end.After(start) {
			break
		}

		err = dst.Write(pending)
		if err != nil {
			return err
		}
	}

	if ok && pending.Start().Before(start) {
		head, trimErr := pending.WithEnd(start)
		if trimErr != nil {
			return fmt.Errorf("trimming %s: %w", pending, trimErr)
		}

		err = dst.Write(head)
		if err != nil {
			return err
		}
	}

	err = dst.Write(newItem)
	if err != nil {
		return err
	}

	for ok && covers(newItem, pending) {
		pending, ok, err = src.Next()
		if err != nil {
			return err
		}
	}

	if ok {
		newEnd, finished := newItem.End()
		if finished && newEnd.After(pending.Start()) {
			tail, trimErr := pending.WithStart(newEnd)
			if trimErr != nil {
				return fmt.Errorf("trimming %s: %w", pending, trimErr)
			}

			pending = tail
		}

		err = dst.Write(pending)
		if err != nil {
			return err
		}
	}

	for ok {
		pending, ok, err = src.Next()
		if err != nil {
			return err
		}

		if ok {
			err = dst.Write(pending)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// covers reports whether newItem ends at or after it. An ongoing newItem
// covers everything; a finished one never covers an ongoing item.
func covers(newItem, it item.Item) bool {
	newEnd, newFinished := newItem.End()
	if !newFinished {
		return true
	}

	end, finished := it.End()

	return finished && !newEnd.Before(end)
}

// Validate checks the sequence invariant: starts are non-decreasing, intervals
// do not overlap, and only the last item may be ongoing.
func Validate(items []item.Item) error {
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]

		prevEnd, finished := prev.End()
		if !finished {
			return fmt.Errorf("%w: item %d is ongoing but not last: %s", ErrInvalidSequence, i-1, prev)
		}

		if cur.Start().Before(prev.Start()) {
			return fmt.Errorf("%w: item %d starts before item %d: %s", ErrInvalidSequence, i, i-1, cur)
		}

		if cur.Start().Before(prevEnd) {
			return fmt.Errorf("%w: item %d overlaps item %d: %s", ErrInvalidSequence, i, i-1, cur)
		}
	}

	return nil
}
