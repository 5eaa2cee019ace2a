package query

import (
	"strings"
	"time"

	"github.com/calvinalkan/timelog/internal/item"
)

// Criteria is a conjunction of optional bounds over item fields. The zero
// value matches every item.
//
// Criteria is a value; every builder method returns a modified copy:
//
//	query.Where().StartNotBefore(day).StartBefore(day.AddDate(0, 0, 1)).ActivityContains("review")
type Criteria struct {
	startNotBefore bound
	startBefore    bound
	endNotAfter    bound
	endBefore      bound
	startsAt       bound
	endsAt         bound

	activityContains optionalString
	activityIs       optionalString
	activityIsNot    optionalString
}

type bound struct {
	t   time.Time
	set bool
}

func at(t time.Time) bound {
	return bound{t: t.Truncate(time.Second), set: true}
}

type optionalString struct {
	s   string
	set bool
}

// Where returns criteria matching every item.
func Where() Criteria {
	return Criteria{}
}

// StartNotBefore requires start >= t.
func (c Criteria) StartNotBefore(t time.Time) Criteria {
	c.startNotBefore = at(t)

	return c
}

// StartBefore requires start < t.
func (c Criteria) StartBefore(t time.Time) Criteria {
	c.startBefore = at(t)

	return c
}

// EndNotAfter requires a finished item with end <= t.
func (c Criteria) EndNotAfter(t time.Time) Criteria {
	c.endNotAfter = at(t)

	return c
}

// EndBefore requires a finished item with end < t.
func (c Criteria) EndBefore(t time.Time) Criteria {
	c.endBefore = at(t)

	return c
}

// StartsAt requires start == t.
func (c Criteria) StartsAt(t time.Time) Criteria {
	c.startsAt = at(t)

	return c
}

// EndsAt requires a finished item with end == t.
func (c Criteria) EndsAt(t time.Time) Criteria {
	c.endsAt = at(t)

	return c
}

// ActivityContains requires the activity to contain s (case-sensitive).
func (c Criteria) ActivityContains(s string) Criteria {
	c.activityContains = optionalString{s: s, set: true}

	return c
}

// ActivityIs requires the activity to equal s.
func (c Criteria) ActivityIs(s string) Criteria {
	c.activityIs = optionalString{s: s, set: true}

	return c
}

// ActivityIsNot requires the activity to differ from s.
func (c Criteria) ActivityIsNot(s string) Criteria {
	c.activityIsNot = optionalString{s: s, set: true}

	return c
}

// Day restricts starts to the local calendar day of t.
func (c Criteria) Day(t time.Time) Criteria {
	start := StartOfDay(t)

	return c.StartNotBefore(start).StartBefore(start.AddDate(0, 0, 1))
}

// Matches reports whether it satisfies every set bound. An ongoing item has
// no end, so it never satisfies an end bound.
func (c Criteria) Matches(it item.Item) bool {
	start := it.Start()

	if c.startNotBefore.set && start.Before(c.startNotBefore.t) {
		return false
	}

	if c.startBefore.set && !start.Before(c.startBefore.t) {
		return false
	}

	if c.startsAt.set && !start.Equal(c.startsAt.t) {
		return false
	}

	if c.endNotAfter.set || c.endBefore.set || c.endsAt.set {
		end, finished := it.End()
		if !finished {
			return false
		}

		if c.endNotAfter.set && end.After(c.endNotAfter.t) {
			return false
		}

		if c.endBefore.set && !end.Before(c.endBefore.t) {
			return false
		}

		if c.endsAt.set && !end.Equal(c.endsAt.t) {
			return false
		}
	}

	activity := it.Activity()

	if c.activityContains.set && !strings.Contains(activity, c.activityContains.s) {
		return false
	}

	if c.activityIs.set && activity != c.activityIs.s {
		return false
	}

	if c.activityIsNot.set && activity == c.activityIsNot.s {
		return false
	}

	return true
}

// IsZero reports whether no bound is set.
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	t = t.In(time.Local)
	year, month, day := t.Date()

	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}
