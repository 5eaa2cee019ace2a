package cli

import (
	"time"

	"github.com/calvinalkan/timelog/internal/query"

	flag "github.com/spf13/pflag"
)

// addFilterFlags registers the item filters shared by ls and rename.
func addFilterFlags(fs *flag.FlagSet) {
	fs.String("since", "", "Only items starting at or after `time`")
	fs.String("until", "", "Only items starting before `time`")
	fs.String("ended-by", "", "Only finished items ending at or before `time`")
	fs.String("day", "", "Only items starting on `date` (YYYY-MM-DD, or a time on that day)")
	fs.String("starts-at", "", "Only the item starting exactly at `time`")
	fs.String("activity", "", "Only items whose activity is exactly `text`")
	fs.String("contains", "", "Only items whose activity contains `text`")
	fs.String("not", "", "Exclude items whose activity is exactly `text`")
}

// criteriaFromFlags builds criteria from the filters that were set.
func criteriaFromFlags(fs *flag.FlagSet, now time.Time) (query.Criteria, error) {
	criteria := query.Where()

	timeFilters := []struct {
		name  string
		apply func(query.Criteria, time.Time) query.Criteria
	}{
		{"since", query.Criteria.StartNotBefore},
		{"until", query.Criteria.StartBefore},
		{"ended-by", query.Criteria.EndNotAfter},
		{"day", query.Criteria.Day},
		{"starts-at", query.Criteria.StartsAt},
	}

	for _, f := range timeFilters {
		if !fs.Changed(f.name) {
			continue
		}

		value, _ := fs.GetString(f.name)

		t, err := parseTime(value, now)
		if err != nil {
			return query.Criteria{}, err
		}

		criteria = f.apply(criteria, t)
	}

	textFilters := []struct {
		name  string
		apply func(query.Criteria, string) query.Criteria
	}{
		{"activity", query.Criteria.ActivityIs},
		{"contains", query.Criteria.ActivityContains},
		{"not", query.Criteria.ActivityIsNot},
	}

	for _, f := range textFilters {
		if !fs.Changed(f.name) {
			continue
		}

		value, _ := fs.GetString(f.name)
		criteria = f.apply(criteria, value)
	}

	return criteria, nil
}
