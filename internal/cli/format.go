package cli

import (
	"fmt"
	"time"

	"github.com/calvinalkan/timelog/internal/item"
)

const ongoingEnd = "(ongoing)"

// formatDuration renders d as H:MM:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute

	return fmt.Sprintf("%s%d:%02d:%02d", sign, hours, minutes, d/time.Second)
}

// formatItem renders one ls row: start, end, duration, activity.
func formatItem(it item.Item, now time.Time) string {
	end := ongoingEnd
	if e, ok := it.End(); ok {
		end = item.FormatTimestamp(e)
	}

	return fmt.Sprintf("%s  %-19s  %9s  %s",
		item.FormatTimestamp(it.Start()), end, formatDuration(it.Duration(now)), it.Activity())
}
