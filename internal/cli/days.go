package cli

import (
	"context"
	"time"

	"github.com/calvinalkan/timelog/internal/query"

	flag "github.com/spf13/pflag"
)

// DaysCmd returns the days command.
func DaysCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("days", flag.ContinueOnError),
		Usage: "days",
		Short: "Show tracked days with their totals",
		Long:  "List every day on which an item starts, with the total time of those items.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execDays(io, a)
		},
	}
}

func execDays(io *IO, a *app) error {
	days, err := a.cache.TrackedDays()
	if err != nil {
		return err
	}

	now := a.now()

	for _, day := range days {
		items, err := a.cache.Items(query.Where().Day(day))
		if err != nil {
			return err
		}

		var total time.Duration
		for it := range items {
			total += it.Duration(now)
		}

		io.Printf("%s  %9s\n", day.Format(time.DateOnly), formatDuration(total))
	}

	return nil
}
