package cli

import (
	"context"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/tracker"

	flag "github.com/spf13/pflag"
)

// StopCmd returns the stop command.
func StopCmd(a *app) *Command {
	fs := flag.NewFlagSet("stop", flag.ContinueOnError)
	fs.String("at", "", "End `time` (default now)")

	return &Command{
		Flags:   fs,
		Usage:   "stop [flags]",
		Aliases: []string{"end"},
		Short:   "End the ongoing activity",
		Long:    "End the ongoing activity. Warns when nothing is ongoing.",
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			return execStop(ctx, io, a, fs)
		},
	}
}

func execStop(ctx context.Context, io *IO, a *app, fs *flag.FlagSet) error {
	now := a.now()

	atValue, _ := fs.GetString("at")

	end, err := parseTimeFlag(atValue, fs.Changed("at"), now, now)
	if err != nil {
		return err
	}

	current, ok, err := a.cache.OngoingItem()
	if err != nil {
		return err
	}

	if !ok {
		io.Warn("nothing ongoing", "start an activity with 'tl start <activity>'")

		return nil
	}

	_, err = a.tracker.Dispatch(ctx, tracker.EndCurrent{At: end})
	if err != nil {
		return err
	}

	stopped, err := current.WithEnd(end)
	if err != nil {
		return err
	}

	io.Printf("Stopped %s at %s (%s)\n",
		stopped.Activity(), item.FormatTimestamp(end), formatDuration(stopped.Duration(now)))

	return nil
}
