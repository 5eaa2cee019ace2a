package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/tracker"

	flag "github.com/spf13/pflag"
)

var errActivityRequired = errors.New("activity is required")

// StartCmd returns the start command.
func StartCmd(a *app) *Command {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	fs.String("at", "", "Start `time` (default now)")
	fs.String("end", "", "End `time`; records a finished item instead of an ongoing one")

	return &Command{
		Flags: fs,
		Usage: "start <activity> [flags]",
		Short: "Start an activity (ends the current one)",
		Long: `Start an activity. Without --end the item is ongoing and ends whatever
was ongoing before. Items overlapping the new one are trimmed, split or
removed so the timeline stays free of overlaps.

Starting at the exact start of the ongoing item, or with exactly the bounds
of an existing item, edits that item in place.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execStart(ctx, io, a, fs, args)
		},
	}
}

func execStart(ctx context.Context, io *IO, a *app, fs *flag.FlagSet, args []string) error {
	activity := strings.TrimSpace(strings.Join(args, " "))
	if activity == "" {
		return errActivityRequired
	}

	now := a.now()

	atValue, _ := fs.GetString("at")

	start, err := parseTimeFlag(atValue, fs.Changed("at"), now, now)
	if err != nil {
		return err
	}

	it := item.NewOngoing(activity, start)

	if fs.Changed("end") {
		endValue, _ := fs.GetString("end")

		end, parseErr := parseTime(endValue, now)
		if parseErr != nil {
			return parseErr
		}

		it, err = item.New(activity, start, end)
		if err != nil {
			return err
		}
	}

	_, err = a.tracker.Dispatch(ctx, tracker.NewActivity{Item: it})
	if err != nil {
		return err
	}

	if it.Ongoing() {
		io.Println("Started", it.Activity(), "at", item.FormatTimestamp(it.Start()))
	} else {
		io.Println("Recorded", it.String())
	}

	return nil
}
