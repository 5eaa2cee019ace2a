package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/query"
	"github.com/calvinalkan/timelog/internal/tracker"

	flag "github.com/spf13/pflag"
)

// ErrItemNotFound is returned when a start time names no stored item.
var ErrItemNotFound = errors.New("no item starts at")

// ResumeCmd returns the resume command.
func ResumeCmd(a *app) *Command {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	fs.String("at", "", "Start `time` of the resumed activity (default now)")

	return &Command{
		Flags: fs,
		Usage: "resume [<start>] [flags]",
		Short: "Start the activity of an earlier item again",
		Long: `Start a new ongoing item with the activity of the item starting at <start>.
Without <start>, resumes the last item if it is finished. Resuming the
ongoing item does nothing.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execResume(ctx, io, a, fs, args)
		},
	}
}

func execResume(ctx context.Context, io *IO, a *app, fs *flag.FlagSet, args []string) error {
	now := a.now()

	atValue, _ := fs.GetString("at")

	at, err := parseTimeFlag(atValue, fs.Changed("at"), now, now)
	if err != nil {
		return err
	}

	var req tracker.Request = tracker.ResumeLast{At: at}

	if len(args) > 0 {
		target, err := findByStart(a, args[0], now)
		if err != nil {
			return err
		}

		req = tracker.Resume{Item: target, At: at}
	}

	res, err := a.tracker.Dispatch(ctx, req)
	if err != nil {
		return err
	}

	if res.Resumed == nil {
		if len(args) > 0 {
			io.Warn("nothing to resume", "the item is still ongoing")
		} else {
			io.Warn("nothing to resume", "the last item is still ongoing or the store is empty")
		}

		return nil
	}

	io.Println("Resumed", res.Resumed.Activity(), "at", item.FormatTimestamp(res.Resumed.Start()))

	return nil
}

// findByStart returns the stored item starting at the time named by arg.
func findByStart(a *app, arg string, now time.Time) (item.Item, error) {
	start, err := parseTime(arg, now)
	if err != nil {
		return item.Item{}, err
	}

	it, ok, err := a.cache.Find(query.Where().StartsAt(start))
	if err != nil {
		return item.Item{}, err
	}

	if !ok {
		return item.Item{}, fmt.Errorf("%w %s", ErrItemNotFound, item.FormatTimestamp(start))
	}

	return it, nil
}
