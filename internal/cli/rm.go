package cli

import (
	"context"
	"errors"

	"github.com/calvinalkan/timelog/internal/tracker"

	flag "github.com/spf13/pflag"
)

var errStartRequired = errors.New("start time is required")

// RmCmd returns the rm command.
func RmCmd(a *app) *Command {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	fs.Bool("close-gap", false, "Close the gap the item leaves behind")

	return &Command{
		Flags:   fs,
		Usage:   "rm <start> [flags]",
		Aliases: []string{"remove"},
		Short:   "Remove the item starting at <start>",
		Long: `Remove the item starting at <start>.

With --close-gap, neighbours that touch the removed item and share an
activity are merged into one item. Removing the ongoing item instead
reopens the previous item if it started on the same day.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execRm(ctx, io, a, fs, args)
		},
	}
}

func execRm(ctx context.Context, io *IO, a *app, fs *flag.FlagSet, args []string) error {
	if len(args) == 0 {
		return errStartRequired
	}

	target, err := findByStart(a, args[0], a.now())
	if err != nil {
		return err
	}

	var req tracker.Request = tracker.Remove{Item: target}

	closeGap, _ := fs.GetBool("close-gap")
	if closeGap {
		req = tracker.RemoveAndCloseGap{Item: target}
	}

	_, err = a.tracker.Dispatch(ctx, req)
	if err != nil {
		return err
	}

	io.Println("Removed", target.String())

	return nil
}
