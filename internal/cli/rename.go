package cli

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/tracker"

	flag "github.com/spf13/pflag"
)

var (
	errRenameTarget   = errors.New("--to is required and cannot be empty")
	errFilterRequired = errors.New("at least one filter is required")
)

// RenameCmd returns the rename command.
func RenameCmd(a *app) *Command {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	fs.String("to", "", "New activity `text`")
	addFilterFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "rename --to <activity> [filters]",
		Short: "Rename the activity of matching items",
		Long: `Set the activity of every item matching the filters. At least one filter
is required. Items already carrying the new activity are left alone.`,
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			return execRename(ctx, io, a, fs)
		},
	}
}

func execRename(ctx context.Context, io *IO, a *app, fs *flag.FlagSet) error {
	activity, _ := fs.GetString("to")
	activity = strings.TrimSpace(activity)

	if activity == "" {
		return errRenameTarget
	}

	criteria, err := criteriaFromFlags(fs, a.now())
	if err != nil {
		return err
	}

	if criteria.IsZero() {
		return errFilterRequired
	}

	matches, err := a.cache.Items(criteria)
	if err != nil {
		return err
	}

	targets := slices.Collect(matches)

	res, err := a.tracker.Dispatch(ctx, tracker.BulkRename{Items: targets, Activity: activity})
	if err != nil {
		return err
	}

	for _, r := range res.Renamed {
		io.Printf("%s  %s -> %s\n",
			item.FormatTimestamp(r.Original.Start()), r.Original.Activity(), r.Updated.Activity())
	}

	io.Printf("Renamed %d of %d matching items\n", len(res.Renamed), len(targets))

	return nil
}
