package cli

import (
	"context"

	"github.com/calvinalkan/timelog/internal/item"

	flag "github.com/spf13/pflag"
)

// CurrentCmd returns the current command.
func CurrentCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("current", flag.ContinueOnError),
		Usage: "current",
		Short: "Show the ongoing activity",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execCurrent(io, a)
		},
	}
}

func execCurrent(io *IO, a *app) error {
	current, ok, err := a.cache.OngoingItem()
	if err != nil {
		return err
	}

	if !ok {
		io.Println("Nothing ongoing")

		return nil
	}

	io.Printf("%s since %s (%s)\n",
		current.Activity(), item.FormatTimestamp(current.Start()), formatDuration(current.Duration(a.now())))

	return nil
}
