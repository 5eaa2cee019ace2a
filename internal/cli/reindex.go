package cli

import (
	"context"
	"errors"

	"github.com/calvinalkan/timelog/internal/index"

	flag "github.com/spf13/pflag"
)

var errIndexPathRequired = errors.New("index file is required (pass <file> or set index_file)")

// ReindexCmd returns the reindex command.
func ReindexCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("reindex", flag.ContinueOnError),
		Usage: "reindex [<file>]",
		Short: "Rebuild the SQLite index and show activity totals",
		Long: `Rebuild the SQLite index from the store and print the total time per
activity over finished items. Writes to <file>, or to the configured
index_file. With index_file set, the index is also kept current after
every change.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execReindex(ctx, io, a, args)
		},
	}
}

func execReindex(ctx context.Context, io *IO, a *app, args []string) error {
	path := a.cfg.IndexFileAbs
	if len(args) > 0 {
		path = a.resolvePath(args[0])
	}

	if path == "" {
		return errIndexPathRequired
	}

	items, err := a.store.ReadAll()
	if err != nil {
		return err
	}

	ix, err := index.Open(ctx, path)
	if err != nil {
		return err
	}

	defer func() { _ = ix.Close() }()

	err = ix.Rebuild(ctx, items)
	if err != nil {
		return err
	}

	totals, err := ix.ActivityTotals(ctx)
	if err != nil {
		return err
	}

	io.Printf("Indexed %d items into %s\n", len(items), path)

	for _, total := range totals {
		io.Printf("%9s  %4d  %s\n", formatDuration(total.Total), total.Items, total.Activity)
	}

	return nil
}
