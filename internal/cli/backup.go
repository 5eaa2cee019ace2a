package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/calvinalkan/timelog/internal/fs"
	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/store"

	flag "github.com/spf13/pflag"
)

var (
	errBackupPathRequired = errors.New("backup file path is required")
	errStoreNotEmpty      = errors.New("store is not empty (use --force to replace it)")
)

// BackupCmd returns the backup command.
func BackupCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("backup", flag.ContinueOnError),
		Usage: "backup <file>",
		Short: "Write a zstd-compressed snapshot of the store",
		Long: `Write the whole store as a zstd-compressed snapshot to <file>.
The file is replaced atomically. Restore it with 'tl restore'.`,
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execBackup(io, a, args)
		},
	}
}

// RestoreCmd returns the restore command.
func RestoreCmd(a *app) *Command {
	flags := flag.NewFlagSet("restore", flag.ContinueOnError)
	flags.Bool("force", false, "Replace a non-empty store")

	return &Command{
		Flags: flags,
		Usage: "restore <file> [flags]",
		Short: "Replace the store with a snapshot from 'tl backup'",
		Long: `Replace the store with the snapshot in <file>. The snapshot is validated
before anything is written. A non-empty store is only replaced with --force.`,
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execRestore(io, a, flags, args)
		},
	}
}

func execBackup(io *IO, a *app, args []string) error {
	if len(args) == 0 {
		return errBackupPathRequired
	}

	dest := a.resolvePath(args[0])

	items, err := a.store.ReadAll()
	if err != nil {
		return err
	}

	data, err := compressItems(items)
	if err != nil {
		return err
	}

	err = a.fs.MkdirAll(filepath.Dir(dest), 0o750)
	if err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}

	err = a.fs.WriteFileAtomic(dest, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}

	a.logger.Info("backup written", "path", dest, "items", len(items), "bytes", len(data))
	io.Printf("Backed up %d items to %s\n", len(items), dest)

	return nil
}

func execRestore(io *IO, a *app, flags *flag.FlagSet, args []string) error {
	if len(args) == 0 {
		return errBackupPathRequired
	}

	src := a.resolvePath(args[0])

	items, err := readSnapshot(a.fs, src)
	if err != nil {
		return err
	}

	force, _ := flags.GetBool("force")
	if !force {
		current, err := a.store.ReadAll()
		if err != nil {
			return err
		}

		if len(current) > 0 {
			return errStoreNotEmpty
		}
	}

	err = a.store.Overwrite(items)
	if err != nil {
		return err
	}

	io.Printf("Restored %d items from %s\n", len(items), src)

	return nil
}

// compressItems encodes items as store lines inside a zstd frame.
func compressItems(items []item.Item) ([]byte, error) {
	var buf bytes.Buffer

	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	w := store.NewWriter(enc)

	for _, it := range items {
		err = w.Write(it)
		if err != nil {
			_ = w.Close()

			return nil, err
		}
	}

	// Closes the encoder too, which finishes the frame.
	err = w.Close()
	if err != nil {
		return nil, fmt.Errorf("compressing backup: %w", err)
	}

	return buf.Bytes(), nil
}

func readSnapshot(fsys fs.FS, path string) ([]item.Item, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}

	defer func() { _ = f.Close() }()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading backup: %w", err)
	}

	defer dec.Close()

	items, err := store.Drain(store.NewReader(dec))
	if err != nil {
		return nil, fmt.Errorf("reading backup %s: %w", path, err)
	}

	return items, nil
}

// resolvePath makes path absolute against the effective working directory.
func (a *app) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(a.cfg.EffectiveCwd, path)
}
