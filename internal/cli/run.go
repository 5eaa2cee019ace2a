// Package cli implements the tl command line: global flags, configuration,
// wiring of store, cache and tracker, and the individual commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/calvinalkan/timelog/internal/config"
	"github.com/calvinalkan/timelog/internal/fs"
	"github.com/calvinalkan/timelog/internal/index"
	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/logging"
	"github.com/calvinalkan/timelog/internal/query"
	"github.com/calvinalkan/timelog/internal/store"
	"github.com/calvinalkan/timelog/internal/tracker"

	flag "github.com/spf13/pflag"
)

// EnvNow pins the clock to a store timestamp (YYYY-MM-DD_HH:MM:SS).
const EnvNow = "TL_NOW"

var (
	errUnknownCommand = errors.New("unknown command")
	errInvalidNow     = errors.New(EnvNow + " must be YYYY-MM-DD_HH:MM:SS")
)

// app holds everything a command needs. Built once per Run.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	fs      fs.FS
	store   *store.Store
	cache   *query.Cache
	tracker *tracker.Tracker
	now     func() time.Time
	stdin   io.Reader
	env     map[string]string
}

type globalOptions struct {
	workDir    string
	configPath string
	storeFile  string
	logLevel   string
	help       bool
}

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. A signal cancels the context passed to commands; a store
// rewrite that already started still completes.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	return runWithFS(fs.NewReal(), stdin, out, errOut, args, env, sigCh)
}

// runWithFS is [Run] with every store, backup and restore file operation
// going through fsys.
func runWithFS(fsys fs.FS, stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	var opts globalOptions

	globals := newGlobalFlags(&opts)

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.Parse(args)
	if err == nil && globals.Changed("store") && opts.storeFile == "" {
		err = config.ErrStoreFileEmpty
	}

	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals)

		return 1
	}

	remaining := globals.Args()
	if opts.help || len(remaining) == 0 {
		printUsage(out, globals)

		return 0
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride:   opts.workDir,
		ConfigPath:        opts.configPath,
		StoreFileOverride: opts.storeFile,
		LogLevelOverride:  opts.logLevel,
		Env:               env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	now, err := clock(env)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Level,
		Format: cfg.LogFormat,
		Stderr: errOut,
		File:   cfg.LogFileAbs,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	defer func() {
		closeErr := closeLog()
		if closeErr != nil {
			fprintln(errOut, "error: closing log file:", closeErr)
		}
	}()

	a := newApp(cfg, fsys, logger, now, stdin, env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return a.run(ctx, out, errOut, remaining, globals)
}

func newApp(cfg config.Config, fsys fs.FS, logger *slog.Logger, now func() time.Time, stdin io.Reader, env map[string]string) *app {
	s := store.New(cfg.StoreFileAbs, store.Options{
		FS:          fsys,
		LockTimeout: cfg.LockTimeoutValue,
		Observer:    logging.NewMutationLogger(logger),
	})

	if cfg.IndexFileAbs != "" {
		s.Subscribe(index.NewSyncer(cfg.IndexFileAbs, s, logger))
	}

	cache := query.ForStore(s, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		fs:      fsys,
		store:   s,
		cache:   cache,
		tracker: tracker.New(s, cache, logger),
		now:     now,
		stdin:   stdin,
		env:     env,
	}
}

// run dispatches args[0] to its command. globals is only used for usage
// output and may be nil.
func (a *app) run(ctx context.Context, out io.Writer, errOut io.Writer, args []string, globals *flag.FlagSet) int {
	name := args[0]
	if name == "-h" || name == "--help" || name == "help" {
		printUsage(out, globals)

		return 0
	}

	for _, cmd := range a.commands() {
		if cmd.Matches(name) {
			return cmd.Run(ctx, NewIO(out, errOut), args[1:])
		}
	}

	fprintln(errOut, "error:", fmt.Errorf("%w: %s", errUnknownCommand, name))
	fprintln(errOut)
	printUsage(errOut, globals)

	return 1
}

// commands returns fresh command instances, so flag state never leaks
// between invocations in the shell.
func (a *app) commands() []*Command {
	return []*Command{
		StartCmd(a),
		StopCmd(a),
		ResumeCmd(a),
		RmCmd(a),
		RenameCmd(a),
		LsCmd(a),
		CurrentCmd(a),
		DaysCmd(a),
		BackupCmd(a),
		RestoreCmd(a),
		ReindexCmd(a),
		ShellCmd(a),
		PrintConfigCmd(a),
	}
}

func newGlobalFlags(opts *globalOptions) *flag.FlagSet {
	fs := flag.NewFlagSet("tl", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(&strings.Builder{})

	fs.StringVarP(&opts.workDir, "cwd", "C", "", "Run as if started in `dir`")
	fs.StringVarP(&opts.configPath, "config", "c", "", "Use specified config `file`")
	fs.StringVar(&opts.storeFile, "store", "", "Override the store `file`")
	fs.StringVar(&opts.logLevel, "log-level", "", "Override the log `level` (debug|info|warn|error)")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help")

	return fs
}

// clock returns time.Now unless EnvNow pins it.
func clock(env map[string]string) (func() time.Time, error) {
	pinned, ok := env[EnvNow]
	if !ok || pinned == "" {
		return time.Now, nil
	}

	t, ok := item.ParseTimestamp(pinned)
	if !ok || len(pinned) != item.TimestampLen {
		return nil, fmt.Errorf("%w: %q", errInvalidNow, pinned)
	}

	return func() time.Time { return t }, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet) {
	fprintln(w, "tl - interval time tracker")
	fprintln(w)
	fprintln(w, "Usage: tl [global flags] <command> [args]")

	if globals != nil {
		var buf strings.Builder

		globals.SetOutput(&buf)
		globals.PrintDefaults()
		globals.SetOutput(&strings.Builder{})

		fprintln(w)
		fprintln(w, "Global flags:")
		_, _ = fmt.Fprint(w, buf.String())
	}

	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range (&app{}).commands() {
		fprintln(w, cmd.HelpLine())
	}
}
