package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, a)
		},
	}
}

func execPrintConfig(io *IO, a *app) error {
	cfg := a.cfg

	settings := [][2]string{
		{"effective_cwd", cfg.EffectiveCwd},
		{"store_file", cfg.StoreFileAbs},
		{"log_level", cfg.LogLevel},
		{"log_format", cfg.LogFormat},
		{"lock_timeout", cfg.LockTimeoutValue.String()},
		{"log_file", cfg.LogFileAbs},
		{"index_file", cfg.IndexFileAbs},
	}

	for _, kv := range settings {
		if kv[1] != "" {
			io.Printf("%s=%s\n", kv[0], kv[1])
		}
	}

	io.Println()
	io.Println("# sources")

	sources := [][2]string{
		{"global_config", cfg.Sources.Global},
		{"project_config", cfg.Sources.Project},
	}

	printed := false

	for _, kv := range sources {
		if kv[1] != "" {
			io.Printf("%s=%s\n", kv[0], kv[1])

			printed = true
		}
	}

	if !printed {
		io.Println("(defaults only)")
	}

	return nil
}
