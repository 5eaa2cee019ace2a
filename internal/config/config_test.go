package config_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/calvinalkan/timelog/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err = os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func load(t *testing.T, input config.LoadInput) config.Config {
	t.Helper()

	if input.Env == nil {
		input.Env = map[string]string{}
	}

	cfg, err := config.Load(input)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	return cfg
}

func Test_Load_Returns_Defaults_When_No_Config_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg := load(t, config.LoadInput{WorkDirOverride: dir})

	if got, want := cfg.StoreFileAbs, filepath.Join(dir, "timelog.txt"); got != want {
		t.Fatalf("StoreFileAbs = %q, want %q", got, want)
	}

	if cfg.Level != slog.LevelWarn {
		t.Fatalf("Level = %v, want warn", cfg.Level)
	}

	if cfg.LockTimeoutValue != 2*time.Second {
		t.Fatalf("LockTimeoutValue = %v, want 2s", cfg.LockTimeoutValue)
	}

	if cfg.Sources.Global != "" || cfg.Sources.Project != "" {
		t.Fatalf("Sources = %+v, want none", cfg.Sources)
	}
}

func Test_Load_Applies_Precedence_When_All_Layers_Present(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := t.TempDir()

	writeFile(t, filepath.Join(xdg, "tl", "config.json"), `{
		// global
		"store_file": "global.txt",
		"log_level": "info",
		"lock_timeout": "5s",
	}`)
	writeFile(t, filepath.Join(dir, ".tl.json"), `{"store_file": "project.txt", "log_level": "debug"}`)

	cfg := load(t, config.LoadInput{
		WorkDirOverride: dir,
		Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
	})

	if got, want := cfg.StoreFileAbs, filepath.Join(dir, "project.txt"); got != want {
		t.Fatalf("StoreFileAbs = %q, want %q", got, want)
	}

	if cfg.Level != slog.LevelDebug {
		t.Fatalf("Level = %v, want debug", cfg.Level)
	}

	if cfg.LockTimeoutValue != 5*time.Second {
		t.Fatalf("LockTimeoutValue = %v, want 5s from global", cfg.LockTimeoutValue)
	}

	if cfg.Sources.Global != filepath.Join(xdg, "tl", "config.json") {
		t.Fatalf("Sources.Global = %q", cfg.Sources.Global)
	}

	cfg = load(t, config.LoadInput{
		WorkDirOverride:   dir,
		StoreFileOverride: "/abs/cli.txt",
		LogLevelOverride:  "error",
		Env:               map[string]string{"XDG_CONFIG_HOME": xdg},
	})

	if cfg.StoreFileAbs != "/abs/cli.txt" {
		t.Fatalf("StoreFileAbs = %q, want CLI override", cfg.StoreFileAbs)
	}

	if cfg.Level != slog.LevelError {
		t.Fatalf("Level = %v, want error", cfg.Level)
	}
}

func Test_Load_Uses_Home_Config_When_XDG_Unset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	home := t.TempDir()

	writeFile(t, filepath.Join(home, ".config", "tl", "config.json"), `{"store_file": "home.txt"}`)

	cfg := load(t, config.LoadInput{WorkDirOverride: dir, Env: map[string]string{"HOME": home}})

	if got, want := cfg.StoreFileAbs, filepath.Join(dir, "home.txt"); got != want {
		t.Fatalf("StoreFileAbs = %q, want %q", got, want)
	}
}

func Test_Load_Explicit_Config_Replaces_Project_Config(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, ".tl.json"), `{"store_file": "project.txt"}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{"lock_timeout": "250ms"}`)

	cfg := load(t, config.LoadInput{WorkDirOverride: dir, ConfigPath: "custom.json"})

	if got, want := cfg.StoreFileAbs, filepath.Join(dir, "timelog.txt"); got != want {
		t.Fatalf("StoreFileAbs = %q, want %q", got, want)
	}

	if cfg.LockTimeoutValue != 250*time.Millisecond {
		t.Fatalf("LockTimeoutValue = %v", cfg.LockTimeoutValue)
	}

	if cfg.Sources.Project != filepath.Join(dir, "custom.json") {
		t.Fatalf("Sources.Project = %q", cfg.Sources.Project)
	}
}

func Test_Load_Returns_Error_When_Config_Invalid(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name    string
		content string
		input   config.LoadInput
		wantErr error
	}{
		{name: "syntax", content: `{"store_file": `, wantErr: config.ErrConfigInvalid},
		{name: "empty store file", content: `{"store_file": ""}`, wantErr: config.ErrStoreFileEmpty},
		{name: "log level", content: `{"log_level": "loud"}`, wantErr: config.ErrLogLevelInvalid},
		{name: "lock timeout", content: `{"lock_timeout": "-1s"}`, wantErr: config.ErrLockTimeoutInvalid},
		{name: "lock timeout garbage", content: `{"lock_timeout": "soon"}`, wantErr: config.ErrLockTimeoutInvalid},
		{name: "missing explicit", input: config.LoadInput{ConfigPath: "nope.json"}, wantErr: config.ErrConfigFileNotFound},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tt.content != "" {
				writeFile(t, filepath.Join(dir, ".tl.json"), tt.content)
			}

			input := tt.input
			input.WorkDirOverride = dir
			input.Env = map[string]string{}

			_, err := config.Load(input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func Test_ParseLevel_Accepts_Known_Levels(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := config.ParseLevel(name)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
}

func Test_Load_Resolves_Log_File_Relative_To_Work_Dir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".tl.json"), `{"log_file": "logs/tl.log", "log_format": "json"}`)

	cfg := load(t, config.LoadInput{WorkDirOverride: dir})

	if got, want := cfg.LogFileAbs, filepath.Join(dir, "logs", "tl.log"); got != want {
		t.Fatalf("LogFileAbs = %q, want %q", got, want)
	}

	if cfg.LogFormat != "json" {
		t.Fatalf("LogFormat = %q, want json", cfg.LogFormat)
	}

	writeFile(t, filepath.Join(dir, ".tl.json"), `{"log_format": "xml"}`)

	_, err := config.Load(config.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
	if !errors.Is(err, config.ErrLogFormatInvalid) {
		t.Fatalf("err = %v, want ErrLogFormatInvalid", err)
	}
}

func Test_Load_Resolves_Index_File_When_Set(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg := load(t, config.LoadInput{WorkDirOverride: dir})
	if cfg.IndexFileAbs != "" {
		t.Fatalf("IndexFileAbs = %q, want disabled by default", cfg.IndexFileAbs)
	}

	writeFile(t, filepath.Join(dir, ".tl.json"), `{"index_file": "tl.db"}`)

	cfg = load(t, config.LoadInput{WorkDirOverride: dir})
	if got, want := cfg.IndexFileAbs, filepath.Join(dir, "tl.db"); got != want {
		t.Fatalf("IndexFileAbs = %q, want %q", got, want)
	}
}
