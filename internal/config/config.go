// Package config loads tl configuration from JSONC files and CLI overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

// Errors returned while loading configuration.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrStoreFileEmpty     = errors.New("store_file cannot be empty")
	ErrLogLevelInvalid    = errors.New("log_level must be one of debug, info, warn, error")
	ErrLockTimeoutInvalid = errors.New("lock_timeout must be a positive duration")
	ErrLogFormatInvalid   = errors.New("log_format must be text or json")
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	StoreFile   string `json:"store_file"`
	LogLevel    string `json:"log_level,omitempty"`
	LockTimeout string `json:"lock_timeout,omitempty"`
	LogFormat   string `json:"log_format,omitempty"`
	LogFile     string `json:"log_file,omitempty"`
	IndexFile   string `json:"index_file,omitempty"`

	// Resolved values (computed, not serialized)
	EffectiveCwd     string        `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	StoreFileAbs     string        `json:"-"` // Absolute path to the store file
	LogFileAbs       string        `json:"-"` // Absolute path to the log file, empty if disabled
	IndexFileAbs     string        `json:"-"` // Absolute path to the SQLite index, empty if disabled
	Level            slog.Level    `json:"-"`
	LockTimeoutValue time.Duration `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project or explicit config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		StoreFile:   "timelog.txt",
		LogLevel:    "warn",
		LockTimeout: "2s",
		LogFormat:   "text",
	}
}

// FileName is the project config file name.
const FileName = ".tl.json"

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/tl/config.json if set, otherwise ~/.config/tl/config.json.
// Returns empty string if home directory cannot be determined.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "tl", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "tl", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride   string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath        string            // -c/--config flag value
	StoreFileOverride string            // --store flag value; empty means no override
	LogLevelOverride  string            // --log-level flag value; empty means no override
	Env               map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/tl/config.json or $XDG_CONFIG_HOME/tl/config.json)
// 3. Project config file at default location (.tl.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty), instead of 3
// 5. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	if !filepath.IsAbs(workDir) {
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return Config{}, fmt.Errorf("resolving working directory: %w", err)
		}

		workDir = abs
	}

	cfg := Default()

	globalCfg, globalCfgPath, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalCfgPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if input.StoreFileOverride != "" {
		cfg.StoreFile = input.StoreFileOverride
	}

	if input.LogLevelOverride != "" {
		cfg.LogLevel = input.LogLevelOverride
	}

	cfg, err = resolve(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.StoreFile) {
		cfg.StoreFileAbs = cfg.StoreFile
	} else {
		cfg.StoreFileAbs = filepath.Join(workDir, cfg.StoreFile)
	}

	cfg.LogFileAbs = resolvePath(workDir, cfg.LogFile)
	cfg.IndexFileAbs = resolvePath(workDir, cfg.IndexFile)

	return cfg, nil
}

func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, loaded, err := loadFile(path, false)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadProject loads the project config file (.tl.json) or an explicit config file.
func loadProject(workDir, configPath string) (Config, string, error) {
	cfgFile := filepath.Join(workDir, FileName)
	mustExist := false

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	}

	cfg, loaded, err := loadFile(cfgFile, mustExist)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, cfgFile, nil
}

// loadFile loads a config file. If mustExist is false, missing files return zero config.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, explicitEmpty, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	if explicitEmpty["store_file"] {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrStoreFileEmpty)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	// Check which fields were explicitly set to empty
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	if val, exists := raw["store_file"]; exists {
		if str, ok := val.(string); ok && str == "" {
			explicitEmpty["store_file"] = true
		}
	}

	return cfg, explicitEmpty, nil
}

func merge(base, overlay Config) Config {
	if overlay.StoreFile != "" {
		base.StoreFile = overlay.StoreFile
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.LockTimeout != "" {
		base.LockTimeout = overlay.LockTimeout
	}

	if overlay.LogFormat != "" {
		base.LogFormat = overlay.LogFormat
	}

	if overlay.LogFile != "" {
		base.LogFile = overlay.LogFile
	}

	if overlay.IndexFile != "" {
		base.IndexFile = overlay.IndexFile
	}

	return base
}

// resolvePath makes a non-empty relative path absolute against workDir.
func resolvePath(workDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

// resolve validates cfg and fills in the parsed values.
func resolve(cfg Config) (Config, error) {
	if cfg.StoreFile == "" {
		return Config{}, ErrStoreFileEmpty
	}

	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return Config{}, err
	}

	timeout, err := time.ParseDuration(cfg.LockTimeout)
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("%w: %q", ErrLockTimeoutInvalid, cfg.LockTimeout)
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("%w: %q", ErrLogFormatInvalid, cfg.LogFormat)
	}

	cfg.Level = level
	cfg.LockTimeoutValue = timeout

	return cfg, nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrLogLevelInvalid, s)
	}
}
