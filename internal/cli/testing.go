package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/timelog/internal/fs"
)

// CLI provides a clean interface for running CLI commands in tests.
// It manages a temp directory and environment variables.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string

	// FS backs store, backup and restore file access. Nil means the real
	// filesystem; set an [fs.Faulty] to inject failures.
	FS fs.FS
}

// NewCLI creates a new test CLI with a temp directory. HOME and
// XDG_CONFIG_HOME point into the temp directory so no user config leaks in.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	dir := t.TempDir()

	return &CLI{
		t:   t,
		Dir: dir,
		Env: map[string]string{
			"HOME":            filepath.Join(dir, "home"),
			"XDG_CONFIG_HOME": filepath.Join(dir, "xdg"),
		},
	}
}

// At pins the clock of subsequent runs to ts (YYYY-MM-DD_HH:MM:SS).
func (r *CLI) At(ts string) *CLI {
	r.Env[EnvNow] = ts

	return r
}

// Run executes the CLI with the given args and returns stdout, stderr, and exit code.
// Args should not include "tl" or "--cwd" - those are added automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	return r.RunWithInput("", args...)
}

// RunWithInput executes the CLI with stdin and returns stdout, stderr, and exit code.
// stdin must be a string or io.Reader; panics otherwise.
func (r *CLI) RunWithInput(stdin any, args ...string) (string, string, int) {
	var inReader io.Reader

	switch v := stdin.(type) {
	case string:
		inReader = strings.NewReader(v)
	case io.Reader:
		inReader = v
	default:
		panic(fmt.Sprintf("stdin must be string or io.Reader, got %T", stdin))
	}

	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"tl", "--cwd", r.Dir}, args...)
	fsys := r.FS
	if fsys == nil {
		fsys = fs.NewReal()
	}

	code := runWithFS(fsys, inReader, &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns non-zero.
// Returns trimmed stdout on success.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the CLI and fails the test if the command succeeds.
// Also fails if stdout is not empty. Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	if stdout != "" {
		r.t.Fatalf("command %v failed but stdout should be empty\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// StorePath returns the path of the default store file.
func (r *CLI) StorePath() string {
	return filepath.Join(r.Dir, "timelog.txt")
}

// ReadStore returns the content of the default store file.
func (r *CLI) ReadStore() string {
	r.t.Helper()

	content, err := os.ReadFile(r.StorePath())
	if err != nil {
		r.t.Fatalf("failed to read store: %v", err)
	}

	return string(content)
}

// WriteStore replaces the default store file with lines.
func (r *CLI) WriteStore(lines ...string) {
	r.t.Helper()

	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}

	err := os.WriteFile(r.StorePath(), []byte(content), 0o600)
	if err != nil {
		r.t.Fatalf("failed to write store: %v", err)
	}
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
