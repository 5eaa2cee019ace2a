package cli_test

import (
	"os"
	"path/filepath"
	"testing"
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

func readFile(t *testing.T, path string) string {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	return string(content)
}

func assertStore(t *testing.T, got string, lines ...string) {
	t.Helper()

	want := ""
	for _, line := range lines {
		want += line + "\n"
	}

	if got != want {
		t.Errorf("store mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}
