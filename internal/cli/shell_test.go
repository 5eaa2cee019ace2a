package cli_test

import (
	"strings"
	"testing"

	"github.com/calvinalkan/timelog/internal/cli"
)

func Test_Shell_Runs_Commands_Until_Exit(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t).At("2024-05-01_09:00:00")

	input := strings.Join([]string{
		`start "code review" --at 08:00`,
		`current`,
		`stop`,
		`exit`,
		`start never`,
	}, "\n")

	stdout, stderr, code := c.RunWithInput(input, "shell")
	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	cli.AssertContains(t, stdout, "Started code review at 2024-05-01_08:00:00")
	cli.AssertContains(t, stdout, "code review since 2024-05-01_08:00:00 (1:00:00)")
	cli.AssertContains(t, stdout, "Stopped code review at 2024-05-01_09:00:00 (1:00:00)")
	cli.AssertNotContains(t, stdout, "never")

	assertStore(t, c.ReadStore(), "2024-05-01_08:00:00 2024-05-01_09:00:00 code review")
}

func Test_Shell_Reports_Errors_And_Continues(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t).At("2024-05-01_09:00:00")

	input := strings.Join([]string{
		`bogus`,
		`start 'unterminated`,
		`rm 07:00`,
		`start ok`,
	}, "\n")

	stdout, stderr, code := c.RunWithInput(input, "shell")
	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	cli.AssertContains(t, stderr, "unknown command: bogus")
	cli.AssertContains(t, stderr, "unterminated quote")
	cli.AssertContains(t, stderr, "no item starts at")
	cli.AssertContains(t, stdout, "Started ok at 2024-05-01_09:00:00")
}

func Test_Shell_Rejects_Nested_Shell(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	_, stderr, code := c.RunWithInput("shell\n", "shell")
	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	cli.AssertContains(t, stderr, "already in a shell")
}
