package cli_test

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/calvinalkan/timelog/internal/cli"
)

// Golden files live in testdata/. Regenerate with: go test ./internal/cli -update
func newGoldenCLI(t *testing.T) *cli.CLI {
	t.Helper()

	c := cli.NewCLI(t).At("2024-05-02_12:00:00")
	c.WriteStore(
		"2024-05-01_09:00:00 2024-05-01_10:30:00 coding",
		"2024-05-01_10:30:00 2024-05-01_11:00:00 code review",
		"2024-05-02_09:00:00 2024-05-02_09:15:00 standup",
		"2024-05-02_09:15:00 coding",
	)

	return c
}

func Test_Ls_Text_Output_Matches_Golden(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := newGoldenCLI(t).Run("ls")
	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "ls_text", []byte(stdout))
}

func Test_Days_Output_Matches_Golden(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := newGoldenCLI(t).Run("days")
	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "days", []byte(stdout))
}
