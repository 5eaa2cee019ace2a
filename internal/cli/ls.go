package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/calvinalkan/timelog/internal/item"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var errInvalidFormat = fmt.Errorf("--format must be %s, %s or %s", formatText, formatJSON, formatYAML)

// itemRecord is the structured form of an item in json and yaml output.
type itemRecord struct {
	Activity        string `json:"activity"           yaml:"activity"`
	Start           string `json:"start"              yaml:"start"`
	End             string `json:"end,omitempty"      yaml:"end,omitempty"`
	Ongoing         bool   `json:"ongoing"            yaml:"ongoing"`
	DurationSeconds int64  `json:"duration_seconds"   yaml:"duration_seconds"`
}

func newItemRecord(it item.Item, now time.Time) itemRecord {
	rec := itemRecord{
		Activity:        it.Activity(),
		Start:           it.Start().Format(time.RFC3339),
		Ongoing:         it.Ongoing(),
		DurationSeconds: int64(it.Duration(now) / time.Second),
	}

	if end, ok := it.End(); ok {
		rec.End = end.Format(time.RFC3339)
	}

	return rec
}

// LsCmd returns the ls command.
func LsCmd(a *app) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	addFilterFlags(fs)
	fs.String("format", formatText, "Output `format` (text|json|yaml)")

	return &Command{
		Flags:   fs,
		Usage:   "ls [flags]",
		Aliases: []string{"list"},
		Short:   "List items",
		Long: `List items in chronological order with their durations and a total.
Ongoing items count up to now. Filters combine with AND.`,
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execLs(io, a, fs)
		},
	}
}

func execLs(io *IO, a *app, fs *flag.FlagSet) error {
	format, _ := fs.GetString("format")
	if format != formatText && format != formatJSON && format != formatYAML {
		return fmt.Errorf("%w: %q", errInvalidFormat, format)
	}

	now := a.now()

	criteria, err := criteriaFromFlags(fs, now)
	if err != nil {
		return err
	}

	matches, err := a.cache.Items(criteria)
	if err != nil {
		return err
	}

	items := slices.Collect(matches)

	switch format {
	case formatJSON:
		return writeJSON(io, items, now)
	case formatYAML:
		return writeYAML(io, items, now)
	}

	if len(items) == 0 {
		io.Println("No items")

		return nil
	}

	var total time.Duration

	for _, it := range items {
		io.Println(formatItem(it, now))

		total += it.Duration(now)
	}

	io.Println("total", formatDuration(total))

	return nil
}

func records(items []item.Item, now time.Time) []itemRecord {
	recs := make([]itemRecord, 0, len(items))
	for _, it := range items {
		recs = append(recs, newItemRecord(it, now))
	}

	return recs
}

func writeJSON(io *IO, items []item.Item, now time.Time) error {
	enc := json.NewEncoder(io)
	enc.SetIndent("", "  ")

	err := enc.Encode(records(items, now))
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	return nil
}

func writeYAML(io *IO, items []item.Item, now time.Time) error {
	enc := yaml.NewEncoder(io)
	enc.SetIndent(2)

	err := enc.Encode(records(items, now))
	if err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}

	return enc.Close()
}
