package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one tl subcommand: its flags, help texts and behaviour.
type Command struct {
	// Flags holds the command flags. Commands without flags still get an
	// empty set so --help works uniformly.
	Flags *flag.FlagSet

	// Usage follows "tl" in help output. Its first word is the command name,
	// e.g. "rm <start> [flags]".
	Usage string

	// Aliases are alternative names accepted on the command line.
	Aliases []string

	// Short is the one-line summary in the command listing.
	Short string

	// Long is the full help text. Short is used when empty.
	Long string

	// Exec runs with the positional arguments left after flag parsing.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// Matches reports whether name selects c.
func (c *Command) Matches(name string) bool {
	return name == c.Name() || slices.Contains(c.Aliases, name)
}

// HelpLine returns the row shown in the command listing.
func (c *Command) HelpLine() string {
	short := c.Short
	if len(c.Aliases) > 0 {
		short += " (alias: " + strings.Join(c.Aliases, ", ") + ")"
	}

	return fmt.Sprintf("  %-28s %s", c.Usage, short)
}

// PrintHelp writes the help for "tl <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: tl", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags == nil || !c.Flags.HasFlags() {
		return
	}

	var buf strings.Builder

	c.Flags.SetOutput(&buf)
	c.Flags.PrintDefaults()

	o.Println()
	o.Println("Flags:")
	o.Printf("%s", buf.String())
}

// Run parses args and executes the command, returning the exit code.
// Parse errors print the help to stderr; --help prints it to stdout.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // pflag's own messages are replaced by ours

	err := c.Flags.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		c.PrintHelp(o)

		return 0
	}

	if err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(NewIO(o.errOut, o.errOut))

		return 1
	}

	err = c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return o.Finish()
}
