package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	flag "github.com/spf13/pflag"
)

const shellPrompt = "tl> "

var errUnterminatedQuote = errors.New("unterminated quote")

// lineReader is where the shell gets its input from.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Run commands interactively",
		Long: `Read tl commands line by line and run them against one store, so the
query cache stays warm between commands. Arguments may be quoted.
Type 'help' for commands and 'exit' to leave.`,
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			return execShell(ctx, io, a)
		},
	}
}

func execShell(ctx context.Context, o *IO, a *app) error {
	in := a.newLineReader()

	defer func() { _ = in.Close() }()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := in.Prompt(shellPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			o.Println()

			return nil
		}

		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		in.AppendHistory(line)

		args, err := splitArgs(line)
		if err != nil {
			o.ErrPrintln("error:", err)

			continue
		}

		switch args[0] {
		case "exit", "quit", "q":
			return nil
		case "shell":
			o.ErrPrintln("error: already in a shell")

			continue
		}

		code := a.run(ctx, o.out, o.errOut, args, nil)
		a.logger.Debug("shell command finished", "command", args[0], "exit_code", code)
	}
}

// newLineReader uses liner on the process terminal and a plain line scanner
// on any other input.
func (a *app) newLineReader() lineReader {
	if f, ok := a.stdin.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		return newLinerReader(a.historyPath(), a.commandNames())
	}

	stdin := a.stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}

	return &scanReader{scanner: bufio.NewScanner(stdin)}
}

func (a *app) commandNames() []string {
	cmds := a.commands()

	names := make([]string, 0, len(cmds)+3)
	for _, cmd := range cmds {
		names = append(names, cmd.Name())
		names = append(names, cmd.Aliases...)
	}

	return append(names, "help", "exit", "quit")
}

// historyPath returns ~/.tl_history, or "" without a home directory.
func (a *app) historyPath() string {
	home := a.env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, ".tl_history")
}

type linerReader struct {
	state       *liner.State
	historyPath string
}

func newLinerReader(historyPath string, names []string) *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) []string {
		var completions []string

		for _, name := range names {
			if strings.HasPrefix(name, line) {
				completions = append(completions, name)
			}
		}

		return completions
	})

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}

	return &linerReader{state: state, historyPath: historyPath}
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	return r.state.Prompt(prompt)
}

func (r *linerReader) AppendHistory(line string) {
	r.state.AppendHistory(line)
}

// Close saves the history and restores the terminal.
func (r *linerReader) Close() error {
	var saveErr error

	if r.historyPath != "" {
		f, err := os.Create(r.historyPath)
		if err == nil {
			_, saveErr = r.state.WriteHistory(f)
			saveErr = errors.Join(saveErr, f.Close())
		}
	}

	return errors.Join(saveErr, r.state.Close())
}

type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}

	err := r.scanner.Err()
	if err != nil {
		return "", err
	}

	return "", io.EOF
}

func (*scanReader) AppendHistory(string) {}

func (*scanReader) Close() error { return nil }

// splitArgs splits line on whitespace. Single or double quotes group words;
// a backslash escapes the next character outside single quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)

			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()

				inWord = false
			}
		default:
			current.WriteRune(r)

			inWord = true
		}
	}

	if quote != 0 || escaped {
		return nil, errUnterminatedQuote
	}

	if inWord {
		args = append(args, current.String())
	}

	return args, nil
}
