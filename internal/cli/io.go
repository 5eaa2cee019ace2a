package cli

import (
	"fmt"
	"io"
)

// warning is something the user should act on after a command that
// otherwise did its job.
type warning struct {
	issue  string
	action string
}

func (w warning) String() string {
	return w.issue + ": " + w.action
}

// IO is the output side of one command run.
//
// Warnings go to stderr twice: before the first line of stdout and again
// when the command finishes, so they survive output piped through head or
// tail. A command with warnings exits 1 even though its output is printed.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []warning
	wrote    bool
}

// NewIO returns an IO writing to out and errOut.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records a warning: what happened and what the user can do about it.
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, warning{issue: issue, action: action})
}

// Println writes a line to stdout.
func (o *IO) Println(a ...any) {
	o.beforeOutput()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes to stdout.
func (o *IO) Printf(format string, a ...any) {
	o.beforeOutput()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// Write lets encoders write to stdout.
func (o *IO) Write(p []byte) (int, error) {
	o.beforeOutput()

	return o.out.Write(p)
}

// ErrPrintln writes a line to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish repeats the warnings on stderr and returns the exit code.
func (o *IO) Finish() int {
	if len(o.warnings) == 0 {
		return 0
	}

	o.printWarnings()

	return 1
}

func (o *IO) beforeOutput() {
	if o.wrote {
		return
	}

	o.wrote = true
	o.printWarnings()
}

func (o *IO) printWarnings() {
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}
}
