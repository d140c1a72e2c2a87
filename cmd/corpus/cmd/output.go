package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// console writes status lines, suppressing icons when output is not a
// terminal so piped output stays machine-friendly.
type console struct {
	w     io.Writer
	plain bool
}

func newConsole(w io.Writer) *console {
	plain := true
	if f, ok := w.(*os.File); ok {
		plain = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}
	return &console{w: w, plain: plain}
}

func (c *console) Status(icon, msg string) {
	if icon == "" || c.plain {
		fmt.Fprintln(c.w, msg)
		return
	}
	fmt.Fprintf(c.w, "%s %s\n", icon, msg)
}

func (c *console) Statusf(icon, format string, args ...any) {
	c.Status(icon, fmt.Sprintf(format, args...))
}

func (c *console) Newline() {
	fmt.Fprintln(c.w)
}
