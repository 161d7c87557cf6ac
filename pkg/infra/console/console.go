package console

import (
	"io"
	"os"

	"github.com/fatih/color"
)

// Console writes status lines for a human watching the terminal
type Console struct {
	w       io.Writer
	notice  *color.Color
	success *color.Color
}

// New creates a console writing to w. Colors are dropped when noColor is set
// or when w is not a terminal.
func New(w io.Writer, noColor bool) *Console {
	if w == nil {
		w = os.Stdout
	}

	c := &Console{
		w:       w,
		notice:  color.New(color.FgCyan),
		success: color.New(color.FgGreen, color.Bold),
	}
	if noColor || w != os.Stdout {
		c.notice.DisableColor()
		c.success.DisableColor()
	}
	return c
}

// Notice prints an informational status line
func (c *Console) Notice(msg string) {
	_, _ = c.notice.Fprintln(c.w, msg)
}

// Success prints a completion status line
func (c *Console) Success(msg string) {
	_, _ = c.success.Fprintln(c.w, msg)
}
