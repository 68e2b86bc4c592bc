package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal. Anything that
// is not an *os.File (buffers, pipes wrapped in writers) is not.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Printer writes styled lines to a writer. Styling is applied only when
// the writer is a terminal and NO_COLOR is unset.
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter returns a printer for w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		w:     w,
		color: IsTerminal(w) && os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb",
	}
}

// NewPlainPrinter returns a printer that never styles.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Render applies style when color output is enabled.
func (p *Printer) Render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

// Println writes the rendered parts separated by spaces.
func (p *Printer) Println(parts ...string) {
	for i, s := range parts {
		if i > 0 {
			fmt.Fprint(p.w, " ")
		}
		fmt.Fprint(p.w, s)
	}
	fmt.Fprintln(p.w)
}

// Field writes a "label value" line.
func (p *Printer) Field(label, value string) {
	p.Println(p.Render(LabelStyle, label), p.Render(ValueStyle, value))
}

// Writer returns the underlying writer for unstyled output.
func (p *Printer) Writer() io.Writer { return p.w }
