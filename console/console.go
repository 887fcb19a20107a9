// Package console is the interpreter's only diagnostic surface: a
// suppressible Warn sink and a width-aware, header-indented Print
// sink. The core never writes to stdout/stderr directly; it is handed
// a Sink and calls these two methods.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// Sink is the interface the interpreter core requires of its
// diagnostic surface.
type Sink interface {
	// Warn reports a recoverable surprise (degraded float precision,
	// skipped shader invocation). Implementations may suppress it.
	Warn(msg string)
	// Print writes msg word-wrapped to the output width, with
	// continuation lines indented under a header column of the given
	// width.
	Print(msg string, header string)
}

// DefaultWidth is the wrap width used when the output width is not
// known (not a terminal, or never measured).
const DefaultWidth = 80

// Console is the default Sink: it writes to a single io.Writer,
// wrapping at a fixed column width. Warnings are colored red when the
// writer supports it (color handles the not-a-terminal case itself).
type Console struct {
	out   io.Writer
	width int

	// SuppressWarnings drops Warn output entirely. It is an explicit
	// per-Console field rather than a process-wide global, so two
	// interpreters in one process can disagree about it.
	SuppressWarnings bool

	warnColor *color.Color
}

// New returns a Console writing to out at the given wrap width
// (DefaultWidth if width <= 0).
func New(out io.Writer, width int) *Console {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Console{out: out, width: width, warnColor: color.New(color.FgRed, color.Bold)}
}

// NewStderr returns a Console writing to standard error at DefaultWidth.
func NewStderr() *Console { return New(os.Stderr, 0) }

// Width returns the wrap width.
func (c *Console) Width() int { return c.width }

// Warn prints msg under a red "[WARN] " header unless warnings are
// suppressed.
func (c *Console) Warn(msg string) {
	if c.SuppressWarnings {
		return
	}
	header := c.warnColor.Sprint("[WARN] ")
	// The colored header carries ANSI escapes which have no printed
	// width; wrap against the plain-text header width instead.
	c.printWrapped(msg, header, runewidth.StringWidth("[WARN] "))
}

// Print writes msg word-wrapped to the Console's width, continuation
// lines indented by the printed width of header. The header itself is
// printed before the first line.
func (c *Console) Print(msg string, header string) {
	c.printWrapped(msg, header, runewidth.StringWidth(header))
}

func (c *Console) printWrapped(msg, header string, headerWidth int) {
	avail := c.width - headerWidth
	if avail < 1 {
		avail = 1
	}
	indent := strings.Repeat(" ", headerWidth)
	first := true
	for {
		prefix := indent
		if first {
			prefix = header
		}
		if runewidth.StringWidth(msg) <= avail {
			fmt.Fprintf(c.out, "%s%s\n", prefix, msg)
			return
		}
		line, rest := breakLine(msg, avail)
		fmt.Fprintf(c.out, "%s%s\n", prefix, line)
		msg = rest
		first = false
		if msg == "" {
			return
		}
	}
}

// breakLine splits msg at the last space that keeps the head within
// avail columns, or hard-breaks mid-word when no space fits. When a
// space is found, the continuation starts one rune past it, even if
// that space was the last rune of the head.
func breakLine(msg string, avail int) (head, rest string) {
	runes := []rune(msg)
	fit := 0
	breakAt := -1
	width := 0
	for i, r := range runes {
		width += runewidth.RuneWidth(r)
		if width > avail {
			break
		}
		fit = i + 1
		if r == ' ' {
			breakAt = i
		}
	}
	if fit == 0 {
		fit = 1 // a single wide rune wider than avail still progresses
	}
	if breakAt < 0 {
		// No space fits: hard break mid-word.
		return string(runes[:fit]), string(runes[fit:])
	}
	// The continuation starts one rune past the space, even when the
	// space is the last rune that fit.
	return string(runes[:breakAt]), string(runes[breakAt+1:])
}
