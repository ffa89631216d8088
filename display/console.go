// Package display shows update status and progress on a text console.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/moffa90/go-tftpota/progress"
)

// DefaultBarWidth is the width of the progress bar in characters.
const DefaultBarWidth = 40

// Console prints status messages and a progress bar to a writer.
// It implements update.Feedback and remembers the last message shown.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	bar  *progress.Text
	last string

	// mid is set while a progress bar is drawn on the current line
	mid bool
}

// NewConsole returns a console writing to w.
func NewConsole(w io.Writer) *Console {
	return NewConsoleWidth(w, DefaultBarWidth)
}

// NewConsoleWidth returns a console with a progress bar of the given width.
func NewConsoleWidth(w io.Writer, width int) *Console {
	return &Console{w: w, bar: progress.NewText(w, width)}
}

// Message clears the screen line and prints text. Multi-line texts are
// printed one line per row.
func (c *Console) Message(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mid {
		fmt.Fprintln(c.w)
		c.mid = false
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintln(c.w, line)
	}
	c.last = text
}

// Begin implements progress.Indicator.
func (c *Console) Begin(units int) {
	c.mu.Lock()
	c.mid = units > 0
	c.mu.Unlock()

	c.bar.Begin(units)
}

// Advance implements progress.Indicator.
func (c *Console) Advance() {
	c.bar.Advance()

	level, units := c.bar.Level()
	if level >= units {
		c.mu.Lock()
		c.mid = false
		c.mu.Unlock()
	}
}

// LastMessage returns the most recent message, empty before the first one.
func (c *Console) LastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Progress returns the filled and total units of the progress bar.
func (c *Console) Progress() (level, units int) {
	return c.bar.Level()
}
