package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Bar renders a textual progress bar
type Bar struct {
	width int
}

func NewBar(width int) *Bar {
	if width <= 0 {
		width = 40
	}
	return &Bar{width: width}
}

// Render draws the bar for level out of units filled.
func (b *Bar) Render(level, units int) string {
	var percentage float64
	if units > 0 {
		percentage = 100.0 * float64(level) / float64(units)
	}

	filled := 0
	if units > 0 {
		filled = b.width * level / units
	}
	if filled > b.width {
		filled = b.width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", b.width-filled)
	return fmt.Sprintf("[%s] %.1f%%", bar, percentage)
}

// Text is an Indicator that redraws a bar on a terminal line.
type Text struct {
	mu    sync.Mutex
	w     io.Writer
	bar   *Bar
	units int
	level int
}

// NewText returns an indicator writing a bar of the given width to w.
func NewText(w io.Writer, width int) *Text {
	return &Text{w: w, bar: NewBar(width)}
}

// Begin implements Indicator.
func (t *Text) Begin(units int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.units = units
	t.level = 0
	t.draw()
}

// Advance implements Indicator.
func (t *Text) Advance() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.level >= t.units {
		return
	}
	t.level++
	t.draw()
	if t.level == t.units {
		fmt.Fprintln(t.w)
	}
}

// Level returns the number of filled units.
func (t *Text) Level() (level, units int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level, t.units
}

func (t *Text) draw() {
	// Clear line and move cursor to beginning
	fmt.Fprintf(t.w, "\r\033[K%s", t.bar.Render(t.level, t.units))
}
