// Package progress maps transfer positions onto a fixed number of indicator steps.
package progress

// Indicator is a device that shows progress as a number of filled units.
// Begin resets it to empty with the given capacity; each Advance fills one more unit.
type Indicator interface {
	Begin(units int)
	Advance()
}

// Tracker converts byte positions into indicator fill levels.
// The level for position p of a total T is floor(p*U/T), clamped to U,
// and every change is emitted as single Advance calls so the indicator
// never goes backwards and ends exactly full.
type Tracker struct {
	ind   Indicator
	units int

	total int64
	pos   int64
	level int
}

// NewTracker returns a tracker driving ind with the given number of units.
// A nil indicator is allowed; the tracker then only counts.
func NewTracker(ind Indicator, units int) *Tracker {
	if units < 0 {
		units = 0
	}
	return &Tracker{ind: ind, units: units}
}

// Start resets the tracker for a transfer of total bytes.
// With a zero total the indicator is left untouched for the whole transfer.
func (t *Tracker) Start(total int64) {
	t.total = total
	t.pos = 0
	t.level = 0
	if t.active() {
		t.ind.Begin(t.units)
	}
}

// Add records n more bytes transferred and advances the indicator.
func (t *Tracker) Add(n int) {
	if n <= 0 {
		return
	}
	t.pos += int64(n)
	if t.total <= 0 {
		return
	}

	level := t.units
	if t.pos < t.total {
		level = int(t.pos * int64(t.units) / t.total)
	}

	for ; t.level < level; t.level++ {
		if t.ind != nil {
			t.ind.Advance()
		}
	}
}

// Level returns the number of units filled so far.
func (t *Tracker) Level() int { return t.level }

// Units returns the indicator capacity.
func (t *Tracker) Units() int { return t.units }

// Position returns the number of bytes recorded since Start.
func (t *Tracker) Position() int64 { return t.pos }

// Total returns the transfer size given to Start.
func (t *Tracker) Total() int64 { return t.total }

func (t *Tracker) active() bool {
	return t.ind != nil && t.total > 0
}
