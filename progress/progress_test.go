package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	begins   []int
	advances int
	history  []int
}

func (r *recorder) Begin(units int) {
	r.begins = append(r.begins, units)
	r.advances = 0
}

func (r *recorder) Advance() {
	r.advances++
	r.history = append(r.history, r.advances)
}

func TestTrackerSumsToUnits(t *testing.T) {
	tests := []struct {
		name   string
		total  int64
		units  int
		chunks []int
	}{
		{name: "block sized", total: 4096, units: 64, chunks: repeat(512, 8)},
		{name: "uneven chunks", total: 4096, units: 64, chunks: []int{1, 3, 700, 13, 2048, 1331}},
		{name: "total below units", total: 108, units: 64, chunks: []int{50, 50, 8}},
		{name: "single byte steps", total: 100, units: 7, chunks: repeat(1, 100)},
		{name: "overshoot clamps", total: 1000, units: 10, chunks: []int{600, 600}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			tr := NewTracker(rec, tt.units)
			tr.Start(tt.total)

			prev := 0
			for _, n := range tt.chunks {
				tr.Add(n)
				require.GreaterOrEqual(t, tr.Level(), prev, "level went backwards")
				require.LessOrEqual(t, tr.Level(), tt.units)
				prev = tr.Level()
			}

			assert.Equal(t, []int{tt.units}, rec.begins)
			assert.Equal(t, tt.units, rec.advances)
			assert.Equal(t, tt.units, tr.Level())
		})
	}
}

func TestTrackerLevelFormula(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec, 64)
	tr.Start(4096)

	tr.Add(100)
	assert.Equal(t, 1, tr.Level()) // floor(100*64/4096)
	tr.Add(1948)
	assert.Equal(t, 32, tr.Level())
	assert.Equal(t, int64(2048), tr.Position())
	assert.Equal(t, 32, rec.advances)
}

func TestTrackerZeroTotal(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec, 64)
	tr.Start(0)
	tr.Add(512)

	assert.Empty(t, rec.begins)
	assert.Zero(t, rec.advances)
	assert.Equal(t, int64(512), tr.Position())
}

func TestTrackerRestart(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec, 4)
	tr.Start(8)
	tr.Add(8)
	tr.Start(8)
	tr.Add(4)

	assert.Equal(t, []int{4, 4}, rec.begins)
	assert.Equal(t, 2, tr.Level())
}

func TestTrackerNilIndicator(t *testing.T) {
	tr := NewTracker(nil, 16)
	tr.Start(32)
	tr.Add(16)
	assert.Equal(t, 8, tr.Level())
}

func TestBarRender(t *testing.T) {
	bar := NewBar(10)
	assert.Equal(t, "[░░░░░░░░░░] 0.0%", bar.Render(0, 64))
	assert.Equal(t, "[█████░░░░░] 50.0%", bar.Render(32, 64))
	assert.Equal(t, "[██████████] 100.0%", bar.Render(64, 64))
	assert.Equal(t, "[░░░░░░░░░░] 0.0%", bar.Render(0, 0))
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	txt := NewText(&buf, 4)

	tr := NewTracker(txt, 4)
	tr.Start(4)
	for i := 0; i < 4; i++ {
		tr.Add(1)
	}
	txt.Advance() // ignored once full

	level, units := txt.Level()
	assert.Equal(t, 4, level)
	assert.Equal(t, 4, units)
	assert.True(t, strings.HasSuffix(buf.String(), "[████] 100.0%\n"), "output %q", buf.String())
}

func repeat(n, times int) []int {
	out := make([]int, times)
	for i := range out {
		out[i] = n
	}
	return out
}
