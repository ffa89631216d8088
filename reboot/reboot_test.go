package reboot

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDelayedRestartsOnce(t *testing.T) {
	var calls int32
	d := NewDelayed(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	assert.False(t, d.Pending())
	d.ScheduleRestart(10 * time.Millisecond)
	d.ScheduleRestart(time.Millisecond)
	assert.True(t, d.Pending())

	require.NoError(t, d.Wait())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDelayedCancel(t *testing.T) {
	var calls int32
	d := NewDelayed(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	assert.False(t, d.Cancel())
	d.ScheduleRestart(time.Hour)
	assert.True(t, d.Cancel())
	assert.False(t, d.Pending())
	assert.NoError(t, d.Wait())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestDelayedRestartError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	d := NewDelayed(func() error { return errors.New("exec format error") }, zap.New(core).Sugar())

	d.ScheduleRestart(0)
	assert.EqualError(t, d.Wait(), "exec format error")

	failed := logs.FilterMessage("restart failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "exec format error", failed[0].ContextMap()["error"])
	assert.Equal(t, 1, logs.FilterMessage("restart scheduled").Len())
}
