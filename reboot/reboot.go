// Package reboot restarts the daemon after a firmware update.
package reboot

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// RestartFunc replaces the running process with the updated one.
type RestartFunc func() error

// Delayed schedules a single restart after a delay. It implements
// update.Rebooter. Once armed, further requests are ignored until Cancel.
type Delayed struct {
	mu      sync.Mutex
	restart RestartFunc
	log     *zap.SugaredLogger
	timer   *time.Timer
	done    chan struct{}
	err     error
}

// NewDelayed returns a rebooter calling restart when the delay expires.
// A nil restart uses Restart; a nil logger discards log output.
func NewDelayed(restart RestartFunc, log *zap.SugaredLogger) *Delayed {
	if restart == nil {
		restart = Restart
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Delayed{restart: restart, log: log}
}

// ScheduleRestart arms the restart timer.
func (d *Delayed) ScheduleRestart(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.log.Debugw("restart already scheduled")
		return
	}

	d.log.Infow("restart scheduled", "delay", delay)
	done := make(chan struct{})
	d.done = done
	d.timer = time.AfterFunc(delay, func() {
		defer close(done)
		d.log.Infow("restarting")
		if err := d.restart(); err != nil {
			d.log.Errorw("restart failed", "error", err)
			d.mu.Lock()
			d.err = err
			d.mu.Unlock()
		}
	})
}

// Pending reports whether a restart is armed.
func (d *Delayed) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel disarms a pending restart. It reports whether the restart was
// stopped before it ran.
func (d *Delayed) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	d.done = nil
	return stopped
}

// Wait blocks until an armed restart has run and returns its error.
// It returns nil at once when nothing is armed.
func (d *Delayed) Wait() error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()

	if done == nil {
		return nil
	}
	<-done

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}
