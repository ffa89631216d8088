package update

import (
	"time"

	"github.com/moffa90/go-tftpota/progress"
)

// Feedback is the user-facing status output of the device: a short
// message line and a progress indicator.
type Feedback interface {
	// Message replaces the status text. Lines are separated by '\n'.
	Message(text string)

	progress.Indicator
}

// Logger is an optional logging interface that can be provided to the engine.
// This allows integration with any logging framework.
//
// Example with standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
//
//	eng := update.New(st, slots, display, update.WithLogger(&StdLogger{}))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

// Rebooter restarts the device into the newly selected firmware.
type Rebooter interface {
	// ScheduleRestart arranges a restart after delay and returns immediately
	ScheduleRestart(delay time.Duration)
}

// Metrics receives job statistics.
type Metrics interface {
	// JobOpened counts a job that started successfully
	JobOpened(kind string)

	// BytesTransferred counts payload bytes moved by a job
	BytesTransferred(kind string, n int)

	// JobClosed records the outcome of a job and how long it ran
	JobClosed(kind, result string, elapsed time.Duration)
}

// Job results reported to Metrics.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultAbandoned = "abandoned"
)

type nopFeedback struct{}

func (nopFeedback) Message(string) {}
func (nopFeedback) Begin(int)      {}
func (nopFeedback) Advance()       {}
