package update

import "time"

// Config holds the engine configuration.
type Config struct {
	// Logger is used for logging job activity (optional)
	Logger Logger

	// Rebooter restarts the device after a successful firmware update (optional)
	Rebooter Rebooter

	// Metrics receives job statistics (optional)
	Metrics Metrics

	// RebootDelay is the time between a successful firmware update and the restart
	RebootDelay time.Duration

	// ProgressUnits is the resolution of the progress indicator
	ProgressUnits int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		RebootDelay:   5 * time.Second,
		ProgressUnits: 64,
	}
}

// Option is a functional option for configuring the Engine.
type Option func(*Config)

// WithLogger sets a logger for the engine.
//
// Example:
//
//	eng := update.New(st, slots, display, update.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithRebooter sets the component that restarts the device after a firmware update.
// Without one the new firmware is selected but the device keeps running.
//
// Example:
//
//	eng := update.New(st, slots, display, update.WithRebooter(reboot.NewDelayed(restart)))
func WithRebooter(r Rebooter) Option {
	return func(c *Config) {
		c.Rebooter = r
	}
}

// WithMetrics sets the job statistics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithRebootDelay sets the delay between a successful firmware update and the restart.
// Default is 5 seconds.
//
// Example:
//
//	eng := update.New(st, slots, display, update.WithRebootDelay(3*time.Second))
func WithRebootDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.RebootDelay = d
		}
	}
}

// WithProgressUnits sets the number of steps of the progress indicator.
// Default is 64.
func WithProgressUnits(units int) Option {
	return func(c *Config) {
		if units > 0 {
			c.ProgressUnits = units
		}
	}
}
