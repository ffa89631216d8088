// Package settings loads the otad daemon settings from a YAML file and
// OTAD_* environment variables.
package settings

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/moffa90/go-tftpota/partition"
)

// EnvPrefix prefixes every environment override, e.g. OTAD_LISTEN.
const EnvPrefix = "OTAD"

// Settings configures the otad daemon.
type Settings struct {
	Listen             string `mapstructure:"listen" yaml:"listen"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Retries            int    `mapstructure:"retries" yaml:"retries"`
	BusyWaitSeconds    int    `mapstructure:"busy_wait_seconds" yaml:"busy_wait_seconds"`
	ConfigPartition    string `mapstructure:"config_partition" yaml:"config_partition"`
	SlotsDir           string `mapstructure:"slots_dir" yaml:"slots_dir"`
	SlotSize           int64  `mapstructure:"slot_size" yaml:"slot_size"`
	RebootDelaySeconds int    `mapstructure:"reboot_delay_seconds" yaml:"reboot_delay_seconds"`
	ProgressUnits      int    `mapstructure:"progress_units" yaml:"progress_units"`
	StatusListen       string `mapstructure:"status_listen" yaml:"status_listen"`
	LogLevel           string `mapstructure:"log_level" yaml:"log_level"`
	LogFile            string `mapstructure:"log_file" yaml:"log_file"`
}

// Default returns the settings used when nothing is configured.
func Default() *Settings {
	return &Settings{
		Listen:             ":69",
		TimeoutSeconds:     5,
		Retries:            5,
		BusyWaitSeconds:    2,
		ConfigPartition:    "/var/lib/otad/config.bin",
		SlotsDir:           "/var/lib/otad/slots",
		SlotSize:           partition.DefaultSlotSize,
		RebootDelaySeconds: 5,
		ProgressUnits:      64,
		StatusListen:       ":8080",
		LogLevel:           "info",
		LogFile:            "stderr",
	}
}

// Load reads cfgFile, or otad.yaml from the default search path when cfgFile
// is empty, and applies environment overrides on top of the defaults.
// A missing default file is not an error.
func Load(cfgFile string) (*Settings, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("listen", def.Listen)
	v.SetDefault("timeout_seconds", def.TimeoutSeconds)
	v.SetDefault("retries", def.Retries)
	v.SetDefault("busy_wait_seconds", def.BusyWaitSeconds)
	v.SetDefault("config_partition", def.ConfigPartition)
	v.SetDefault("slots_dir", def.SlotsDir)
	v.SetDefault("slot_size", def.SlotSize)
	v.SetDefault("reboot_delay_seconds", def.RebootDelaySeconds)
	v.SetDefault("progress_units", def.ProgressUnits)
	v.SetDefault("status_listen", def.StatusListen)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_file", def.LogFile)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("otad")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/otad")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Validate checks the settings and returns every problem found.
// Out-of-range values are replaced by their defaults, so the returned
// errors are warnings; the settings are usable afterwards.
func (s *Settings) Validate() []error {
	var errs []error
	def := Default()

	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen %q is not a host:port address, using %q", s.Listen, def.Listen))
		s.Listen = def.Listen
	}
	if s.StatusListen != "" {
		if _, _, err := net.SplitHostPort(s.StatusListen); err != nil {
			errs = append(errs, fmt.Errorf("status_listen %q is not a host:port address, disabling", s.StatusListen))
			s.StatusListen = ""
		}
	}

	if s.TimeoutSeconds < 1 || s.TimeoutSeconds > 255 {
		errs = append(errs, fmt.Errorf("timeout_seconds %d outside 1..255, using %d", s.TimeoutSeconds, def.TimeoutSeconds))
		s.TimeoutSeconds = def.TimeoutSeconds
	}
	if s.Retries < 1 {
		errs = append(errs, fmt.Errorf("retries %d is below minimum 1, using %d", s.Retries, def.Retries))
		s.Retries = def.Retries
	}
	if s.BusyWaitSeconds < 0 {
		errs = append(errs, fmt.Errorf("busy_wait_seconds %d is negative, using %d", s.BusyWaitSeconds, def.BusyWaitSeconds))
		s.BusyWaitSeconds = def.BusyWaitSeconds
	}
	if s.SlotSize <= 0 {
		errs = append(errs, fmt.Errorf("slot_size %d must be positive, using %d", s.SlotSize, def.SlotSize))
		s.SlotSize = def.SlotSize
	}
	if s.RebootDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("reboot_delay_seconds %d is negative, using %d", s.RebootDelaySeconds, def.RebootDelaySeconds))
		s.RebootDelaySeconds = def.RebootDelaySeconds
	}
	if s.ProgressUnits < 1 {
		errs = append(errs, fmt.Errorf("progress_units %d is below minimum 1, using %d", s.ProgressUnits, def.ProgressUnits))
		s.ProgressUnits = def.ProgressUnits
	}
	if s.ConfigPartition == "" {
		errs = append(errs, fmt.Errorf("config_partition is empty, using %q", def.ConfigPartition))
		s.ConfigPartition = def.ConfigPartition
	}
	if s.SlotsDir == "" {
		errs = append(errs, fmt.Errorf("slots_dir is empty, using %q", def.SlotsDir))
		s.SlotsDir = def.SlotsDir
	}

	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", s.LogLevel))
		s.LogLevel = def.LogLevel
	}

	return errs
}

// Timeout returns the transfer timeout.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// BusyWait returns how long a transfer waits for a running one to finish.
func (s *Settings) BusyWait() time.Duration {
	return time.Duration(s.BusyWaitSeconds) * time.Second
}

// RebootDelay returns the delay between a firmware commit and the restart.
func (s *Settings) RebootDelay() time.Duration {
	return time.Duration(s.RebootDelaySeconds) * time.Second
}
