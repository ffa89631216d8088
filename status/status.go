// Package status serves the device state over HTTP.
package status

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moffa90/go-tftpota/record"
	"github.com/moffa90/go-tftpota/update"
)

// ConfigSource is the configuration state, implemented by *store.Store.
type ConfigSource interface {
	ActiveConfig() (*record.Config, bool)
	FullImageLoaded() bool
}

// SlotSource reports firmware slots, implemented by *partition.FileSlots.
type SlotSource interface {
	Running() string
	BootTarget() string
}

// JobSource reports the transfer in progress, implemented by *update.Engine.
type JobSource interface {
	Job() update.Job
}

// MessageSource returns the last status message, implemented by *display.Console.
type MessageSource interface {
	LastMessage() string
}

// Report is the JSON body of /status. The WiFi password is never included.
type Report struct {
	Config          *ConfigReport `json:"config"`
	FullImageLoaded bool          `json:"full_image_loaded"`
	RunningSlot     string        `json:"running_slot,omitempty"`
	BootSlot        string        `json:"boot_slot,omitempty"`
	Job             *JobReport    `json:"job,omitempty"`
	LastMessage     string        `json:"last_message"`
}

// ConfigReport describes the active configuration record.
type ConfigReport struct {
	Version  uint8  `json:"version"`
	SSID     string `json:"ssid"`
	WiFiMode string `json:"wifi_mode"`
	Contrast uint8  `json:"display_contrast"`
}

// JobReport describes the running transfer.
type JobReport struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Cursor int64  `json:"cursor"`
	Total  int64  `json:"total"`
}

// Server answers status requests. Any source may be nil.
type Server struct {
	Config   ConfigSource
	Slots    SlotSource
	Jobs     JobSource
	Messages MessageSource

	// Gatherer backs /metrics; nil leaves the endpoint out
	Gatherer prometheus.Gatherer
}

// RegisterHandlers registers the status endpoints on r.
func (s *Server) RegisterHandlers(r *mux.Router) {
	r.HandleFunc("/status", s.getStatus).Methods("GET")
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

// Report collects the current state.
func (s *Server) Report() Report {
	var rep Report
	if s.Config != nil {
		if cfg, ok := s.Config.ActiveConfig(); ok {
			rep.Config = &ConfigReport{
				Version:  cfg.Version,
				SSID:     cfg.SSID,
				WiFiMode: cfg.WiFiMode().String(),
				Contrast: cfg.DisplayContrast,
			}
		}
		rep.FullImageLoaded = s.Config.FullImageLoaded()
	}
	if s.Slots != nil {
		rep.RunningSlot = s.Slots.Running()
		rep.BootSlot = s.Slots.BootTarget()
	}
	if s.Jobs != nil {
		if j := s.Jobs.Job(); j.Kind != update.KindNone {
			rep.Job = &JobReport{Kind: j.Kind.String(), Name: j.Name, Cursor: j.Cursor, Total: j.Total}
		}
	}
	if s.Messages != nil {
		rep.LastMessage = s.Messages.LastMessage()
	}
	return rep
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	js, err := json.Marshal(s.Report())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}
