package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/moffa90/go-tftpota/display"
	"github.com/moffa90/go-tftpota/logging"
	"github.com/moffa90/go-tftpota/metrics"
	"github.com/moffa90/go-tftpota/partition"
	"github.com/moffa90/go-tftpota/reboot"
	"github.com/moffa90/go-tftpota/settings"
	"github.com/moffa90/go-tftpota/status"
	"github.com/moffa90/go-tftpota/store"
	"github.com/moffa90/go-tftpota/transport"
	"github.com/moffa90/go-tftpota/update"
)

const (
	msgWaiting     = "Waiting for update"
	msgStartFailed = "Can't start TFTP srv\nRestart please."
)

// daemon holds the settings and sinks of one otad process.
type daemon struct {
	settings *settings.Settings
	console  *display.Console
	log      *zap.SugaredLogger
	restart  reboot.RestartFunc

	// ready receives the bound TFTP address once the server runs
	ready chan net.Addr
}

func newDaemon(s *settings.Settings, out io.Writer) *daemon {
	return &daemon{
		settings: s,
		console:  display.NewConsole(out),
		log:      logging.New(logging.Config{Level: s.LogLevel, File: s.LogFile}),
	}
}

// run serves transfers until ctx is done. When the TFTP server cannot start
// the failure is shown and run blocks until ctx is done.
func (d *daemon) run(ctx context.Context) error {
	defer d.log.Sync()
	s := d.settings

	for _, err := range s.Validate() {
		d.log.Warnw("settings validation", "error", err)
	}

	st := store.New(store.NewFileBackend(s.ConfigPartition))
	if err := st.Load(); err != nil {
		d.log.Infow("no valid configuration loaded", "path", s.ConfigPartition, "error", err)
	}

	var slots partition.Writer
	var slotInfo status.SlotSource
	if fs, err := partition.Open(s.SlotsDir, s.SlotSize); err != nil {
		d.log.Errorw("firmware slots unavailable", "dir", s.SlotsDir, "error", err)
	} else {
		slots, slotInfo = fs, fs
		d.log.Infow("firmware slots opened", "dir", s.SlotsDir, "running", fs.Running(), "boot", fs.BootTarget())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.NewRecorder(reg)

	eng := update.New(st, slots, d.console,
		update.WithLogger(logging.NewAdapter(d.log)),
		update.WithRebooter(reboot.NewDelayed(d.restart, d.log)),
		update.WithMetrics(rec),
		update.WithRebootDelay(s.RebootDelay()),
		update.WithProgressUnits(s.ProgressUnits),
	)

	srv := transport.New(eng,
		transport.WithLogger(d.log),
		transport.WithMetrics(rec),
		transport.WithTimeout(s.Timeout()),
		transport.WithRetries(s.Retries),
		transport.WithBusyWait(s.BusyWait()),
	)

	conn, err := net.ListenPacket("udp", s.Listen)
	if err != nil {
		d.log.Errorw("failed to start TFTP server", "addr", s.Listen, "error", err)
		d.console.Message(msgStartFailed)
		<-ctx.Done()
		return fmt.Errorf("listen on %s: %w", s.Listen, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.log.Infow("TFTP server started", "addr", conn.LocalAddr().String())
		defer d.log.Infow("TFTP server stopped")
		return srv.Serve(conn)
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.Shutdown()
		return nil
	})

	if s.StatusListen != "" {
		r := mux.NewRouter()
		(&status.Server{Config: st, Slots: slotInfo, Jobs: eng, Messages: d.console, Gatherer: reg}).RegisterHandlers(r)
		hs := &http.Server{Addr: s.StatusListen, Handler: r, ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			d.log.Infow("status server started", "addr", s.StatusListen)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return hs.Shutdown(shutdownCtx)
		})
	}

	d.console.Message(msgWaiting)
	if d.ready != nil {
		d.ready <- conn.LocalAddr()
	}
	return g.Wait()
}
