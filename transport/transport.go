// Package transport serves update transfers over TFTP.
//
// The server accepts one transfer at a time and forwards it to a Handler,
// normally an *update.Engine. A transfer arriving while another one runs
// waits up to the busy wait and is then refused.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/pin/tftp/v3"
	"go.uber.org/zap"

	"github.com/moffa90/go-tftpota/metrics"
	"github.com/moffa90/go-tftpota/update"
)

// ErrBusy is returned for a transfer refused because another one is running.
var ErrBusy = errors.New("another transfer is in progress")

// Handler receives the transfer callbacks. It is implemented by *update.Engine.
type Handler interface {
	OnOpen(name string, dir update.Direction) error
	OnWriteData(p []byte) (int, error)
	OnReadData(p []byte) (int, error)
	OnClose() error
}

// Server adapts a TFTP server to a Handler.
type Server struct {
	handler  Handler
	log      *zap.SugaredLogger
	metrics  *metrics.Recorder
	timeout  time.Duration
	retries  int
	busyWait time.Duration

	sem  chan struct{}
	tftp *tftp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for transfer events.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics counts refused transfers.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = r }
}

// WithTimeout sets the per-packet timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithRetries sets how often an unacknowledged packet is resent.
func WithRetries(n int) Option {
	return func(s *Server) { s.retries = n }
}

// WithBusyWait sets how long a transfer waits for a running one to end.
func WithBusyWait(d time.Duration) Option {
	return func(s *Server) { s.busyWait = d }
}

// New returns a server forwarding transfers to h.
func New(h Handler, opts ...Option) *Server {
	s := &Server{
		handler:  h,
		log:      zap.NewNop().Sugar(),
		timeout:  5 * time.Second,
		retries:  5,
		busyWait: 2 * time.Second,
		sem:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tftp = tftp.NewServer(s.readHandler, s.writeHandler)
	s.tftp.SetTimeout(s.timeout)
	s.tftp.SetRetries(s.retries)
	return s
}

// ListenAndServe listens on the UDP address addr and serves transfers
// until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	return s.tftp.ListenAndServe(addr)
}

// Serve serves transfers arriving on conn until Shutdown is called.
func (s *Server) Serve(conn net.PacketConn) error {
	return s.tftp.Serve(conn)
}

// Shutdown stops the server and waits for running transfers.
func (s *Server) Shutdown() {
	s.tftp.Shutdown()
}

// acquire takes the transfer slot, waiting at most busyWait.
func (s *Server) acquire() bool {
	select {
	case s.sem <- struct{}{}:
		return true
	default:
	}

	timer := time.NewTimer(s.busyWait)
	defer timer.Stop()
	select {
	case s.sem <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

func (s *Server) release() {
	<-s.sem
}

// jobReporter is implemented by handlers that can tell the size of the
// data they are about to send.
type jobReporter interface {
	Job() update.Job
}

// readHandler serves a read request: the client downloads data.
func (s *Server) readHandler(filename string, rf io.ReaderFrom) error {
	return s.serve(filename, update.Read, func() (int64, error) {
		if out, ok := rf.(tftp.OutgoingTransfer); ok {
			if jr, ok := s.handler.(jobReporter); ok {
				out.SetSize(jr.Job().Total)
			}
		}
		return rf.ReadFrom(&handlerReader{h: s.handler})
	})
}

// writeHandler serves a write request: the client uploads data.
func (s *Server) writeHandler(filename string, wt io.WriterTo) error {
	if in, ok := wt.(tftp.IncomingTransfer); ok {
		if size, ok := in.Size(); ok {
			s.log.Debugw("transfer size announced", "name", filename, "size", size)
		}
	}
	return s.serve(filename, update.Write, func() (int64, error) {
		return wt.WriteTo(&handlerWriter{h: s.handler})
	})
}

// serve runs one transfer. A transfer that fails midway is not closed;
// the handler discards the job when the next transfer opens.
func (s *Server) serve(name string, dir update.Direction, transfer func() (int64, error)) error {
	if !s.acquire() {
		s.log.Infow("transfer refused", "name", name, "direction", dir.String())
		s.metrics.TransferRejected("busy")
		return ErrBusy
	}
	defer s.release()

	start := time.Now()
	if err := s.handler.OnOpen(name, dir); err != nil {
		return err
	}

	n, err := transfer()
	if err != nil {
		s.log.Errorw("transfer failed", "name", name, "direction", dir.String(), "bytes", n, "error", err)
		return fmt.Errorf("transfer %s: %w", name, err)
	}

	s.log.Infow("transfer complete", "name", name, "direction", dir.String(), "bytes", n, "elapsed", time.Since(start))
	return s.handler.OnClose()
}

// handlerWriter feeds received blocks to the handler.
type handlerWriter struct {
	h Handler
}

func (w *handlerWriter) Write(p []byte) (int, error) {
	return w.h.OnWriteData(p)
}

// handlerReader pulls blocks to send from the handler.
type handlerReader struct {
	h Handler
}

func (r *handlerReader) Read(p []byte) (int, error) {
	n, err := r.h.OnReadData(p)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}
