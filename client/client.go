// Package client uploads and downloads update files to a device over TFTP.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pin/tftp/v3"
	"go.uber.org/zap"

	"github.com/moffa90/go-tftpota/progress"
)

// Remote file names understood by the device.
const (
	FirmwareName   = "fw.bin"
	ConfigName     = "cfg.cfg"
	FullConfigName = "full.cfg"
)

// DefaultAddr is the device address in access point mode.
const DefaultAddr = "192.168.4.1:69"

const mode = "octet"

// Client talks to one device.
type Client struct {
	addr     string
	tftp     *tftp.Client
	attempts int
	newBO    func() backoff.BackOff
	log      *zap.SugaredLogger
	ind      progress.Indicator
	units    int
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout  time.Duration
	retries  int
	attempts int
	backoff  func() backoff.BackOff
	log      *zap.SugaredLogger
	ind      progress.Indicator
	units    int
}

// WithTimeout sets the per-packet timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetries sets how often an unacknowledged packet is resent.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithAttempts sets how often a failed transfer is started again.
func WithAttempts(n int) Option {
	return func(o *options) { o.attempts = n }
}

// WithBackOff sets the policy for the delay between transfer attempts.
func WithBackOff(newBO func() backoff.BackOff) Option {
	return func(o *options) { o.backoff = newBO }
}

// WithLogger sets the logger for retries and transfer results.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

// WithProgress shows transfer progress on ind using the given number of units.
func WithProgress(ind progress.Indicator, units int) Option {
	return func(o *options) {
		o.ind = ind
		o.units = units
	}
}

// New returns a client for the device at addr (host:port).
func New(addr string, opts ...Option) (*Client, error) {
	o := options{
		timeout:  5 * time.Second,
		retries:  10,
		attempts: 3,
		backoff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		log:   zap.NewNop().Sugar(),
		units: 50,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.attempts < 1 {
		o.attempts = 1
	}

	c, err := tftp.NewClient(addr)
	if err != nil {
		return nil, fmt.Errorf("tftp client for %s: %w", addr, err)
	}
	c.SetTimeout(o.timeout)
	c.SetRetries(o.retries)
	c.RequestTSize(true)

	return &Client{
		addr:     addr,
		tftp:     c,
		attempts: o.attempts,
		newBO:    o.backoff,
		log:      o.log,
		ind:      o.ind,
		units:    o.units,
	}, nil
}

// Push uploads data as the remote file name.
func (c *Client) Push(ctx context.Context, name string, data []byte) error {
	op := func() error {
		rf, err := c.tftp.Send(name, mode)
		if err != nil {
			return fmt.Errorf("send %s: %w", name, err)
		}

		tr := progress.NewTracker(c.ind, c.units)
		tr.Start(int64(len(data)))
		n, err := rf.ReadFrom(&trackingReader{r: bytes.NewReader(data), tr: tr})
		if err != nil {
			return fmt.Errorf("send %s: %w", name, err)
		}
		c.log.Infow("upload complete", "device", c.addr, "name", name, "bytes", n)
		return nil
	}
	return c.retry(ctx, op)
}

// Pull downloads the remote file name.
func (c *Client) Pull(ctx context.Context, name string) ([]byte, error) {
	var buf bytes.Buffer
	op := func() error {
		buf.Reset()
		wt, err := c.tftp.Receive(name, mode)
		if err != nil {
			return fmt.Errorf("receive %s: %w", name, err)
		}

		tr := progress.NewTracker(c.ind, c.units)
		if in, ok := wt.(tftp.IncomingTransfer); ok {
			if size, ok := in.Size(); ok {
				tr.Start(size)
			}
		}
		n, err := wt.WriteTo(&trackingWriter{w: &buf, tr: tr})
		if err != nil {
			return fmt.Errorf("receive %s: %w", name, err)
		}
		c.log.Infow("download complete", "device", c.addr, "name", name, "bytes", n)
		return nil
	}
	if err := c.retry(ctx, op); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// retry runs op until it succeeds or the attempts run out. Only network
// failures are retried; an error reported by the device ends the transfer.
func (c *Client) retry(ctx context.Context, op func() error) error {
	attempt := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBO(), uint64(c.attempts-1)), ctx)
	return backoff.RetryNotify(attempt, bo, func(err error, d time.Duration) {
		c.log.Infow("transfer failed, retrying", "device", c.addr, "error", err, "delay", d)
	})
}

// retryable reports whether err is a network failure such as a timeout.
// The tftp client returns those as net.Error; packets refused by the
// device come back as plain errors.
func retryable(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

type trackingReader struct {
	r  io.Reader
	tr *progress.Tracker
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	t.tr.Add(n)
	return n, err
}

type trackingWriter struct {
	w  io.Writer
	tr *progress.Tracker
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.tr.Add(n)
	return n, err
}
