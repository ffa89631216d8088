package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/moffa90/go-tftpota/display"
	"github.com/moffa90/go-tftpota/fwimage"
	"github.com/moffa90/go-tftpota/partition"
	"github.com/moffa90/go-tftpota/record"
	"github.com/moffa90/go-tftpota/store"
	"github.com/moffa90/go-tftpota/transport"
	"github.com/moffa90/go-tftpota/update"
)

type device struct {
	addr    string
	store   *store.Store
	slots   *partition.MemSlots
	console *display.Console
}

// startDevice serves an update engine on a loopback UDP port.
func startDevice(t *testing.T) *device {
	t.Helper()

	cfg := record.Default()
	cfg.SSID = "home"
	rec, err := record.Encode(cfg, false)
	require.NoError(t, err)
	img := bytes.Repeat([]byte{record.FillByte}, store.PartitionSize)
	copy(img, rec)

	d := &device{
		store:   store.New(store.NewMemBackend(img)),
		slots:   partition.NewMemSlots(0),
		console: display.NewConsole(io.Discard),
	}
	require.NoError(t, d.store.Load())
	eng := update.New(d.store, d.slots, d.console)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := transport.New(eng, transport.WithTimeout(time.Second))
	go srv.Serve(conn)
	t.Cleanup(srv.Shutdown)

	d.addr = conn.LocalAddr().String()
	return d
}

func newClient(t *testing.T, addr string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithTimeout(time.Second), WithRetries(3), WithAttempts(1)}, opts...)
	c, err := New(addr, opts...)
	require.NoError(t, err)
	return c
}

func TestPushPullConfig(t *testing.T) {
	dev := startDevice(t)
	ind := display.NewConsole(io.Discard)
	c := newClient(t, dev.addr, WithProgress(ind, 10))
	ctx := context.Background()

	cfg := record.Default()
	cfg.SSID = "office"
	cfg.Password = "hunter22"
	rec, err := record.Encode(cfg, true)
	require.NoError(t, err)

	require.NoError(t, c.Push(ctx, ConfigName, rec))
	active, ok := dev.store.ActiveConfig()
	require.True(t, ok)
	assert.Equal(t, "office", active.SSID)

	got, err := c.Pull(ctx, ConfigName)
	require.NoError(t, err)
	decoded, err := record.Decode(got)
	require.NoError(t, err)
	assert.Equal(t, "hunter22", decoded.Password)

	level, units := ind.Progress()
	assert.Equal(t, units, level)
}

func TestPullFullImage(t *testing.T) {
	dev := startDevice(t)
	c := newClient(t, dev.addr)

	got, err := c.Pull(context.Background(), FullConfigName)
	require.NoError(t, err)
	assert.Equal(t, dev.store.FullImage(), got)
}

func TestPushFirmware(t *testing.T) {
	dev := startDevice(t)
	c := newClient(t, dev.addr)

	img := fwimage.Encode(&fwimage.Image{
		Header:   fwimage.Header{HashAppended: true},
		Segments: []*fwimage.Segment{{LoadAddr: 0x3F400020, Data: bytes.Repeat([]byte{0xA5}, 3000)}},
	})
	require.NoError(t, c.Push(context.Background(), FirmwareName, img))

	assert.Equal(t, partition.Slot1, dev.slots.BootTarget())
	assert.Equal(t, "Update successful\nReboot in 5 second", dev.console.LastMessage())
}

func TestPushRejectedName(t *testing.T) {
	dev := startDevice(t)
	c := newClient(t, dev.addr)

	err := c.Push(context.Background(), "readme.txt", []byte("hello"))
	assert.Error(t, err)
	assert.Equal(t, "OTA Error:\nWrong file name", dev.console.LastMessage())
}

func TestDeviceRefusalNotRetried(t *testing.T) {
	tests := []struct {
		name string
		push func(c *Client) error
		want string
	}{
		{
			name: "unrecognized name",
			push: func(c *Client) error {
				return c.Push(context.Background(), "readme.txt", []byte("hello"))
			},
			want: "OTA Error:\nWrong file name",
		},
		{
			name: "config overflow",
			push: func(c *Client) error {
				return c.Push(context.Background(), ConfigName, make([]byte, update.StagingSize+512))
			},
			want: "OTA Error:\nCfg buffer overflow",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := startDevice(t)
			core, logs := observer.New(zapcore.InfoLevel)
			c := newClient(t, dev.addr,
				WithAttempts(3),
				WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }),
				WithLogger(zap.New(core).Sugar()),
			)

			err := tt.push(c)
			require.Error(t, err)
			assert.False(t, retryable(err))
			assert.Equal(t, 0, logs.FilterMessage("transfer failed, retrying").Len())
			assert.Equal(t, tt.want, dev.console.LastMessage())
		})
	}
}

func TestRetryable(t *testing.T) {
	timeout := &net.OpError{Op: "read", Net: "udp", Err: os.ErrDeadlineExceeded}
	assert.True(t, retryable(fmt.Errorf("receive cfg.cfg: %w", timeout)))
	assert.False(t, retryable(errors.New("sending block 0: code=1, error: wrong file name")))
	assert.False(t, retryable(context.Canceled))
}

func TestRetries(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := conn.LocalAddr().String()
	require.NoError(t, conn.Close())

	core, logs := observer.New(zapcore.InfoLevel)
	c := newClient(t, addr,
		WithTimeout(50*time.Millisecond),
		WithRetries(1),
		WithAttempts(3),
		WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }),
		WithLogger(zap.New(core).Sugar()),
	)

	_, err = c.Pull(context.Background(), ConfigName)
	assert.Error(t, err)
	assert.Equal(t, 2, logs.FilterMessage("transfer failed, retrying").Len())
}

func TestCanceledContext(t *testing.T) {
	c := newClient(t, DefaultAddr)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Push(ctx, ConfigName, []byte{1})
	assert.ErrorIs(t, err, context.Canceled)
}
