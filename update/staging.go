package update

import (
	"fmt"

	"github.com/moffa90/go-tftpota/record"
)

// StagingSize is the capacity of the configuration staging buffer.
const StagingSize = record.MaxSize

// staging is the fixed-capacity buffer that collects configuration data
// until the transfer is closed. Every write is bounds checked.
type staging struct {
	buf []byte
}

func newStaging(capacity int) *staging {
	s := &staging{buf: make([]byte, capacity)}
	s.reset()
	return s
}

// reset fills the buffer with the erased-flash value.
func (s *staging) reset() {
	for i := range s.buf {
		s.buf[i] = record.FillByte
	}
}

// writeAt copies p to offset off. Data that would cross the capacity is
// rejected as a whole and the buffer is left unchanged.
func (s *staging) writeAt(p []byte, off int64) error {
	if off < 0 || off > int64(len(s.buf)) || int64(len(p)) > int64(len(s.buf))-off {
		return fmt.Errorf("%w: %d bytes at offset %d, capacity %d", ErrBufferOverflow, len(p), off, len(s.buf))
	}
	copy(s.buf[off:], p)
	return nil
}

// bytes returns a copy of the first n bytes.
func (s *staging) bytes(n int64) []byte {
	if n > int64(len(s.buf)) {
		n = int64(len(s.buf))
	}
	return append([]byte(nil), s.buf[:n]...)
}

func (s *staging) capacity() int64 {
	return int64(len(s.buf))
}
