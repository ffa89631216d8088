// Package partition manages the firmware update slots of the device.
//
// A device has two application slots. The slot that is not running receives
// a new image through a Session; once the image is verified the slot is
// selected as the next boot target. The running slot is never written.
//
//	sess, err := slots.Begin()
//	if err != nil {
//	    return err
//	}
//	for chunk := range chunks {
//	    if err := sess.Write(chunk); err != nil {
//	        sess.Abort()
//	        return err
//	    }
//	}
//	if err := sess.Finish(); err != nil {
//	    return err // slot discarded, boot target untouched
//	}
//	return sess.SetBootTarget()
package partition

import (
	"errors"
	"fmt"
	"io"

	"github.com/moffa90/go-tftpota/fwimage"
)

//go:generate mockgen -destination mocks/partition_mocks.go -package mock_partition github.com/moffa90/go-tftpota/partition Writer,Session

// Slot names.
const (
	Slot0 = "ota_0"
	Slot1 = "ota_1"
)

// DefaultSlotSize is the capacity of an application slot in bytes.
const DefaultSlotSize = 4 << 20

var (
	// ErrNoSlot is returned by Begin when no slot can take an update
	ErrNoSlot = errors.New("no update slot available")

	// ErrSlotFull is returned by Write when the data would exceed the slot size
	ErrSlotFull = errors.New("write exceeds slot size")

	// ErrSessionClosed is returned when a finished or aborted session is used
	ErrSessionClosed = errors.New("session closed")

	// ErrNotFinished is returned by SetBootTarget before a successful Finish
	ErrNotFinished = errors.New("image not finished")
)

// Writer hands out write sessions for the update slot.
type Writer interface {
	// Begin opens a session on the slot that is not running
	Begin() (Session, error)

	// SlotSize returns the capacity of a slot in bytes
	SlotSize() int64
}

// Session is an exclusive sequential write into one slot.
type Session interface {
	// Slot returns the name of the slot being written
	Slot() string

	// Write appends p to the slot
	Write(p []byte) error

	// Finish completes the write and verifies the image.
	// On failure the slot content is discarded.
	Finish() error

	// SetBootTarget selects the verified slot for the next boot
	SetBootTarget() error

	// Abort discards the partial image. It is safe to call more than once.
	Abort() error
}

// Verifier checks a complete image read from r.
type Verifier func(r io.Reader) error

// VerifyImage is the default Verifier; it accepts well-formed application images.
func VerifyImage(r io.Reader) error {
	_, err := fwimage.ParseReader(r)
	return err
}

// other returns the slot that is not running.
func other(running string) string {
	if running == Slot0 {
		return Slot1
	}
	return Slot0
}

func validSlot(name string) error {
	if name != Slot0 && name != Slot1 {
		return fmt.Errorf("unknown slot %q", name)
	}
	return nil
}
