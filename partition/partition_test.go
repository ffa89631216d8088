package partition

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-tftpota/fwimage"
)

type slotSet interface {
	Writer
	Running() string
	BootTarget() string
}

func validImage() []byte {
	return fwimage.Encode(&fwimage.Image{
		Header: fwimage.Header{EntryAddr: 0x40080000, HashAppended: true},
		Segments: []*fwimage.Segment{
			{LoadAddr: 0x3F400020, Data: []byte("application code")},
		},
	})
}

func implementations(t *testing.T, size int64) map[string]slotSet {
	t.Helper()
	fs, err := Open(t.TempDir(), size)
	require.NoError(t, err)
	return map[string]slotSet{
		"file": fs,
		"mem":  NewMemSlots(size),
	}
}

func writeAll(t *testing.T, sess Session, data []byte, chunk int) {
	t.Helper()
	for len(data) > 0 {
		n := chunk
		if n > len(data) {
			n = len(data)
		}
		require.NoError(t, sess.Write(data[:n]))
		data = data[n:]
	}
}

func TestSessionCommit(t *testing.T) {
	for name, slots := range implementations(t, 4096) {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, Slot0, slots.Running())

			sess, err := slots.Begin()
			require.NoError(t, err)
			assert.Equal(t, Slot1, sess.Slot())

			writeAll(t, sess, validImage(), 7)
			require.NoError(t, sess.Finish())
			assert.Equal(t, Slot0, slots.BootTarget(), "boot target changed before SetBootTarget")

			require.NoError(t, sess.SetBootTarget())
			assert.Equal(t, Slot1, slots.BootTarget())
			assert.Equal(t, Slot0, slots.Running())

			// the slot is free again
			next, err := slots.Begin()
			require.NoError(t, err)
			require.NoError(t, next.Abort())
		})
	}
}

func TestSessionVerificationFailure(t *testing.T) {
	for name, slots := range implementations(t, 4096) {
		t.Run(name, func(t *testing.T) {
			img := validImage()
			img[len(img)-1] ^= 0xFF

			sess, err := slots.Begin()
			require.NoError(t, err)
			writeAll(t, sess, img, 64)

			err = sess.Finish()
			require.Error(t, err)
			assert.True(t, errors.Is(err, fwimage.ErrInvalidImage), "error %v does not wrap ErrInvalidImage", err)

			assert.ErrorIs(t, sess.SetBootTarget(), ErrNotFinished)
			assert.Equal(t, Slot0, slots.BootTarget())
			assert.ErrorIs(t, sess.Write([]byte{0}), ErrSessionClosed)
		})
	}
}

func TestSessionExclusive(t *testing.T) {
	for name, slots := range implementations(t, 4096) {
		t.Run(name, func(t *testing.T) {
			sess, err := slots.Begin()
			require.NoError(t, err)

			_, err = slots.Begin()
			assert.ErrorIs(t, err, ErrNoSlot)

			require.NoError(t, sess.Abort())
			require.NoError(t, sess.Abort(), "second Abort should be a no-op")
			assert.ErrorIs(t, sess.Write([]byte{1}), ErrSessionClosed)
			assert.ErrorIs(t, sess.Finish(), ErrSessionClosed)

			sess, err = slots.Begin()
			require.NoError(t, err)
			require.NoError(t, sess.Abort())
		})
	}
}

func TestSessionSlotFull(t *testing.T) {
	for name, slots := range implementations(t, 16) {
		t.Run(name, func(t *testing.T) {
			sess, err := slots.Begin()
			require.NoError(t, err)
			defer sess.Abort()

			require.NoError(t, sess.Write(make([]byte, 10)))
			assert.ErrorIs(t, sess.Write(make([]byte, 7)), ErrSlotFull)
			require.NoError(t, sess.Write(make([]byte, 6)))
		})
	}
}

func TestFileSlotsPersistBootTarget(t *testing.T) {
	dir := t.TempDir()
	slots, err := Open(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultSlotSize), slots.SlotSize())

	sess, err := slots.Begin()
	require.NoError(t, err)
	writeAll(t, sess, validImage(), 512)
	require.NoError(t, sess.Finish())
	require.NoError(t, sess.SetBootTarget())

	stored, err := os.ReadFile(slots.ImagePath(Slot1))
	require.NoError(t, err)
	assert.Equal(t, validImage(), stored)

	_, err = os.Stat(slots.ImagePath(Slot1) + ".part")
	assert.True(t, os.IsNotExist(err), "partial file left behind")

	raw, err := os.ReadFile(filepath.Join(dir, OTADataFile))
	require.NoError(t, err)
	var data otaData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, otaData{Boot: Slot1, Sequence: 1}, data)

	// after a restart the device runs from the new slot and updates the other one
	reopened, err := Open(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, Slot1, reopened.Running())

	sess, err = reopened.Begin()
	require.NoError(t, err)
	assert.Equal(t, Slot0, sess.Slot())
	require.NoError(t, sess.Abort())
}

func TestFileSlotsAbortRemovesPartial(t *testing.T) {
	slots, err := Open(t.TempDir(), 4096)
	require.NoError(t, err)

	sess, err := slots.Begin()
	require.NoError(t, err)
	require.NoError(t, sess.Write([]byte("partial")))
	require.NoError(t, sess.Abort())

	_, err = os.Stat(slots.ImagePath(Slot1) + ".part")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(slots.ImagePath(Slot1))
	assert.True(t, os.IsNotExist(err))
}

func TestFileSlotsCorruptOTAData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, OTADataFile), []byte(`{"boot":"factory"}`), 0o644))

	_, err := Open(dir, 0)
	assert.Error(t, err)
}

func TestMemSlotsBeginError(t *testing.T) {
	slots := NewMemSlots(0)
	slots.BeginErr = errors.New("flash busy")

	_, err := slots.Begin()
	assert.EqualError(t, err, "flash busy")

	sess, err := slots.Begin()
	require.NoError(t, err)
	writeAll(t, sess, validImage(), 100)
	require.NoError(t, sess.Finish())
	assert.Equal(t, validImage(), slots.Image(Slot1))
}
