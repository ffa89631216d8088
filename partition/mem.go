package partition

import (
	"bytes"
	"fmt"
	"sync"
)

// MemSlots is an in-memory slot set with the same semantics as FileSlots.
type MemSlots struct {
	mu     sync.Mutex
	size   int64
	verify Verifier

	running string
	boot    string
	images  map[string][]byte
	active  *memSession

	// BeginErr, when set, is returned by the next Begin call
	BeginErr error
}

// NewMemSlots returns a slot set running from Slot0.
func NewMemSlots(size int64, opts ...Option) *MemSlots {
	if size <= 0 {
		size = DefaultSlotSize
	}
	o := buildOptions(opts)
	return &MemSlots{
		size:    size,
		verify:  o.verify,
		running: Slot0,
		boot:    Slot0,
		images:  make(map[string][]byte),
	}
}

// SlotSize implements Writer.
func (m *MemSlots) SlotSize() int64 { return m.size }

// Running returns the slot the device booted from.
func (m *MemSlots) Running() string { return m.running }

// BootTarget returns the slot selected for the next boot.
func (m *MemSlots) BootTarget() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boot
}

// Image returns a copy of the verified image stored in slot.
func (m *MemSlots) Image(slot string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.images[slot]...)
}

// Begin implements Writer.
func (m *MemSlots) Begin() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.BeginErr; err != nil {
		m.BeginErr = nil
		return nil, err
	}
	if m.active != nil {
		return nil, fmt.Errorf("slot %s is being written: %w", m.active.slot, ErrNoSlot)
	}

	m.active = &memSession{slots: m, slot: other(m.running)}
	return m.active, nil
}

func (m *MemSlots) release(sess *memSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == sess {
		m.active = nil
	}
}

type memSession struct {
	slots    *MemSlots
	slot     string
	buf      bytes.Buffer
	closed   bool
	finished bool
}

func (ms *memSession) Slot() string { return ms.slot }

func (ms *memSession) Write(p []byte) error {
	if ms.closed {
		return ErrSessionClosed
	}
	if int64(ms.buf.Len()+len(p)) > ms.slots.size {
		return fmt.Errorf("%d bytes at offset %d, slot holds %d: %w", len(p), ms.buf.Len(), ms.slots.size, ErrSlotFull)
	}
	ms.buf.Write(p)
	return nil
}

func (ms *memSession) Finish() error {
	if ms.closed {
		return ErrSessionClosed
	}
	ms.closed = true
	defer ms.slots.release(ms)

	img := ms.buf.Bytes()
	if err := ms.slots.verify(bytes.NewReader(img)); err != nil {
		return fmt.Errorf("verify slot %s: %w", ms.slot, err)
	}

	ms.slots.mu.Lock()
	ms.slots.images[ms.slot] = append([]byte(nil), img...)
	ms.slots.mu.Unlock()

	ms.finished = true
	return nil
}

func (ms *memSession) SetBootTarget() error {
	if !ms.finished {
		return ErrNotFinished
	}
	ms.slots.mu.Lock()
	defer ms.slots.mu.Unlock()
	ms.slots.boot = ms.slot
	return nil
}

func (ms *memSession) Abort() error {
	if ms.closed {
		return nil
	}
	ms.closed = true
	ms.slots.release(ms)
	return nil
}
