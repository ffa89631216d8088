package partition

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// OTADataFile holds the boot selection inside the slot directory.
const OTADataFile = "otadata.json"

type otaData struct {
	Boot     string `json:"boot"`
	Sequence uint32 `json:"seq"`
}

// FileSlots keeps the two application slots as files in a directory:
//
//	<dir>/ota_0.bin
//	<dir>/ota_1.bin
//	<dir>/otadata.json
//
// The running slot is the boot target found when the directory is opened.
type FileSlots struct {
	mu     sync.Mutex
	dir    string
	size   int64
	verify Verifier

	running string
	data    otaData
	active  *fileSession
}

// Option configures a slot set.
type Option func(*options)

type options struct {
	verify Verifier
}

// WithVerifier replaces the image check run by Finish.
func WithVerifier(v Verifier) Option {
	return func(o *options) {
		if v != nil {
			o.verify = v
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{verify: VerifyImage}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open loads the slot directory, creating it when missing.
// Without boot selection data the device runs from Slot0.
func Open(dir string, size int64, opts ...Option) (*FileSlots, error) {
	if size <= 0 {
		size = DefaultSlotSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create slot directory %s", dir)
	}

	o := buildOptions(opts)
	s := &FileSlots{
		dir:    dir,
		size:   size,
		verify: o.verify,
		data:   otaData{Boot: Slot0},
	}

	if err := s.restore(); err != nil {
		return nil, err
	}
	s.running = s.data.Boot
	return s, nil
}

// SlotSize implements Writer.
func (s *FileSlots) SlotSize() int64 { return s.size }

// Running returns the slot the device booted from.
func (s *FileSlots) Running() string { return s.running }

// BootTarget returns the slot selected for the next boot.
func (s *FileSlots) BootTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Boot
}

// ImagePath returns the file holding the image of a slot.
func (s *FileSlots) ImagePath(slot string) string {
	return filepath.Join(s.dir, slot+".bin")
}

// Begin implements Writer.
func (s *FileSlots) Begin() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, errors.Wrapf(ErrNoSlot, "slot %s is being written", s.active.slot)
	}

	slot := other(s.running)
	part := s.ImagePath(slot) + ".part"
	f, err := os.OpenFile(part, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", part)
	}

	s.active = &fileSession{slots: s, slot: slot, path: part, f: f}
	return s.active, nil
}

func (s *FileSlots) release(sess *fileSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == sess {
		s.active = nil
	}
}

func (s *FileSlots) setBoot(slot string) error {
	if err := validSlot(slot); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := otaData{Boot: slot, Sequence: s.data.Sequence + 1}
	if err := s.checkpoint(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *FileSlots) restore() error {
	path := filepath.Join(s.dir, OTADataFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var d otaData
	if err := json.NewDecoder(f).Decode(&d); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	if err := validSlot(d.Boot); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	s.data = d
	return nil
}

func (s *FileSlots) checkpoint(d otaData) error {
	path := filepath.Join(s.dir, OTADataFile)
	f, err := os.CreateTemp(s.dir, OTADataFile+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}

	if err := json.NewEncoder(f).Encode(&d); err != nil {
		f.Close()
		os.Remove(f.Name())
		return errors.Wrapf(err, "encode %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return errors.Wrapf(err, "sync %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return errors.Wrapf(err, "close %s", path)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		os.Remove(f.Name())
		return errors.Wrapf(err, "replace %s", path)
	}
	return nil
}

type fileSession struct {
	slots    *FileSlots
	slot     string
	path     string
	f        *os.File
	written  int64
	closed   bool
	finished bool
}

func (fs *fileSession) Slot() string { return fs.slot }

func (fs *fileSession) Write(p []byte) error {
	if fs.closed {
		return ErrSessionClosed
	}
	if fs.written+int64(len(p)) > fs.slots.size {
		return errors.Wrapf(ErrSlotFull, "%d bytes at offset %d, slot holds %d", len(p), fs.written, fs.slots.size)
	}
	n, err := fs.f.Write(p)
	fs.written += int64(n)
	if err != nil {
		return errors.Wrapf(err, "write %s", fs.path)
	}
	return nil
}

func (fs *fileSession) Finish() error {
	if fs.closed {
		return ErrSessionClosed
	}
	fs.closed = true
	defer fs.slots.release(fs)

	if err := fs.f.Sync(); err != nil {
		fs.discard()
		return errors.Wrapf(err, "sync %s", fs.path)
	}
	if err := fs.f.Close(); err != nil {
		os.Remove(fs.path)
		return errors.Wrapf(err, "close %s", fs.path)
	}

	if err := fs.check(); err != nil {
		os.Remove(fs.path)
		return errors.Wrapf(err, "verify slot %s", fs.slot)
	}

	target := fs.slots.ImagePath(fs.slot)
	if err := os.Rename(fs.path, target); err != nil {
		os.Remove(fs.path)
		return errors.Wrapf(err, "replace %s", target)
	}

	fs.finished = true
	return nil
}

func (fs *fileSession) check() error {
	f, err := os.Open(fs.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fs.slots.verify(f)
}

func (fs *fileSession) SetBootTarget() error {
	if !fs.finished {
		return ErrNotFinished
	}
	return fs.slots.setBoot(fs.slot)
}

func (fs *fileSession) Abort() error {
	if fs.closed {
		return nil
	}
	fs.closed = true
	defer fs.slots.release(fs)
	return fs.discard()
}

func (fs *fileSession) discard() error {
	fs.f.Close()
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", fs.path)
	}
	return nil
}
