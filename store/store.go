// Package store owns the active configuration record and the raw
// configuration partition image.
//
// The store is the only place that changes the device configuration.
// Every commit validates the new content, writes the whole partition and
// reads it back before the in-memory state is replaced, so a failed
// commit leaves the previous configuration in effect.
package store

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/moffa90/go-tftpota/record"
)

// PartitionSize is the size of the configuration partition in bytes.
const PartitionSize = record.MaxSize

// WriteError reports a failure to persist the configuration partition.
type WriteError struct {
	// Op is the failing step: "write" or "verify"
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("config partition %s failed: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Option configures a Store.
type Option func(*Store)

// WithVersionRange sets the record versions accepted on load and commit.
func WithVersionRange(r record.Range) Option {
	return func(s *Store) {
		s.versions = r
	}
}

// Store holds the active record and the full partition image.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	backend  Backend
	versions record.Range

	active    []byte
	activeCfg *record.Config
	full      []byte
}

// New returns an empty store on top of b. Call Load to read the partition.
func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend:  b,
		versions: record.Compatible,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the partition. The full image and the record are loaded
// independently: an invalid record leaves the image loaded, an unreadable
// partition leaves both absent. The returned error is informative; the
// store is usable in every case.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active, s.activeCfg, s.full = nil, nil, nil

	data, err := s.backend.ReadPartition()
	if err != nil {
		return err
	}
	if len(data) != PartitionSize {
		return &record.SizeOutOfRangeError{Size: len(data), Available: len(data), Min: PartitionSize, Max: PartitionSize}
	}
	s.full = data

	return s.publish(data)
}

// publish makes the record at the start of img the active one,
// or clears it when the record is not valid.
func (s *Store) publish(img []byte) error {
	rec, err := record.Verify(img, s.versions)
	if err != nil {
		s.active, s.activeCfg = nil, nil
		return err
	}
	cfg, err := record.Decode(rec)
	if err != nil {
		s.active, s.activeCfg = nil, nil
		return err
	}
	s.active, s.activeCfg = rec, cfg
	return nil
}

// Commit validates raw as a configuration record and persists it at the
// start of the partition. A crc field holding record.AutoCRC is replaced by
// the computed checksum. Bytes beyond the declared record length are ignored.
//
// Validation failures are returned as *record.SizeOutOfRangeError,
// *record.ChecksumMismatchError or *record.VersionIncompatibleError;
// storage failures as *WriteError.
func (s *Store) Commit(raw []byte) error {
	rec, err := record.Prepare(raw, s.versions)
	if err != nil {
		return err
	}
	cfg, err := record.Decode(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	img := make([]byte, PartitionSize)
	if s.full != nil {
		copy(img, s.full)
	} else {
		for i := range img {
			img[i] = record.FillByte
		}
	}
	copy(img, rec)

	if err := s.writeVerified(img); err != nil {
		return err
	}

	s.full = img
	s.active, s.activeCfg = rec, cfg
	return nil
}

// CommitFullImage overwrites the whole partition with img, which must be
// exactly PartitionSize bytes. The content is not validated; afterwards the
// active record is re-derived from the image and is absent when the image
// does not start with a valid record.
func (s *Store) CommitFullImage(img []byte) error {
	if len(img) != PartitionSize {
		return &record.SizeOutOfRangeError{Size: len(img), Available: len(img), Min: PartitionSize, Max: PartitionSize}
	}
	img = append([]byte(nil), img...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeVerified(img); err != nil {
		return err
	}

	s.full = img
	_ = s.publish(img)
	return nil
}

// writeVerified writes img and reads it back. On any failure the previous
// partition content is written again.
func (s *Store) writeVerified(img []byte) error {
	if err := s.backend.WritePartition(img); err != nil {
		s.restore()
		return &WriteError{Op: "write", Err: err}
	}

	back, err := s.backend.ReadPartition()
	if err != nil {
		s.restore()
		return &WriteError{Op: "verify", Err: err}
	}
	if !bytes.Equal(back, img) {
		s.restore()
		return &WriteError{Op: "verify", Err: fmt.Errorf("read back differs from written data")}
	}
	return nil
}

func (s *Store) restore() {
	if s.full != nil {
		_ = s.backend.WritePartition(s.full)
	}
}

// Active returns a copy of the active record trimmed to its declared
// length, or nil when no valid record is loaded.
func (s *Store) Active() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil
	}
	return append([]byte(nil), s.active...)
}

// ActiveConfig returns the decoded active record.
func (s *Store) ActiveConfig() (*record.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeCfg == nil {
		return nil, false
	}
	cfg := *s.activeCfg
	return &cfg, true
}

// FullImage returns a copy of the partition image, or nil when it was never loaded.
func (s *Store) FullImage() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full == nil {
		return nil
	}
	return append([]byte(nil), s.full...)
}

// FullImageLoaded reports whether the partition image is available.
func (s *Store) FullImageLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.full != nil
}

// Versions returns the accepted record version range.
func (s *Store) Versions() record.Range {
	return s.versions
}
