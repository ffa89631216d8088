package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Backend gives raw access to the configuration partition.
type Backend interface {
	// ReadPartition returns the full partition content
	ReadPartition() ([]byte, error)

	// WritePartition replaces the full partition content
	WritePartition(p []byte) error
}

// FileBackend keeps the partition in a single file.
// Writes go to a temporary file that is synced and renamed over the target.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend stored at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the partition file location.
func (b *FileBackend) Path() string { return b.path }

// ReadPartition implements Backend.
func (b *FileBackend) ReadPartition() ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read partition %s", b.path)
	}
	return data, nil
}

// WritePartition implements Backend.
func (b *FileBackend) WritePartition(p []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}

	f, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", b.path)
	}

	if _, err := f.Write(p); err != nil {
		f.Close()
		os.Remove(f.Name())
		return errors.Wrapf(err, "write %s", f.Name())
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return errors.Wrapf(err, "sync %s", f.Name())
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return errors.Wrapf(err, "close %s", f.Name())
	}
	if err := os.Rename(f.Name(), b.path); err != nil {
		os.Remove(f.Name())
		return errors.Wrapf(err, "replace %s", b.path)
	}
	return nil
}

// MemBackend keeps the partition in memory. It can inject failures for tests.
type MemBackend struct {
	mu   sync.Mutex
	data []byte

	// FailWrites makes the next n writes return an error without storing anything
	FailWrites int

	// CorruptWrites makes the next n writes store a damaged copy of the data
	CorruptWrites int

	// Writes counts every WritePartition call
	Writes int
}

// NewMemBackend returns a backend holding a copy of data.
// A nil data slice makes the partition unreadable until the first write.
func NewMemBackend(data []byte) *MemBackend {
	m := &MemBackend{}
	if data != nil {
		m.data = append([]byte(nil), data...)
	}
	return m
}

// ReadPartition implements Backend.
func (m *MemBackend) ReadPartition() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, errors.Wrap(os.ErrNotExist, "read partition")
	}
	return append([]byte(nil), m.data...), nil
}

// WritePartition implements Backend.
func (m *MemBackend) WritePartition(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Writes++
	if m.FailWrites > 0 {
		m.FailWrites--
		return errors.New("flash write failed")
	}

	m.data = append([]byte(nil), p...)
	if m.CorruptWrites > 0 {
		m.CorruptWrites--
		if len(m.data) > 0 {
			m.data[len(m.data)/2] ^= 0xA5
		}
	}
	return nil
}

// Data returns a copy of the stored partition.
func (m *MemBackend) Data() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}
