package update

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-tftpota/record"
	"github.com/moffa90/go-tftpota/store"
)

var (
	// ErrUnrecognizedFileName indicates a transfer name that no job serves
	ErrUnrecognizedFileName = errors.New("unrecognized file name")

	// ErrStorageSlotUnavailable indicates that no firmware write session could be opened
	ErrStorageSlotUnavailable = errors.New("storage slot unavailable")

	// ErrWriteFailure indicates that flash or persistent storage rejected a write
	ErrWriteFailure = errors.New("write failure")

	// ErrBufferOverflow indicates staged data that would exceed the staging capacity
	ErrBufferOverflow = errors.New("staging buffer overflow")

	// ErrNoSourceData indicates a read of data that was never validly loaded
	ErrNoSourceData = errors.New("no source data available")

	// ErrWrongDirection indicates a data call that the current job does not serve
	ErrWrongDirection = errors.New("operation not supported by job")

	// ErrImageRejected indicates a firmware image that failed verification
	ErrImageRejected = errors.New("firmware image rejected")
)

// ErrorHeader starts every failure message shown to the user.
const ErrorHeader = "OTA Error:\n"

// JobError describes a failed job step.
type JobError struct {
	// Kind is the job that failed
	Kind Kind

	// Op is the failing callback: "open", "write", "read" or "close"
	Op string

	// Reason is the short text shown to the user, empty when nothing is shown
	Reason string

	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// commitReason returns the user-facing reason for a failed configuration commit.
func commitReason(err error) string {
	var (
		crcErr  *record.ChecksumMismatchError
		sizeErr *record.SizeOutOfRangeError
		verErr  *record.VersionIncompatibleError
	)
	switch {
	case errors.As(err, &crcErr):
		return "Wrong cfg CRC"
	case errors.As(err, &sizeErr):
		return "Wrong cfg size"
	case errors.As(err, &verErr):
		return "Wrong cfg version"
	}
	return "Fail to write cfg"
}

// commitError classifies a storage failure as ErrWriteFailure and passes
// record validation errors through unchanged.
func commitError(err error) error {
	var wErr *store.WriteError
	if errors.As(err, &wErr) {
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	return err
}
