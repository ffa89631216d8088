package update

import (
	"errors"
	"fmt"
	"testing"

	"github.com/moffa90/go-tftpota/record"
	"github.com/moffa90/go-tftpota/store"
)

func TestCommitReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "checksum", err: &record.ChecksumMismatchError{Expected: 1, Actual: 2}, want: "Wrong cfg CRC"},
		{name: "size", err: &record.SizeOutOfRangeError{Size: 4097}, want: "Wrong cfg size"},
		{name: "version", err: &record.VersionIncompatibleError{Version: 9}, want: "Wrong cfg version"},
		{name: "wrapped version", err: fmt.Errorf("commit: %w", &record.VersionIncompatibleError{Version: 0}), want: "Wrong cfg version"},
		{name: "storage", err: &store.WriteError{Op: "write", Err: errors.New("io")}, want: "Fail to write cfg"},
		{name: "other", err: errors.New("boom"), want: "Fail to write cfg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commitReason(tt.err); got != tt.want {
				t.Errorf("commitReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommitError(t *testing.T) {
	wErr := &store.WriteError{Op: "verify", Err: errors.New("mismatch")}
	err := commitError(wErr)
	if !errors.Is(err, ErrWriteFailure) {
		t.Errorf("commitError(WriteError) does not match ErrWriteFailure: %v", err)
	}
	var got *store.WriteError
	if !errors.As(err, &got) || got != wErr {
		t.Errorf("commitError(WriteError) lost the original error: %v", err)
	}

	crcErr := &record.ChecksumMismatchError{}
	if err := commitError(crcErr); err != crcErr || errors.Is(err, ErrWriteFailure) {
		t.Errorf("commitError(ChecksumMismatchError) = %v, want it unchanged", err)
	}
}

func TestJobError(t *testing.T) {
	err := &JobError{Kind: KindLoadConfig, Op: "write", Reason: "Cfg buffer overflow", Err: ErrBufferOverflow}

	if want := "load-config write: staging buffer overflow"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrBufferOverflow) {
		t.Error("JobError does not unwrap to its cause")
	}
}
