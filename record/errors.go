package record

import "fmt"

// ChecksumMismatchError indicates that the stored crc does not match the record content.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: record carries 0x%08X, content hashes to 0x%08X",
		e.Actual, e.Expected)
}

// SizeOutOfRangeError indicates a record or image length outside the accepted bounds.
type SizeOutOfRangeError struct {
	// Field is the raw size field, zero when the length did not come from a header
	Field uint16

	// Size is the length in bytes that was rejected
	Size int

	// Available is the number of bytes actually supplied
	Available int

	Min int
	Max int
}

func (e *SizeOutOfRangeError) Error() string {
	if e.Field&SizeReservedMask != 0 {
		return fmt.Sprintf("size field 0x%04X has reserved bits set", e.Field)
	}
	if e.Size > e.Available && e.Size >= e.Min && e.Size <= e.Max {
		return fmt.Sprintf("record declares %d bytes but only %d were supplied", e.Size, e.Available)
	}
	return fmt.Sprintf("size %d is out of range: valid range is %d-%d", e.Size, e.Min, e.Max)
}

// VersionIncompatibleError indicates a record version outside the compatible range.
type VersionIncompatibleError struct {
	Version uint8
	Min     uint8
	Max     uint8
}

func (e *VersionIncompatibleError) Error() string {
	return fmt.Sprintf("record version %d is not compatible: accepted versions are %d-%d",
		e.Version, e.Min, e.Max)
}

// FieldError indicates a config value that cannot be represented in the record.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}
