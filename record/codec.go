package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeSize converts a record length in bytes into the size field value.
// The length must be a multiple of SizeAlignment between MinSize and MaxSize.
func EncodeSize(length int) (uint16, error) {
	if length < MinSize || length > MaxSize || length%SizeAlignment != 0 {
		return 0, &SizeOutOfRangeError{Size: length, Available: length, Min: MinSize, Max: MaxSize}
	}
	return uint16(length/SizeAlignment - 1), nil
}

// DecodeSize converts a size field value into the record length in bytes.
// A field with any reserved bit set is rejected.
func DecodeSize(field uint16) (int, error) {
	if field&SizeReservedMask != 0 {
		return 0, &SizeOutOfRangeError{Field: field, Min: MinSize, Max: MaxSize}
	}
	return int(field&SizeFieldMask)*SizeAlignment + SizeAlignment, nil
}

// ParseHeader decodes the fixed header fields from the start of raw.
func ParseHeader(raw []byte) (Header, error) {
	if len(raw) < HeaderSize {
		return Header{}, &SizeOutOfRangeError{Size: len(raw), Available: len(raw), Min: MinSize, Max: MaxSize}
	}
	return Header{
		CRC:       binary.LittleEndian.Uint32(raw[OffsetCRC:]),
		SizeField: binary.LittleEndian.Uint16(raw[OffsetSize:]),
		Version:   raw[OffsetVersion],
	}, nil
}

// Encode serializes c into a V1 record.
// When autoCRC is true the crc field is set to the AutoCRC sentinel and the
// device computes the checksum on commit; otherwise the real crc is stored.
func Encode(c *Config, autoCRC bool) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	rec := make([]byte, V1Size)

	size, err := EncodeSize(V1Size)
	if err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint16(rec[OffsetSize:], size)
	rec[OffsetVersion] = c.Version

	if err := putString(rec[OffsetSSID:OffsetSSID+SSIDSize], "ssid", c.SSID); err != nil {
		return nil, err
	}
	if err := putString(rec[OffsetPassword:OffsetPassword+PasswordSize], "password", c.Password); err != nil {
		return nil, err
	}
	rec[OffsetContrast] = c.DisplayContrast
	rec[OffsetOptions] = c.Options

	if autoCRC {
		putChecksum(rec, AutoCRC)
	} else {
		putChecksum(rec, Checksum(rec))
	}

	return rec, nil
}

// Decode extracts the fields of an encoded record.
// It does not validate the checksum or version; use Verify or Prepare first.
// Fields beyond the declared record length read as zero, so records of an
// older, shorter layout decode cleanly.
func Decode(rec []byte) (*Config, error) {
	h, err := ParseHeader(rec)
	if err != nil {
		return nil, err
	}
	length, err := DecodeSize(h.SizeField)
	if err != nil {
		return nil, err
	}
	if length > len(rec) {
		return nil, &SizeOutOfRangeError{Field: h.SizeField, Size: length, Available: len(rec), Min: MinSize, Max: MaxSize}
	}

	// Pad to the current layout so that missing trailing fields read as zero
	buf := make([]byte, max(length, V1Size))
	copy(buf, rec[:length])

	return &Config{
		Version:         h.Version,
		SSID:            getString(buf[OffsetSSID : OffsetSSID+SSIDSize]),
		Password:        getString(buf[OffsetPassword : OffsetPassword+PasswordSize]),
		DisplayContrast: buf[OffsetContrast],
		Options:         buf[OffsetOptions],
	}, nil
}

// Verify checks a stored record strictly: the AutoCRC sentinel is not accepted.
// It returns the record trimmed to its declared length.
func Verify(raw []byte, versions Range) ([]byte, error) {
	return validate(raw, versions, false)
}

// Prepare checks a record received for commit. A crc field holding the
// AutoCRC sentinel is replaced by the real checksum; any other value must match.
// It returns a fresh copy of the record trimmed to its declared length;
// raw itself is never modified.
func Prepare(raw []byte, versions Range) ([]byte, error) {
	return validate(raw, versions, true)
}

func validate(raw []byte, versions Range, allowAuto bool) ([]byte, error) {
	if len(raw) < MinSize {
		return nil, &SizeOutOfRangeError{Size: len(raw), Available: len(raw), Min: MinSize, Max: MaxSize}
	}

	h, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}

	length, err := DecodeSize(h.SizeField)
	if err != nil {
		return nil, err
	}
	if length < MinSize || length > len(raw) || length > MaxSize {
		return nil, &SizeOutOfRangeError{Field: h.SizeField, Size: length, Available: len(raw), Min: MinSize, Max: MaxSize}
	}

	rec := make([]byte, length)
	copy(rec, raw[:length])

	crc := Checksum(rec)
	if allowAuto && h.AutoCRC() {
		putChecksum(rec, crc)
	} else if h.CRC != crc {
		return nil, &ChecksumMismatchError{Expected: crc, Actual: h.CRC}
	}

	if !versions.Contains(h.Version) {
		return nil, &VersionIncompatibleError{Version: h.Version, Min: versions.Min, Max: versions.Max}
	}

	return rec, nil
}

// putString copies s into a NUL-terminated fixed-size field.
func putString(dst []byte, field, s string) error {
	if len(s) > len(dst)-1 {
		return &FieldError{Field: field, Reason: fmt.Sprintf("%d bytes exceed the limit of %d", len(s), len(dst)-1)}
	}
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		return &FieldError{Field: field, Reason: "contains a NUL byte"}
	}
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// getString reads a NUL-terminated fixed-size field.
func getString(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		return string(src[:i])
	}
	return string(src)
}
