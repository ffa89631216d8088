package fwimage

import "errors"

// ErrInvalidImage is wrapped by every image verification failure.
var ErrInvalidImage = errors.New("invalid firmware image")

// Image represents a complete parsed application image.
type Image struct {
	// Header is the fixed image header
	Header Header

	// Segments contains the load segments in file order
	Segments []*Segment

	// Checksum is the stored XOR checksum byte
	Checksum byte

	// Hash is the appended SHA-256 digest, nil when the header does not announce one
	Hash []byte

	// Size is the number of bytes covered by the image, including checksum and hash
	Size int64
}

// Header is the fixed-size image header.
type Header struct {
	// SPIMode is the flash access mode the image expects
	SPIMode byte

	// SPISpeedSize packs the flash frequency (low nibble) and size (high nibble)
	SPISpeedSize byte

	// EntryAddr is the address execution starts at
	EntryAddr uint32

	// ChipID identifies the target chip
	ChipID uint16

	// HashAppended reports whether a SHA-256 digest follows the checksum
	HashAppended bool
}

// Segment is a single block of data loaded at a fixed address.
type Segment struct {
	// LoadAddr is the memory address the data is loaded to
	LoadAddr uint32

	// Data is the segment content
	Data []byte
}

// DataSize returns the total number of segment data bytes.
func (img *Image) DataSize() int {
	n := 0
	for _, s := range img.Segments {
		n += len(s.Data)
	}
	return n
}
