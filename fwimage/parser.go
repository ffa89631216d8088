package fwimage

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"os"
)

// Constants for the application image format.
const (
	// Magic is the first byte of every image
	Magic = 0xE9

	// HeaderSize is the size of the fixed image header in bytes
	HeaderSize = 24

	// SegmentHeaderSize is the size of the load address and length fields
	SegmentHeaderSize = 8

	// MaxSegments is the largest segment count the loader accepts
	MaxSegments = 16

	// MaxSegmentSize bounds a single segment so a corrupt length cannot exhaust memory
	MaxSegmentSize = 16 << 20

	// ChecksumSeed is the initial value of the XOR checksum
	ChecksumSeed = 0xEF

	// ChecksumAlignment places the checksum byte on the last byte of a 16-byte block
	ChecksumAlignment = 16

	// HashSize is the size of the appended SHA-256 digest
	HashSize = sha256.Size
)

// Parse parses and verifies an image from the given file path.
//
// Example:
//
//	img, err := fwimage.Parse("firmware.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Entry: 0x%08X\n", img.Header.EntryAddr)
func Parse(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f)
}

// ParseBytes parses and verifies an image held in memory.
func ParseBytes(b []byte) (*Image, error) {
	return ParseReader(bytes.NewReader(b))
}

// ParseReader parses and verifies an image from any io.Reader.
// The reader is consumed up to the end of the image; trailing bytes are not read.
func ParseReader(r io.Reader) (*Image, error) {
	p := &parser{r: bufio.NewReader(r), h: sha256.New()}
	return p.parse()
}

// parser streams an image while tracking its length and running digest.
type parser struct {
	r   io.Reader
	h   hash.Hash
	pos int64
}

func (p *parser) read(buf []byte, what string) error {
	n, err := io.ReadFull(p.r, buf)
	p.pos += int64(n)
	p.h.Write(buf[:n])
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: truncated %s at offset %d", ErrInvalidImage, what, p.pos)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", what, err)
	}
	return nil
}

func (p *parser) parse() (*Image, error) {
	var raw [HeaderSize]byte
	if err := p.read(raw[:], "header"); err != nil {
		return nil, err
	}

	count, hdr, err := parseHeader(raw[:])
	if err != nil {
		return nil, err
	}

	img := &Image{
		Header:   hdr,
		Segments: make([]*Segment, 0, count),
	}

	sum := byte(ChecksumSeed)
	var segHdr [SegmentHeaderSize]byte
	for i := 0; i < count; i++ {
		if err := p.read(segHdr[:], fmt.Sprintf("segment %d header", i)); err != nil {
			return nil, err
		}
		addr := binary.LittleEndian.Uint32(segHdr[0:4])
		length := binary.LittleEndian.Uint32(segHdr[4:8])
		if length > MaxSegmentSize {
			return nil, fmt.Errorf("%w: segment %d length %d exceeds %d", ErrInvalidImage, i, length, MaxSegmentSize)
		}

		data := make([]byte, length)
		if err := p.read(data, fmt.Sprintf("segment %d data", i)); err != nil {
			return nil, err
		}
		for _, b := range data {
			sum ^= b
		}

		img.Segments = append(img.Segments, &Segment{LoadAddr: addr, Data: data})
	}

	pad := make([]byte, paddingLen(p.pos))
	if err := p.read(pad, "padding"); err != nil {
		return nil, err
	}

	var cs [1]byte
	if err := p.read(cs[:], "checksum"); err != nil {
		return nil, err
	}
	img.Checksum = cs[0]
	if img.Checksum != sum {
		return nil, fmt.Errorf("%w: checksum mismatch: got 0x%02X, expected 0x%02X", ErrInvalidImage, img.Checksum, sum)
	}

	if hdr.HashAppended {
		digest := p.h.Sum(nil)
		img.Hash = make([]byte, HashSize)
		if err := p.read(img.Hash, "hash"); err != nil {
			return nil, err
		}
		if !bytes.Equal(img.Hash, digest) {
			return nil, fmt.Errorf("%w: sha256 mismatch", ErrInvalidImage)
		}
	}

	img.Size = p.pos
	return img, nil
}

// parseHeader decodes the fixed image header and returns the segment count.
func parseHeader(raw []byte) (int, Header, error) {
	if raw[0] != Magic {
		return 0, Header{}, fmt.Errorf("%w: bad magic 0x%02X, expected 0x%02X", ErrInvalidImage, raw[0], Magic)
	}

	count := int(raw[1])
	if count == 0 {
		return 0, Header{}, fmt.Errorf("%w: no segments", ErrInvalidImage)
	}
	if count > MaxSegments {
		return 0, Header{}, fmt.Errorf("%w: %d segments exceed the limit of %d", ErrInvalidImage, count, MaxSegments)
	}

	return count, Header{
		SPIMode:      raw[2],
		SPISpeedSize: raw[3],
		EntryAddr:    binary.LittleEndian.Uint32(raw[4:8]),
		ChipID:       binary.LittleEndian.Uint16(raw[12:14]),
		HashAppended: raw[23] != 0,
	}, nil
}

// paddingLen returns the number of zero bytes placed before the checksum
// when the image body ends at pos.
func paddingLen(pos int64) int {
	return int((ChecksumAlignment - 1 - pos%ChecksumAlignment + ChecksumAlignment) % ChecksumAlignment)
}
