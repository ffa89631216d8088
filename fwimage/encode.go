package fwimage

import (
	"crypto/sha256"
	"encoding/binary"
)

// Encode serializes img into its binary form.
// The segment count, padding, checksum and optional hash are derived from
// the segments; the Checksum, Hash and Size fields of img are ignored.
func Encode(img *Image) []byte {
	out := make([]byte, HeaderSize, HeaderSize+img.DataSize()+len(img.Segments)*SegmentHeaderSize+ChecksumAlignment+HashSize)

	out[0] = Magic
	out[1] = byte(len(img.Segments))
	out[2] = img.Header.SPIMode
	out[3] = img.Header.SPISpeedSize
	binary.LittleEndian.PutUint32(out[4:8], img.Header.EntryAddr)
	binary.LittleEndian.PutUint16(out[12:14], img.Header.ChipID)
	if img.Header.HashAppended {
		out[23] = 1
	}

	sum := byte(ChecksumSeed)
	for _, s := range img.Segments {
		out = binary.LittleEndian.AppendUint32(out, s.LoadAddr)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s.Data)))
		out = append(out, s.Data...)
		for _, b := range s.Data {
			sum ^= b
		}
	}

	out = append(out, make([]byte, paddingLen(int64(len(out))))...)
	out = append(out, sum)

	if img.Header.HashAppended {
		digest := sha256.Sum256(out)
		out = append(out, digest[:]...)
	}

	return out
}
