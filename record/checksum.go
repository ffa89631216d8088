package record

import (
	"encoding/binary"
	"hash/crc32"
)

// Checksum computes the crc of an encoded record.
// The checksum covers every byte after the crc field up to the end of rec,
// using reflected CRC-32 (polynomial 0xEDB88320, init and final XOR 0xFFFFFFFF).
//
// rec must be exactly the record length; trailing partition bytes are not part of it.
func Checksum(rec []byte) uint32 {
	if len(rec) <= OffsetSize {
		return crc32.ChecksumIEEE(nil)
	}
	return crc32.ChecksumIEEE(rec[OffsetSize:])
}

// storedChecksum returns the crc field of an encoded record.
func storedChecksum(rec []byte) uint32 {
	return binary.LittleEndian.Uint32(rec[OffsetCRC:])
}

// putChecksum writes crc into the crc field of rec.
func putChecksum(rec []byte, crc uint32) {
	binary.LittleEndian.PutUint32(rec[OffsetCRC:], crc)
}
