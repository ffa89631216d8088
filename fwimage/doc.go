// Package fwimage parses and verifies application firmware images.
//
// # Image Format
//
// An image starts with a 24-byte header followed by up to 16 segments:
//
//	[MAGIC(1)][SEGMENTS(1)][SPI_MODE(1)][SPI_SPEED_SIZE(1)][ENTRY(4)]
//	[WP_PIN(1)][SPI_DRV(3)][CHIP_ID(2)][MIN_REV(1)][REV_RANGE(4)][RESERVED(4)][HASH_APPENDED(1)]
//
// Each segment is its load address and length (little-endian uint32 each)
// followed by the segment data:
//
//	[LOAD_ADDR(4)][LENGTH(4)][DATA(LENGTH)]
//
// After the last segment the image is zero-padded until its length modulo 16
// is 15, then one checksum byte follows. The checksum is 0xEF XORed with
// every segment data byte.
//
// When HASH_APPENDED is non-zero a SHA-256 digest of every preceding byte
// (header through checksum) closes the image.
//
// # Usage
//
// Verify an image on disk:
//
//	img, err := fwimage.Parse("firmware.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Entry: 0x%08X\n", img.Header.EntryAddr)
//	fmt.Printf("Segments: %d\n", len(img.Segments))
//
// Build an image, mostly useful in tests:
//
//	raw := fwimage.Encode(&fwimage.Image{
//	    Header:   fwimage.Header{EntryAddr: 0x40080000, HashAppended: true},
//	    Segments: []*fwimage.Segment{{LoadAddr: 0x3F400020, Data: code}},
//	})
//
// # Error Handling
//
// Every verification failure wraps ErrInvalidImage, so callers can tell a
// corrupt image apart from an I/O error with errors.Is.
package fwimage
