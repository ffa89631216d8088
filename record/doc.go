// Package record implements the binary layout of the device configuration record.
//
// # Record Layout
//
// A record is a little-endian structure stored at the start of the 4096-byte
// configuration partition:
//
//	[CRC(4)][SIZE(2)][VERSION(1)][SSID(33)][PASSWORD(64)][CONTRAST(1)][OPTIONS(1)][RESERVED(2)]
//
// Where:
//   - CRC = CRC-32 over every byte after the CRC field up to the record length
//   - SIZE = record length / 4 - 1 (10 usable bits, bits 0xFC00 must be zero)
//   - VERSION = record format version
//   - SSID, PASSWORD = NUL-terminated strings
//   - OPTIONS = bitset, bits 0-2 hold the WiFi mode
//
// A record length is therefore always a multiple of 4 between 8 and 4096
// bytes. Decoding a size field yields (SIZE & 0x3FF) * 4 + 4.
//
// # Validation
//
// A record is valid when its size field is in range, the supplied bytes cover
// the declared length, the CRC matches and the version lies between
// LowestCompatibleVersion and CurrentVersion:
//
//	rec, err := record.Verify(raw, record.Compatible)
//
// Records received for commit may carry the AutoCRC sentinel (0xFFFFFFFF)
// in the CRC field; Prepare replaces it with the computed checksum:
//
//	rec, err := record.Prepare(raw, record.Compatible)
//
// # Errors
//
// Validation failures are reported as:
//   - SizeOutOfRangeError: size field out of range or not covered by the data
//   - ChecksumMismatchError: CRC field does not match the content
//   - VersionIncompatibleError: version outside the accepted range
//
// # Text Form
//
// MarshalYAML and UnmarshalYAML convert between Config and an editable YAML
// document. Config.Set applies key=value overrides on top of it.
package record
