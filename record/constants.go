package record

// Version bounds of the configuration record format.
const (
	// CurrentVersion is the record version written by this firmware
	CurrentVersion = 1

	// LowestCompatibleVersion is the oldest record version this firmware still reads
	LowestCompatibleVersion = 1
)

// Size limits of the configuration partition and record.
const (
	// MaxSize is the size of the configuration partition in bytes.
	// It is also the upper bound of a single record.
	MaxSize = 4096

	// MinSize is the smallest encodable record: the 7 header bytes rounded up to 4
	MinSize = 8

	// HeaderSize is the size of the crc, size and version fields
	HeaderSize = 7

	// SizeAlignment is the granularity of record lengths
	SizeAlignment = 4

	// SizeFieldMask selects the usable bits of the size field
	SizeFieldMask = 0x03FF

	// SizeReservedMask selects the size field bits that must be zero
	SizeReservedMask = 0xFC00
)

// AutoCRC is the crc field value asking the device to compute the checksum itself.
const AutoCRC uint32 = 0xFFFFFFFF

// FillByte is the value of erased flash and of unwritten staging bytes.
const FillByte = 0xFF

// Field offsets of the V1 record layout.
const (
	OffsetCRC      = 0
	OffsetSize     = 4
	OffsetVersion  = 6
	OffsetSSID     = 7
	OffsetPassword = 40
	OffsetContrast = 104
	OffsetOptions  = 105
	OffsetReserved = 106

	// V1Size is the encoded length of a version 1 record
	V1Size = 108
)

// Field sizes of the V1 record layout, including the NUL terminator for strings.
const (
	SSIDSize     = 33
	PasswordSize = 64
)

// DefaultContrast is the display contrast of a fresh record.
const DefaultContrast = 0xCF

// OptionsWiFiMask selects the WiFi mode bits of the options byte.
const OptionsWiFiMask = 0x07
