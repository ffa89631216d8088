package update

import "path"

// FullImageName is the transfer name that addresses the whole configuration partition.
const FullImageName = "full.cfg"

// Kind is the type of transfer an engine is serving.
type Kind int

const (
	// KindNone means no transfer, or a name the engine does not serve
	KindNone Kind = iota

	// KindLoadFirmware streams a firmware image into the update slot
	KindLoadFirmware

	// KindLoadConfig stages a configuration record for commit
	KindLoadConfig

	// KindLoadFullImage stages a raw configuration partition image for commit
	KindLoadFullImage

	// KindSendConfig reads back the active configuration record
	KindSendConfig

	// KindSendFullImage reads back the raw configuration partition image
	KindSendFullImage
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindLoadFirmware:
		return "load-firmware"
	case KindLoadConfig:
		return "load-config"
	case KindLoadFullImage:
		return "load-full-image"
	case KindSendConfig:
		return "send-config"
	case KindSendFullImage:
		return "send-full-image"
	}
	return "unknown"
}

// Direction is the data flow of a transfer as seen from the device.
type Direction int

const (
	// Read sends data from the device to the peer
	Read Direction = iota

	// Write receives data from the peer into the device
	Write
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// Classify maps a transfer name and direction to the job kind serving it.
// It depends on nothing but its arguments.
//
//	full.cfg    write: KindLoadFullImage   read: KindSendFullImage
//	*.cfg       write: KindLoadConfig      read: KindSendConfig
//	*.bin       write: KindLoadFirmware    read: KindNone
//	other       KindNone
//
// Names are case-sensitive.
func Classify(name string, dir Direction) Kind {
	if name == FullImageName {
		if dir == Write {
			return KindLoadFullImage
		}
		return KindSendFullImage
	}

	switch path.Ext(name) {
	case ".bin":
		if dir == Write {
			return KindLoadFirmware
		}
	case ".cfg":
		if dir == Write {
			return KindLoadConfig
		}
		return KindSendConfig
	}
	return KindNone
}

// Job is a snapshot of the transfer an engine is serving.
type Job struct {
	// Kind is the job type, KindNone when idle
	Kind Kind

	// Name is the transfer name the job was opened with
	Name string

	// Cursor is the number of bytes transferred so far
	Cursor int64

	// Total is the size used for progress, zero when unknown
	Total int64

	// Slot is the firmware slot being written, empty for other kinds
	Slot string
}
