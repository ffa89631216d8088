package record

import (
	"fmt"
	"strconv"
	"strings"
)

// WiFiMode selects how the device brings up its radio.
type WiFiMode uint8

// WiFi modes stored in the low bits of the options byte.
const (
	// WiFiOff turns the radio off
	WiFiOff WiFiMode = 0x00

	// WiFiAccessPoint runs the device as an access point
	WiFiAccessPoint WiFiMode = 0x01

	// WiFiStation connects the device to the configured network
	WiFiStation WiFiMode = 0x02

	// WiFiBoth runs access point and station at once
	WiFiBoth WiFiMode = 0x03

	// WiFiAuto runs station mode when credentials are set, access point otherwise
	WiFiAuto WiFiMode = 0x04
)

var wifiModeNames = map[WiFiMode]string{
	WiFiOff:         "off",
	WiFiAccessPoint: "ap",
	WiFiStation:     "sta",
	WiFiBoth:        "both",
	WiFiAuto:        "auto",
}

func (m WiFiMode) String() string {
	if name, ok := wifiModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("reserved(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
// Reserved modes are written as their decimal value.
func (m WiFiMode) MarshalText() ([]byte, error) {
	if m > OptionsWiFiMask {
		return nil, &FieldError{Field: "wifi_mode", Reason: fmt.Sprintf("value %d does not fit the mode bits", uint8(m))}
	}
	if name, ok := wifiModeNames[m]; ok {
		return []byte(name), nil
	}
	return []byte(strconv.Itoa(int(m))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// It accepts a mode name or a numeric value between 0 and 7.
func (m *WiFiMode) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for mode, name := range wifiModeNames {
		if name == s {
			*m = mode
			return nil
		}
	}
	if v, err := strconv.ParseUint(s, 0, 8); err == nil && v <= OptionsWiFiMask {
		*m = WiFiMode(v)
		return nil
	}
	return &FieldError{Field: "wifi_mode", Reason: fmt.Sprintf("unknown mode %q (want off, ap, sta, both, auto or 0-7)", s)}
}

// Config is the decoded content of a configuration record.
type Config struct {
	// Version is the record format version
	Version uint8

	// SSID is the network name, at most SSIDSize-1 bytes
	SSID string

	// Password is the network secret, at most PasswordSize-1 bytes
	Password string

	// DisplayContrast is the contrast level of the status display
	DisplayContrast uint8

	// Options is the raw options bitset; bits outside OptionsWiFiMask are kept as-is
	Options uint8
}

// Default returns the configuration of a freshly provisioned device.
func Default() *Config {
	return &Config{
		Version:         CurrentVersion,
		DisplayContrast: DefaultContrast,
		Options:         uint8(WiFiAuto),
	}
}

// WiFiMode returns the WiFi mode bits of the options byte.
func (c *Config) WiFiMode() WiFiMode {
	return WiFiMode(c.Options & OptionsWiFiMask)
}

// SetWiFiMode replaces the WiFi mode bits of the options byte.
func (c *Config) SetWiFiMode(m WiFiMode) {
	c.Options = (c.Options &^ OptionsWiFiMask) | (uint8(m) & OptionsWiFiMask)
}

// Header holds the fixed fields at the start of every record.
type Header struct {
	CRC       uint32
	SizeField uint16
	Version   uint8
}

// Length returns the record length in bytes encoded by the size field.
// Reserved bits are ignored; use DecodeSize to reject them.
func (h Header) Length() int {
	return int(h.SizeField&SizeFieldMask)*SizeAlignment + SizeAlignment
}

// AutoCRC reports whether the crc field carries the compute-for-me sentinel.
func (h Header) AutoCRC() bool {
	return h.CRC == AutoCRC
}

// Range is an inclusive range of accepted record versions.
type Range struct {
	Min uint8
	Max uint8
}

// Compatible is the version range accepted by this firmware.
var Compatible = Range{Min: LowestCompatibleVersion, Max: CurrentVersion}

// Contains reports whether v lies in the range.
func (r Range) Contains(v uint8) bool {
	return v >= r.Min && v <= r.Max
}
