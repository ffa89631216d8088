package record

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the editable text form of a record.
// The crc, size and version fields are derived on encode and are not part of it.
type Document struct {
	SSID            string   `yaml:"ssid"`
	Password        string   `yaml:"password"`
	DisplayContrast uint8    `yaml:"display_contrast"`
	WiFiMode        WiFiMode `yaml:"wifi_mode"`
}

// Fields lists the keys accepted by Set, in document order.
var Fields = []string{"ssid", "password", "display_contrast", "wifi_mode"}

// MarshalYAML renders c as a YAML document.
func MarshalYAML(c *Config) ([]byte, error) {
	doc := Document{
		SSID:            c.SSID,
		Password:        c.Password,
		DisplayContrast: c.DisplayContrast,
		WiFiMode:        c.WiFiMode(),
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalYAML applies a YAML document on top of base and returns the result.
// Keys absent from the document keep the value from base, so several
// documents can be layered. Unknown keys are rejected.
func UnmarshalYAML(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Default()
	}
	c := *base

	doc := Document{
		SSID:            c.SSID,
		Password:        c.Password,
		DisplayContrast: c.DisplayContrast,
		WiFiMode:        c.WiFiMode(),
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	c.SSID = doc.SSID
	c.Password = doc.Password
	c.DisplayContrast = doc.DisplayContrast
	c.SetWiFiMode(doc.WiFiMode)
	return &c, nil
}

// Set assigns a single field from its text form, as given in key=value overrides.
// String values are taken verbatim; numeric values accept Go integer syntax.
func (c *Config) Set(key, value string) error {
	switch strings.TrimSpace(key) {
	case "ssid":
		if len(value) > SSIDSize-1 {
			return &FieldError{Field: "ssid", Reason: fmt.Sprintf("%d bytes exceed the limit of %d", len(value), SSIDSize-1)}
		}
		c.SSID = value
	case "password":
		if len(value) > PasswordSize-1 {
			return &FieldError{Field: "password", Reason: fmt.Sprintf("%d bytes exceed the limit of %d", len(value), PasswordSize-1)}
		}
		c.Password = value
	case "display_contrast":
		v, err := strconv.ParseUint(value, 0, 8)
		if err != nil {
			return &FieldError{Field: "display_contrast", Reason: err.Error()}
		}
		c.DisplayContrast = uint8(v)
	case "wifi_mode":
		var m WiFiMode
		if err := m.UnmarshalText([]byte(value)); err != nil {
			return err
		}
		c.SetWiFiMode(m)
	default:
		return &FieldError{Field: key, Reason: fmt.Sprintf("unknown field (valid fields are %s)", strings.Join(Fields, ", "))}
	}
	return nil
}
