package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/moffa90/go-tftpota/record"
)

// isText reports whether path names a YAML configuration file.
func isText(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// splitOverrides separates key=value arguments from file arguments.
func splitOverrides(args []string) (files []string, overrides []string) {
	for _, arg := range args {
		if strings.Contains(arg, "=") {
			overrides = append(overrides, arg)
		} else {
			files = append(files, arg)
		}
	}
	return files, overrides
}

// decodeBinary reads a binary record. Unless force is set the checksum and
// version must be valid.
func decodeBinary(data []byte, force bool) (*record.Config, error) {
	if !force {
		rec, err := record.Verify(data, record.Compatible)
		if err != nil {
			return nil, err
		}
		data = rec
	}
	return record.Decode(data)
}

// loadConfig layers the given files, in order, on top of the defaults and
// applies the key=value overrides last.
func loadConfig(files, overrides []string, force bool) (*record.Config, error) {
	cfg := record.Default()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if isText(path) {
			cfg, err = record.UnmarshalYAML(data, cfg)
		} else {
			cfg, err = decodeBinary(data, force)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	for _, kv := range overrides {
		key, value, _ := strings.Cut(kv, "=")
		if err := cfg.Set(key, value); err != nil {
			return nil, fmt.Errorf("override %q: %w", kv, err)
		}
	}
	return cfg, nil
}

// render encodes cfg for path: YAML for text files, a binary record otherwise.
func render(cfg *record.Config, path string, autoCRC bool) ([]byte, error) {
	if isText(path) || path == "-" {
		return record.MarshalYAML(cfg)
	}
	return record.Encode(cfg, autoCRC)
}

// writeOutput writes data to path, or to stdout for "-".
func writeOutput(path string, data []byte, stdout func([]byte) error) error {
	if path == "-" {
		return stdout(data)
	}
	return os.WriteFile(path, data, 0o600)
}
