package record

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	rec := append([]byte{0xDE, 0xAD, 0xBE, 0xEF}, []byte("123456789")...)

	// The CRC field itself is not covered
	assert.Equal(t, uint32(0xCBF43926), Checksum(rec))

	rec[0] = 0x00
	assert.Equal(t, uint32(0xCBF43926), Checksum(rec))
}

func TestEncodeSize(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		want    uint16
		wantErr bool
	}{
		{name: "minimum", length: 8, want: 1},
		{name: "v1 record", length: V1Size, want: 26},
		{name: "maximum", length: MaxSize, want: 0x3FF},
		{name: "too short", length: 4, wantErr: true},
		{name: "too long", length: MaxSize + 4, wantErr: true},
		{name: "unaligned", length: 110, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeSize(tt.length)
			if tt.wantErr {
				var sizeErr *SizeOutOfRangeError
				require.ErrorAs(t, err, &sizeErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			length, err := DecodeSize(got)
			require.NoError(t, err)
			assert.Equal(t, tt.length, length)
		})
	}
}

func TestDecodeSizeReservedBits(t *testing.T) {
	_, err := DecodeSize(0x0400 | 26)

	var sizeErr *SizeOutOfRangeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Contains(t, err.Error(), "reserved bits")
}

func TestEncodeDecode(t *testing.T) {
	cfg := &Config{
		Version:         CurrentVersion,
		SSID:            "workshop",
		Password:        "s3cret-pass",
		DisplayContrast: 0x7F,
	}
	cfg.SetWiFiMode(WiFiStation)

	rec, err := Encode(cfg, false)
	require.NoError(t, err)
	require.Len(t, rec, V1Size)

	assert.Equal(t, uint16(26), binary.LittleEndian.Uint16(rec[OffsetSize:]))
	assert.Equal(t, Checksum(rec), binary.LittleEndian.Uint32(rec[OffsetCRC:]))

	got, err := Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, WiFiStation, got.WiFiMode())
}

func TestEncodeAutoCRC(t *testing.T) {
	rec, err := Encode(Default(), true)
	require.NoError(t, err)
	assert.Equal(t, AutoCRC, binary.LittleEndian.Uint32(rec[OffsetCRC:]))
}

func TestEncodeFieldLimits(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "ssid too long", cfg: Config{SSID: string(make([]byte, SSIDSize))}},
		{name: "password too long", cfg: Config{Password: string(make([]byte, PasswordSize))}},
		{name: "ssid with nul", cfg: Config{SSID: "a\x00b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(&tt.cfg, false)
			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
		})
	}
}

func TestDecodeShortLayout(t *testing.T) {
	// An 8-byte record only carries the header; every field reads as zero
	rec := make([]byte, MinSize)
	binary.LittleEndian.PutUint16(rec[OffsetSize:], 1)
	rec[OffsetVersion] = 1

	got, err := Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, &Config{Version: 1}, got)
}

func TestPrepare(t *testing.T) {
	valid, err := Encode(Default(), false)
	require.NoError(t, err)

	auto, err := Encode(Default(), true)
	require.NoError(t, err)

	wrongCRC := append([]byte(nil), valid...)
	wrongCRC[OffsetCRC] ^= 0x01

	badVersion, err := Encode(&Config{Version: CurrentVersion + 1}, false)
	require.NoError(t, err)

	reserved := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(reserved[OffsetSize:], 0x8000|26)

	truncated := valid[:V1Size-4]

	headerOnly := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(headerOnly[OffsetSize:], 0)

	tests := []struct {
		name    string
		raw     []byte
		wantErr interface{}
	}{
		{name: "valid", raw: valid},
		{name: "auto crc", raw: auto},
		{name: "trailing fill is ignored", raw: append(append([]byte(nil), valid...), 0xFF, 0xFF, 0xFF, 0xFF)},
		{name: "wrong crc", raw: wrongCRC, wantErr: new(*ChecksumMismatchError)},
		{name: "newer version", raw: badVersion, wantErr: new(*VersionIncompatibleError)},
		{name: "reserved size bits", raw: reserved, wantErr: new(*SizeOutOfRangeError)},
		{name: "declared size exceeds data", raw: truncated, wantErr: new(*SizeOutOfRangeError)},
		{name: "declared size below minimum", raw: headerOnly, wantErr: new(*SizeOutOfRangeError)},
		{name: "shorter than header", raw: []byte{1, 2, 3}, wantErr: new(*SizeOutOfRangeError)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Prepare(tt.raw, Compatible)
			if tt.wantErr != nil {
				require.Error(t, err)
				require.True(t, errors.As(err, tt.wantErr), "unexpected error type %T: %v", err, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, rec, V1Size)
			assert.Equal(t, Checksum(rec), binary.LittleEndian.Uint32(rec[OffsetCRC:]))
		})
	}
}

func TestPrepareDoesNotModifyInput(t *testing.T) {
	auto, err := Encode(Default(), true)
	require.NoError(t, err)
	orig := append([]byte(nil), auto...)

	_, err = Prepare(auto, Compatible)
	require.NoError(t, err)
	assert.Equal(t, orig, auto)
}

func TestVerifyRejectsAutoCRC(t *testing.T) {
	auto, err := Encode(Default(), true)
	require.NoError(t, err)

	_, err = Verify(auto, Compatible)
	var crcErr *ChecksumMismatchError
	require.ErrorAs(t, err, &crcErr)
	assert.Equal(t, AutoCRC, crcErr.Actual)
}

func TestVersionRange(t *testing.T) {
	rec, err := Encode(&Config{Version: 3}, false)
	require.NoError(t, err)

	_, err = Verify(rec, Range{Min: 2, Max: 4})
	require.NoError(t, err)

	_, err = Verify(rec, Range{Min: 4, Max: 5})
	var verErr *VersionIncompatibleError
	require.ErrorAs(t, err, &verErr)
	assert.Equal(t, uint8(3), verErr.Version)
}
