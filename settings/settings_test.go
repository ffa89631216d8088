package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "otad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
listen: "0.0.0.0:6969"
retries: 3
config_partition: /tmp/cfg.bin
status_listen: ""
`)

	got, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Listen = "0.0.0.0:6969"
	want.Retries = 3
	want.ConfigPartition = "/tmp/cfg.bin"
	want.StatusListen = ""
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeFile(t, "retries: 3\n")
	t.Setenv("OTAD_RETRIES", "9")
	t.Setenv("OTAD_LOG_LEVEL", "debug")

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Retries)
	assert.Equal(t, "debug", got.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	if _, err := os.Stat("/etc/otad/otad.yaml"); err == nil {
		t.Skip("system settings file present")
	}

	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}

func TestValidate(t *testing.T) {
	s := Default()
	assert.Empty(t, s.Validate())

	s = &Settings{
		Listen:          "69",
		StatusListen:    "nowhere",
		TimeoutSeconds:  0,
		Retries:         -1,
		BusyWaitSeconds: -2,
		ProgressUnits:   0,
		LogLevel:        "loud",
	}
	errs := s.Validate()

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	joined := strings.Join(msgs, "\n")
	for _, field := range []string{"listen", "status_listen", "timeout_seconds", "retries", "busy_wait_seconds", "slot_size", "progress_units", "config_partition", "slots_dir", "log_level"} {
		assert.Contains(t, joined, field+" ")
	}

	if diff := cmp.Diff(Default().Listen, s.Listen); diff != "" {
		t.Errorf("listen not reset: %s", diff)
	}
	assert.Empty(t, s.StatusListen)
	assert.Empty(t, s.Validate(), "validated settings must be clean")
}
