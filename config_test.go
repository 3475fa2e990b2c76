package brickstream

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(3072), cfg.GPUBudgetMiB)
	assert.Equal(t, int64(8192), cfg.CPUBudgetMiB)
	assert.Equal(t, uint32(0), cfg.MinLOD)
	assert.Equal(t, uint32(9), cfg.MaxLOD)
	assert.Equal(t, 4.0, cfg.ScreenSpaceError)
	assert.Equal(t, uint32(0), cfg.SamplesPerRay)
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(`
GPUBudgetMiB = 512
MaxLOD = 6
SamplesPerRay = 1024
`))
	require.NoError(t, err)
	assert.Equal(t, int64(512), cfg.GPUBudgetMiB)
	assert.Equal(t, uint32(6), cfg.MaxLOD)
	assert.Equal(t, uint32(1024), cfg.SamplesPerRay)
	assert.Equal(t, int64(8192), cfg.CPUBudgetMiB, "unset keys keep their default")
}

func TestDecodeConfig_Errors(t *testing.T) {
	_, err := DecodeConfig(strings.NewReader(`NoSuchField = 1`))
	assert.ErrorContains(t, err, "NoSuchField")

	_, err = DecodeConfig(strings.NewReader("MinLOD = 5\nMaxLOD = 2\n"))
	var cfgErr *ErrInvalidConfig
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "MinLOD", cfgErr.Field)
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.CPUBudgetMiB = 1024
	want.MaxUploadsPerFrame = 32
	want.RetryBackoff = 250 * time.Millisecond

	var buf bytes.Buffer
	require.NoError(t, EncodeConfig(&buf, want))

	path := filepath.Join(t.TempDir(), "brickstream.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
