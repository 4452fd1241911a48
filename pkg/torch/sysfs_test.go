package torch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBrightness(t *testing.T, dir string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(dir, "brightness"))
	require.NoError(t, err)
	return string(raw)
}

func TestSysfsLEDToggles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brightness"), []byte("0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "max_brightness"), []byte("255\n"), 0o644))

	led := NewSysfsLED(dir)
	require.True(t, led.IsTorchAvailable())

	require.NoError(t, led.SetTorch(context.Background(), true))
	assert.Equal(t, "255", readBrightness(t, dir))

	require.NoError(t, led.SetTorch(context.Background(), false))
	assert.Equal(t, "0", readBrightness(t, dir))
}

func TestSysfsLEDWithoutMaxBrightness(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brightness"), []byte("0"), 0o644))

	led := NewSysfsLED(dir)
	require.NoError(t, led.SetTorch(context.Background(), true))
	assert.Equal(t, "1", readBrightness(t, dir))
}

func TestSysfsLEDUnavailable(t *testing.T) {
	assert.False(t, NewSysfsLED("").IsTorchAvailable())
	assert.False(t, NewSysfsLED(t.TempDir()).IsTorchAvailable())
	assert.False(t, Noop{}.IsTorchAvailable())
	assert.ErrorIs(t, Noop{}.SetTorch(context.Background(), true), ErrUnavailable)
}
