package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roffe/gopcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "XM PCR VCP", cfg.Device.Adapter)
	assert.Equal(t, "*", cfg.Device.Port)
	assert.Equal(t, gopcr.DefaultBaudrate, cfg.Device.Baudrate)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "gopcr.log", cfg.Logging.File.Filename)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.Equal(t, gopcr.DefaultConfig(), cfg.ToEngine())
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "radio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device:
  adapter: Virtual
  port: /dev/ttyUSB1
engine:
  responseTimeout: 250ms
  commandRate: 10
logging:
  level: debug
  format: json
ui:
  top: 40
  selected: 47
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Virtual", cfg.Device.Adapter)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Device.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.ResponseTimeout)
	assert.Equal(t, 10, cfg.Engine.CommandRate)
	assert.Equal(t, gopcr.DefaultConfig().InitTimeout, cfg.Engine.InitTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 40, cfg.UI.Top)
	assert.Equal(t, 47, cfg.UI.Selected)
}

func TestLoadSearchPath(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gopcr.yaml"), []byte("device:\n  baudrate: 19200\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 19200, cfg.Device.Baudrate)
}

func TestLoadEnv(t *testing.T) {
	isolate(t)
	t.Setenv("GOPCR_DEVICE_PORT", "COM3")
	t.Setenv("GOPCR_ENGINE_TICKINTERVAL", "25ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "COM3", cfg.Device.Port)
	assert.Equal(t, 25*time.Millisecond, cfg.ToEngine().TickInterval)
}
