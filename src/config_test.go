package diagtap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	var cfg = config_defaults()
	assert.Equal(t, 115200, cfg.Baudrate)
	assert.Equal(t, 6, cfg.ULNDIBit)
	assert.Equal(t, "127.0.0.1", cfg.GsmtapHost)
	assert.Equal(t, 4729, cfg.GsmtapPort)
	assert.NoError(t, cfg.validate())
}

func TestConfigValidate(t *testing.T) {
	var cases = []struct {
		name   string
		mutate func(*TapConfig)
	}{
		{"odd bandwidth", func(c *TapConfig) { c.DLBandwidthMHz = 7 }},
		{"ndi bit range", func(c *TapConfig) { c.ULNDIBit = 16 }},
		{"gsmtap port", func(c *TapConfig) { c.GsmtapPort = 0 }},
		{"json port", func(c *TapConfig) { c.JSONUDPPort = 70000 }},
		{"format", func(c *TapConfig) { c.Format = "pcap" }},
		{"layer", func(c *TapConfig) { c.Layers = []string{"rrc", "phy"} }},
		{"both inputs", func(c *TapConfig) {
			c.SerialDevice = "/dev/ttyUSB0"
			c.DumpFiles = []string{"modem.qmdl"}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg = config_defaults()
			tc.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}

	var cfg = config_defaults()
	cfg.DLBandwidthMHz = 1.4
	cfg.Format = "dlf"
	cfg.Layers = []string{"rrc", "nas", "mac", "events"}
	cfg.JSONUDPPort = 9000
	assert.NoError(t, cfg.validate())
}

func TestLayerDefaults(t *testing.T) {
	var cfg = config_defaults()
	assert.True(t, cfg.layer_enabled("rrc"))
	assert.True(t, cfg.layer_enabled("nas"))
	assert.False(t, cfg.layer_enabled("mac"))
	assert.False(t, cfg.layer_enabled("events"))

	// KPI mode widens the default selection.
	cfg.KPI = true
	assert.True(t, cfg.layer_enabled("mac"))
	assert.True(t, cfg.layer_enabled("events"))

	// An explicit selection is exact.
	cfg.Layers = []string{"mac"}
	assert.True(t, cfg.layer_enabled("mac"))
	assert.False(t, cfg.layer_enabled("rrc"))
}

func TestConfigLoadYamlAndEnv(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "diagtap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"serial: /dev/ttyUSB0\nbaudrate: 921600\ndl_bandwidth: 10\nlayers: [rrc, mac]\n"), 0o644))

	var cfg, err = config_load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialDevice)
	assert.Equal(t, 921600, cfg.Baudrate)
	assert.InDelta(t, 10.0, cfg.DLBandwidthMHz, 0.001)
	assert.Equal(t, []string{"rrc", "mac"}, cfg.Layers)

	// Environment overrides the file.
	t.Setenv("DIAGTAP_KPI", "true")
	t.Setenv("DIAGTAP_BAUDRATE", "230400")
	cfg, err = config_load(path)
	require.NoError(t, err)
	assert.True(t, cfg.KPI)
	assert.Equal(t, 230400, cfg.Baudrate)
}

func TestConfigLoadMissingExplicitFile(t *testing.T) {
	var _, err = config_load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigLoadMalformed(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "diagtap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baudrate: [not a number\n"), 0o644))
	var _, err = config_load(path)
	assert.Error(t, err)
}
