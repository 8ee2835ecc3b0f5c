package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Runtime configuration, merged from three layers in
 *		increasing precedence: diagtap.yaml, DIAGTAP_* environment
 *		variables, command line flags.
 *
 * Description:	The YAML file is searched in $DIAGTAP_CONF, the current
 *		directory, ~/.config/diagtap/ and /usr/share/diagtap/
 *		unless an explicit path is given.  A missing file is
 *		not an error; a malformed one is.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

const DEFAULT_GSMTAP_PORT = 4729
const DEFAULT_BAUDRATE = 115200
const DEFAULT_UL_NDI_BIT = 6

type TapConfig struct {
	SerialDevice string   `yaml:"serial" env:"SERIAL"`
	Baudrate     int      `yaml:"baudrate" env:"BAUDRATE"`
	DumpFiles    []string `yaml:"dump" env:"DUMP" envSeparator:","`
	Format       string   `yaml:"format" env:"FORMAT"`

	KPI            bool    `yaml:"kpi" env:"KPI"`
	Events         bool    `yaml:"events" env:"EVENTS"`
	DLBandwidthMHz float64 `yaml:"dl_bandwidth" env:"DL_BANDWIDTH"`
	ULNDIBit       int     `yaml:"ul_ndi_bit" env:"UL_NDI_BIT"`
	InvertULNDI    bool    `yaml:"invert_ul_ndi" env:"INVERT_UL_NDI"`
	InvertULMCS    bool    `yaml:"invert_ul_mcs" env:"INVERT_UL_MCS"`
	InvertTXPower  bool    `yaml:"invert_tx_power" env:"INVERT_TX_POWER"`
	NoULRetransmit bool    `yaml:"no_ul_retransmit" env:"NO_UL_RETRANSMIT"`

	GsmtapHost  string   `yaml:"gsmtap_host" env:"GSMTAP_HOST"`
	GsmtapPort  int      `yaml:"gsmtap_port" env:"GSMTAP_PORT"`
	NoGsmtap    bool     `yaml:"no_gsmtap" env:"NO_GSMTAP"`
	JSONUDPPort int      `yaml:"json_udp_port" env:"JSON_UDP_PORT"`
	Layers      []string `yaml:"layers" env:"LAYERS" envSeparator:","`
	Announce    bool     `yaml:"announce" env:"ANNOUNCE"`

	DisableCRCCheck bool `yaml:"disable_crc_check" env:"DISABLE_CRC_CHECK"`
	DropCRCFailures bool `yaml:"drop_crc_failures" env:"DROP_CRC_FAILURES"`

	EventsFile      string `yaml:"events_file" env:"EVENTS_FILE"`
	TimestampFormat string `yaml:"timestamp_format" env:"TIMESTAMP_FORMAT"`

	Debug bool `yaml:"debug" env:"DEBUG"`
	Quiet bool `yaml:"quiet" env:"QUIET"`
}

func config_defaults() *TapConfig {
	return &TapConfig{
		Baudrate:   DEFAULT_BAUDRATE,
		ULNDIBit:   DEFAULT_UL_NDI_BIT,
		GsmtapHost: "127.0.0.1",
		GsmtapPort: DEFAULT_GSMTAP_PORT,
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        config_load
 *
 * Purpose:     Build the configuration from file and environment.
 *		Flag values are layered on top by the caller, which
 *		owns the flag set.
 *
 * Inputs:	path	- Explicit YAML path, or "" for the search
 *			  locations.
 *
 *-----------------------------------------------------------------*/

func config_load(path string) (*TapConfig, error) {
	var cfg = config_defaults()

	var search []string
	if path != "" {
		search = []string{path}
	} else {
		if dir := os.Getenv("DIAGTAP_CONF"); dir != "" {
			search = append(search, filepath.Join(dir, "diagtap.yaml"))
		}
		search = append(search, "diagtap.yaml")
		if home, err := os.UserHomeDir(); err == nil {
			search = append(search, filepath.Join(home, ".config", "diagtap", "diagtap.yaml"))
		}
		search = append(search, "/usr/share/diagtap/diagtap.yaml")
	}

	for _, candidate := range search {
		var raw, err = os.ReadFile(candidate)
		if err != nil {
			if path != "" {
				return nil, fmt.Errorf("cannot read config %s: %w", candidate, err)
			}
			continue
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("malformed config %s: %w", candidate, err)
		}
		diag_log.Debug("loaded config", "path", candidate)
		break
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "DIAGTAP_"}); err != nil {
		return nil, fmt.Errorf("environment config: %w", err)
	}
	return cfg, nil
}

func (cfg *TapConfig) validate() error {
	if cfg.DLBandwidthMHz != 0 {
		if _, ok := lte_mhz_to_prb[cfg.DLBandwidthMHz]; !ok {
			return fmt.Errorf("dl bandwidth %v MHz: must be one of 1.4, 3, 5, 10, 15, 20", cfg.DLBandwidthMHz)
		}
	}
	if cfg.ULNDIBit < 0 || cfg.ULNDIBit > 15 {
		return fmt.Errorf("ul ndi bit %d: must be 0-15", cfg.ULNDIBit)
	}
	if cfg.GsmtapPort < 1 || cfg.GsmtapPort > 65535 {
		return fmt.Errorf("gsmtap port %d: must be 1-65535", cfg.GsmtapPort)
	}
	if cfg.JSONUDPPort != 0 && (cfg.JSONUDPPort < 1 || cfg.JSONUDPPort > 65535) {
		return fmt.Errorf("json udp port %d: must be 1-65535", cfg.JSONUDPPort)
	}
	switch cfg.Format {
	case "", "qmdl", "dlf", "hdf":
	default:
		return fmt.Errorf("capture format %q: must be qmdl, dlf or hdf", cfg.Format)
	}
	for _, layer := range cfg.Layers {
		switch layer {
		case "rrc", "nas", "mac", "events":
		default:
			return fmt.Errorf("gsmtap layer %q: must be rrc, nas, mac or events", layer)
		}
	}
	if cfg.SerialDevice != "" && len(cfg.DumpFiles) > 0 {
		return fmt.Errorf("serial device and dump files are mutually exclusive")
	}
	return nil
}

// layer_enabled reports whether a GSMTAP layer was selected.  With no
// explicit selection the default is rrc+nas, widened to mac+events
// when KPI mode is on.
func (cfg *TapConfig) layer_enabled(layer string) bool {
	if len(cfg.Layers) == 0 {
		switch layer {
		case "rrc", "nas":
			return true
		case "mac", "events":
			return cfg.KPI
		}
		return false
	}
	for _, l := range cfg.Layers {
		if l == layer {
			return true
		}
	}
	return false
}
