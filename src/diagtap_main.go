package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Command line front end for the diagtap decoder.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

func TapMain() {
	var serial = pflag.StringP("serial", "s", "", "Serial device path for live capture, e.g. /dev/ttyUSB0.")
	var baudrate = pflag.IntP("baudrate", "b", DEFAULT_BAUDRATE, "Serial baudrate.")
	var dump = pflag.StringSliceP("dump", "d", nil, "Read capture file(s) instead of a device.")
	var format = pflag.String("format", "", "Force capture format: qmdl, dlf or hdf.  Default: by extension.")

	var kpi = pflag.Bool("kpi", false, "Enable KPI derivation and emission (DL/UL MCS, RACH, throughput, etc).")
	var dlBandwidth = pflag.Float64("dl-bandwidth", 0, "DL bandwidth hint for MCS lookup: 1.4, 3, 5, 10, 15 or 20 MHz.")
	var ulNdiBit = pflag.Int("ul-ndi-bit", DEFAULT_UL_NDI_BIT, "NDI bit index in the UL grant, 0-15.")
	var invertUlNdi = pflag.Bool("invert-ul-ndi", false, "Invert the NDI toggle interpretation.")
	var invertUlMcs = pflag.Bool("invert-ul-mcs", false, "Report 28-MCS for uplink.  Use when UL MCS drops as path loss improves.")
	var invertTxPower = pflag.Bool("invert-tx-power", false, "Inverted headroom-to-TX-power transform.")
	var noUlRetransmit = pflag.Bool("no-ul-retransmit", false, "Omit the retransmission percentage from throughput lines.")

	var gsmtapPort = pflag.IntP("port", "P", DEFAULT_GSMTAP_PORT, "GSMTAP UDP port.")
	var gsmtapHost = pflag.StringP("hostname", "H", "127.0.0.1", "GSMTAP target host.")
	var noGsmtap = pflag.Bool("no-gsmtap", false, "Disable GSMTAP output.")
	var jsonUdpPort = pflag.Int("json-udp-port", 0, "Send one JSON object per emission to 127.0.0.1:N.")
	var layers = pflag.StringSliceP("layer", "L", nil, "GSMTAP layers: rrc, nas, mac, events.  Default rrc,nas; --kpi adds mac,events.")
	var announce = pflag.Bool("announce", false, "Announce the JSON endpoint over mDNS.")

	var disableCrcCheck = pflag.Bool("disable-crc-check", false, "Skip frame CRC validation.")
	var dropCrcFailures = pflag.Bool("drop-crc-failures", false, "Drop records failing CRC before decode.")
	var events = pflag.Bool("events", false, "Decode event reports (implied by --kpi).")
	var configFile = pflag.StringP("config-file", "c", "", "YAML configuration file.  Overrides the search locations.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede output lines with a 'strftime' format time stamp.")
	var debug = pflag.BoolP("debug", "D", false, "Debug diagnostics.")
	var quiet = pflag.BoolP("quiet", "q", false, "Errors only.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Qualcomm DIAG stream decoder with LTE KPI derivation and GSMTAP output.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: diagtap [options]\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Give either --serial for a live device or --dump for recorded captures.\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	var cfg, cfgErr = config_load(*configFile)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "diagtap: %v\n", cfgErr)
		os.Exit(1)
	}

	// Flags given on the command line win over file and environment.
	pflag.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "serial":
			cfg.SerialDevice = *serial
		case "baudrate":
			cfg.Baudrate = *baudrate
		case "dump":
			cfg.DumpFiles = *dump
		case "format":
			cfg.Format = *format
		case "kpi":
			cfg.KPI = *kpi
		case "dl-bandwidth":
			cfg.DLBandwidthMHz = *dlBandwidth
		case "ul-ndi-bit":
			cfg.ULNDIBit = *ulNdiBit
		case "invert-ul-ndi":
			cfg.InvertULNDI = *invertUlNdi
		case "invert-ul-mcs":
			cfg.InvertULMCS = *invertUlMcs
		case "invert-tx-power":
			cfg.InvertTXPower = *invertTxPower
		case "no-ul-retransmit":
			cfg.NoULRetransmit = *noUlRetransmit
		case "port":
			cfg.GsmtapPort = *gsmtapPort
		case "hostname":
			cfg.GsmtapHost = *gsmtapHost
		case "no-gsmtap":
			cfg.NoGsmtap = *noGsmtap
		case "json-udp-port":
			cfg.JSONUDPPort = *jsonUdpPort
		case "layer":
			cfg.Layers = *layers
		case "announce":
			cfg.Announce = *announce
		case "disable-crc-check":
			cfg.DisableCRCCheck = *disableCrcCheck
		case "drop-crc-failures":
			cfg.DropCRCFailures = *dropCrcFailures
		case "events":
			cfg.Events = *events
		case "timestamp-format":
			cfg.TimestampFormat = *timestampFormat
		case "debug":
			cfg.Debug = *debug
		case "quiet":
			cfg.Quiet = *quiet
		}
	})

	text_color_init(true)

	if err := Tap(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "diagtap: %v\n", err)
		os.Exit(1)
	}
}
