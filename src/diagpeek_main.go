package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Offline record inspector: walk a capture file and show
 *		each record as a decoded summary plus a hex dump.
 *
 * Description:	Meant for poking at unfamiliar captures before turning
 *		the full pipeline loose on them.  Output goes straight
 *		to stdout; there is no KPI derivation and no network
 *		output here.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

func PeekMain() {
	var format = pflag.String("format", "", "Force capture format: qmdl, dlf or hdf.  Default: by extension.")
	var raw = pflag.Bool("raw", false, "Hex dump every record, not just the decoded ones.")
	var debug = pflag.BoolP("debug", "D", false, "Debug diagnostics.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - inspect the records of a DIAG capture file.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: diagpeek [options] capture.qmdl[.gz] ...\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help || pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	logging_init(*debug, false)
	text_color_init(true)

	var cfg = config_defaults()
	cfg.DumpFiles = pflag.Args()
	cfg.Format = *format
	cfg.Events = true

	var src, err = capture_source_open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diagpeek: %v\n", err)
		os.Exit(1)
	}
	defer src.close()

	var decoder = decoder_init(cfg)
	var count = 0

	for {
		var records, readErr = src.next()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			fmt.Fprintf(os.Stderr, "diagpeek: %v\n", readErr)
			os.Exit(1)
		}

		for _, rec := range records {
			count++
			var events = decode_record(decoder, rec)

			if len(events) == 0 && !*raw {
				continue
			}

			text_color_set(DT_COLOR_DEBUG)
			dt_printf("Record %d: %d bytes", count, len(rec.payload))
			if rec.log_code != 0 {
				dt_printf(", log 0x%04X", rec.log_code)
			}
			if !rec.crc_valid {
				dt_printf(", BAD CRC")
			}
			dt_printf("\n")
			text_color_set(DT_COLOR_INFO)

			for _, ev := range events {
				text_color_set(DT_COLOR_DECODED)
				dt_printf("  %s\n", ev.summary())
				text_color_set(DT_COLOR_INFO)
			}
			hex_dump(rec.payload)
		}
	}

	dt_printf("%d records.\n", count)
}
