package diagtap

import (
	"os"

	"github.com/charmbracelet/log"
)

// Diagnostics only.  Product output goes to stdout via dt_printf.
var diag_log = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "diagtap",
})

func logging_init(debug bool, quiet bool) {
	switch {
	case debug:
		diag_log.SetLevel(log.DebugLevel)
	case quiet:
		diag_log.SetLevel(log.ErrorLevel)
	default:
		diag_log.SetLevel(log.InfoLevel)
	}
}
