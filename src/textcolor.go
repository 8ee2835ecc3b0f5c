package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Colored console output for the product lines.
 *
 * Description:	KPI and decode lines go to stdout through dt_printf;
 *		diagnostics go to stderr through the structured logger.
 *		Keeping the two streams separate lets the JSON-minded
 *		pipe stdout somewhere without the chatter.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
)

type dt_color_e int

const (
	DT_COLOR_INFO    dt_color_e = iota /* default */
	DT_COLOR_ERROR                     /* red */
	DT_COLOR_REC                       /* green */
	DT_COLOR_DECODED                   /* blue */
	DT_COLOR_DEBUG                     /* dark green */
)

var dt_color_codes = map[dt_color_e]string{
	DT_COLOR_INFO:    "\x1b[0m",
	DT_COLOR_ERROR:   "\x1b[1;31m",
	DT_COLOR_REC:     "\x1b[32m",
	DT_COLOR_DECODED: "\x1b[34m",
	DT_COLOR_DEBUG:   "\x1b[2;32m",
}

var _text_color_enabled bool

func text_color_init(enabled bool) {
	_text_color_enabled = enabled
}

func text_color_set(c dt_color_e) {
	if !_text_color_enabled {
		return
	}
	fmt.Print(dt_color_codes[c])
}

func dt_printf(format string, a ...any) (int, error) {
	return fmt.Printf(format, a...)
}
