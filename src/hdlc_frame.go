package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Reassemble the HDLC-like DIAG framing used by the
 *		Qualcomm diagnostic interface.
 *
 * Description: Briefly, a frame is composed of
 *
 *			* Contents - with special escape sequences so a
 *			  0x7e byte in the data is not taken as end of
 *			  frame.
 *			* CRC-16/X-25 trailer (also escaped).
 *			* CONTROL (0x7e)
 *
 *		Unlike KISS there is no leading delimiter: a frame runs
 *		from the previous 0x7e (or stream start) to the next one.
 *		0x7d is the escape character; the following byte is
 *		XORed with 0x20.
 *
 *		Records can be split across arbitrary read boundaries,
 *		so bytes are buffered until the trailing 0x7e arrives.
 *		A frame growing beyond any sane DIAG record length is
 *		treated as stream corruption: it is discarded and
 *		collection restarts at the next delimiter.
 *
 *---------------------------------------------------------------*/

import (
	"time"
)

const DIAG_CONTROL = 0x7E
const DIAG_ESCAPE = 0x7D
const DIAG_ESCAPE_XOR = 0x20

const MAX_DIAG_FRAME = 4096 /* Unescaped payload bytes.  Vendor tools use 4k read buffers. */

// A complete diagnostic record as it came off the wire: the unescaped
// frame contents with the CRC trailer stripped.  For DIAG_LOG_F frames
// the 16-bit log code is pre-extracted for cheap dispatch; other
// commands leave it zero.
type raw_record_t struct {
	radio_index  int
	arrival_time time.Time
	log_code     uint16
	payload      []byte
	crc_valid    bool
}

type deframer_state_e int

const (
	DF_COLLECTING deframer_state_e = 0 /* Accumulating frame bytes.  Zero value so a fresh deframer_t just works. */
	DF_RESYNC     deframer_state_e = 1 /* Discarding until the next 0x7e after an oversize frame. */
)

type deframer_t struct {
	state   deframer_state_e
	partial []byte /* Escaped bytes of the frame being collected. */

	disable_crc_check bool
	drop_bad_crc      bool

	crc_errors    int
	resyncs       int
	frames_seen   int
	frames_passed int
}

/*-------------------------------------------------------------------
 *
 * Name:        deframer_feed
 *
 * Purpose:     Feed one raw chunk from the stream source and collect
 *		any records completed by it.
 *
 * Inputs:	df		- Deframer state, one per logical stream.
 *		chunk		- Bytes as read from the device or file.
 *		radio_index	- Radio tag supplied by the transport.
 *		arrival		- Arrival timestamp of the chunk.
 *
 * Returns:	Zero or more complete records, in stream order.
 *		Records failing CRC are tagged crc_valid=false and,
 *		when drop_bad_crc is set, removed before return.
 *
 *-----------------------------------------------------------------*/

func deframer_feed(df *deframer_t, chunk []byte, radio_index int, arrival time.Time) []raw_record_t {
	var records []raw_record_t

	for _, b := range chunk {
		switch df.state {
		case DF_COLLECTING:
			if b == DIAG_CONTROL {
				if len(df.partial) > 0 {
					var rec, ok = df.close_frame(radio_index, arrival)
					if ok {
						records = append(records, rec)
					}
				}
				df.partial = df.partial[:0]
				continue
			}
			df.partial = append(df.partial, b)
			if len(df.partial) > 2*MAX_DIAG_FRAME {
				diag_log.Warn("oversize DIAG frame, resynchronizing", "buffered", len(df.partial))
				df.partial = df.partial[:0]
				df.resyncs++
				df.state = DF_RESYNC
			}

		case DF_RESYNC:
			if b == DIAG_CONTROL {
				df.state = DF_COLLECTING
			}
		}
	}

	return records
}

// close_frame unescapes and CRC-checks the collected bytes.
// Returns ok=false for frames that should not reach the decoder.
func (df *deframer_t) close_frame(radio_index int, arrival time.Time) (raw_record_t, bool) {
	df.frames_seen++

	var payload = hdlc_unescape(df.partial)
	if len(payload) < 3 {
		// Too short to carry even a command byte and CRC.  Noise between frames.
		return raw_record_t{}, false
	}
	if len(payload) > MAX_DIAG_FRAME {
		diag_log.Warn("oversize DIAG frame after unescaping, dropped", "len", len(payload))
		df.resyncs++
		return raw_record_t{}, false
	}

	var crc_valid = true
	if !df.disable_crc_check {
		crc_valid = dm_crc_check(payload)
		if !crc_valid {
			df.crc_errors++
			diag_log.Warn("DIAG frame CRC mismatch",
				"expected", dm_crc16(payload[:len(payload)-2]),
				"len", len(payload))
		}
	}
	payload = payload[:len(payload)-2]

	if !crc_valid && df.drop_bad_crc {
		return raw_record_t{}, false
	}

	df.frames_passed++
	return raw_record_t{
		radio_index:  radio_index,
		arrival_time: arrival,
		log_code:     peek_log_code(payload),
		payload:      payload,
		crc_valid:    crc_valid,
	}, true
}

// peek_log_code extracts the log code of a DIAG_LOG_F frame for dispatch.
func peek_log_code(payload []byte) uint16 {
	if len(payload) >= 8 && payload[0] == DIAG_LOG_F {
		return uint16(payload[6]) | uint16(payload[7])<<8
	}
	return 0
}

/*-------------------------------------------------------------------
 *
 * Name:        hdlc_escape / hdlc_unescape / diag_encapsulate
 *
 * Purpose:     Escape-layer codec, plus the command-direction framing
 *		used when driving a live device.
 *
 * Description:	diag_encapsulate produces payload + CRC, escaped, with
 *		the trailing 0x7e.  It must round-trip exactly with
 *		deframer_feed.
 *
 *-----------------------------------------------------------------*/

func hdlc_escape(in []byte) []byte {
	var out = make([]byte, 0, len(in)+4)
	for _, b := range in {
		if b == DIAG_CONTROL || b == DIAG_ESCAPE {
			out = append(out, DIAG_ESCAPE, b^DIAG_ESCAPE_XOR)
		} else {
			out = append(out, b)
		}
	}
	return out
}

func hdlc_unescape(in []byte) []byte {
	var out = make([]byte, 0, len(in))
	var escaped = false
	for _, b := range in {
		if escaped {
			out = append(out, b^DIAG_ESCAPE_XOR)
			escaped = false
		} else if b == DIAG_ESCAPE {
			escaped = true
		} else {
			out = append(out, b)
		}
	}
	// A trailing lone escape byte implies the frame was cut short.
	// Nothing to do about it here; the CRC check will reject it.
	return out
}

func diag_encapsulate(payload []byte) []byte {
	var out = hdlc_escape(dm_crc_append(payload))
	return append(out, DIAG_CONTROL)
}
