package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Outer DIAG record decoder: dispatch on the command
 *		byte, unpack the log and event containers, and hand
 *		the payloads to the LTE-specific parsers.
 *
 * Description:	A record decodes to zero or more events.  Zero is the
 *		normal case: the stream carries many record kinds that
 *		are irrelevant here, and skipping them is not an error.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"time"
)

/*
 * DIAG command codes seen on the wire.
 */

const DIAG_VERNO_F = 0x00
const DIAG_LOG_F = 0x10
const DIAG_EVENT_REPORT_F = 0x60
const DIAG_LOG_CONFIG_F = 0x73
const DIAG_EXT_MSG_F = 0x79
const DIAG_EXT_BUILD_ID_F = 0x7C
const DIAG_EXT_MSG_TERSE_F = 0x92
const DIAG_QSR_EXT_MSG_TERSE_F = 0x93
const DIAG_MULTI_RADIO_CMD_F = 0x98
const DIAG_QSR4_EXT_MSG_TERSE_F = 0x99

const MAX_RADIOS = 2

type log_parser_fn func(d *decoder_t, m event_meta, body []byte) []decoded_event
type event_parser_fn func(d *decoder_t, m event_meta, id int, payload []byte) []decoded_event

type decoder_t struct {
	parse_events bool
	ul_ndi_bit   int /* Bit index of NDI in the UL grant, 0-15. */

	event_names *event_name_table_t

	log_parsers   map[uint16]log_parser_fn
	event_parsers map[int]event_parser_fn
}

func decoder_init(cfg *TapConfig) *decoder_t {
	var d = &decoder_t{
		parse_events: cfg.Events || cfg.KPI,
		ul_ndi_bit:   cfg.ULNDIBit,
		event_names:  event_names_init(cfg.EventsFile),
	}
	d.log_parsers = map[uint16]log_parser_fn{
		LOG_LTE_MAC_RACH_ATTEMPT:   decode_lte_mac_rach_attempt,
		LOG_LTE_MAC_DL_TRANSPORT:   decode_lte_mac_dl_transport,
		LOG_LTE_MAC_UL_TRANSPORT:   decode_lte_mac_ul_transport,
		LOG_LTE_RRC_OTA:            decode_lte_rrc_ota,
		LOG_LTE_RRC_MIB:            decode_lte_rrc_mib,
		LOG_LTE_NAS_EMM_OTA_IN:     decode_lte_nas_ota_in,
		LOG_LTE_NAS_EMM_OTA_OUT:    decode_lte_nas_ota_out,
		LOG_LTE_ML1_SCELL_MEAS:     decode_lte_scell_meas_idle,
		LOG_LTE_ML1_NCELL_MEAS:     decode_lte_ncell_meas,
		LOG_LTE_ML1_SCELL_MEAS_RSP: decode_lte_scell_meas_connected,
	}
	d.event_parsers = lte_event_parsers()
	return d
}

/*-------------------------------------------------------------------
 *
 * Name:        decode_record
 *
 * Purpose:     Decode one complete DIAG record into events.
 *
 * Inputs:	rec	- Record from the deframer: unescaped payload,
 *			  CRC trailer already stripped.
 *
 * Returns:	Zero or more decoded events.  Unknown commands, log
 *		codes and event ids yield none; the decoder never
 *		fails on well-formed-but-unexpected content.
 *
 *-----------------------------------------------------------------*/

func decode_record(d *decoder_t, rec raw_record_t) []decoded_event {
	return d.decode_frame(rec.payload, event_meta{radio: rec.radio_index, ts: rec.arrival_time})
}

func (d *decoder_t) decode_frame(pkt []byte, m event_meta) []decoded_event {
	if len(pkt) < 1 {
		return nil
	}

	switch pkt[0] {
	case DIAG_VERNO_F:
		return d.decode_verno(pkt, m)
	case DIAG_LOG_F:
		return d.decode_log(pkt, m)
	case DIAG_EVENT_REPORT_F:
		if d.parse_events {
			return d.decode_event_report(pkt, m)
		}
		return nil
	case DIAG_LOG_CONFIG_F:
		return d.decode_log_config(pkt, m)
	case DIAG_EXT_BUILD_ID_F:
		return d.decode_ext_build_id(pkt, m)
	case DIAG_MULTI_RADIO_CMD_F:
		return d.decode_multi_radio(pkt, m)
	case DIAG_EXT_MSG_F, DIAG_EXT_MSG_TERSE_F, DIAG_QSR_EXT_MSG_TERSE_F, DIAG_QSR4_EXT_MSG_TERSE_F:
		// Terse/extended messages need vendor hash databases to render.
		// Recognized so they don't show up as "unknown", then skipped.
		return nil
	default:
		diag_log.Debug("not parsing DIAG command", "cmd", fmt.Sprintf("%#02x", pkt[0]))
		return nil
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        decode_log
 *
 * Purpose:     Unpack the 16-byte DIAG_LOG_F header and dispatch on
 *		the log code through the LTE log table.
 *
 * Description:	Header layout, little endian:
 *		u8 cmd, u8 reserved, u16 len1, u16 len2, u16 log_code,
 *		u64 QXDM timestamp.  Body length should equal len2-12;
 *		a mismatch is logged and decoding proceeds anyway.
 *
 *-----------------------------------------------------------------*/

func (d *decoder_t) decode_log(pkt []byte, m event_meta) []decoded_event {
	if len(pkt) < 16 {
		return nil
	}

	var len2 = binary.LittleEndian.Uint16(pkt[4:6])
	var log_code = binary.LittleEndian.Uint16(pkt[6:8])
	var qxdm_ts = binary.LittleEndian.Uint64(pkt[8:16])
	var body = pkt[16:]

	if len(body) != int(len2)-12 {
		diag_log.Warn("log record length mismatch",
			"log_code", fmt.Sprintf("%#06x", log_code),
			"expected", int(len2)-12, "got", len(body))
	}

	if ts, ok := parse_qxdm_ts(qxdm_ts); ok {
		m.ts = ts
	}

	var parser, known = d.log_parsers[log_code]
	if !known {
		diag_log.Debug("not parsing DIAG log item", "log_code", fmt.Sprintf("%#06x", log_code))
		return nil
	}
	return parser(d, m, body)
}

/*-------------------------------------------------------------------
 *
 * Name:        decode_event_report
 *
 * Purpose:     Walk the packed event stream of a DIAG_EVENT_REPORT_F
 *		record.
 *
 * Description:	After u8 cmd and u16 msg_len, events are packed as a
 *		u16 field: id in the low 12 bits, payload form in bits
 *		13-14, timestamp-truncated flag in bit 15.  A full event
 *		carries a u64 QXDM timestamp (10-byte step); a truncated
 *		one a 2-byte timestamp we skip, using arrival time
 *		instead (4-byte step).  Payload forms: 0 none, 1 one
 *		byte, 2 two bytes, 3 Pascal string.
 *
 *-----------------------------------------------------------------*/

func (d *decoder_t) decode_event_report(pkt []byte, m event_meta) []decoded_event {
	if len(pkt) < 3 {
		return nil
	}

	var events []decoded_event
	var pos = 3

	for pos+2 <= len(pkt) {
		var field = binary.LittleEndian.Uint16(pkt[pos : pos+2])
		var event_id = int(field & 0x0FFF)
		var payload_form = int(field&0x6000) >> 13
		var ts_trunc = field&0x8000 != 0

		var em = m
		if ts_trunc {
			pos += 4
		} else {
			if pos+10 > len(pkt) {
				break
			}
			if ts, ok := parse_qxdm_ts(binary.LittleEndian.Uint64(pkt[pos+2 : pos+10])); ok {
				em.ts = ts
			}
			pos += 10
		}

		var payload []byte
		switch payload_form {
		case 0:
			// No payload.
		case 1:
			if pos+1 > len(pkt) {
				return events
			}
			payload = pkt[pos : pos+1]
			pos++
		case 2:
			if pos+2 > len(pkt) {
				return events
			}
			payload = pkt[pos : pos+2]
			pos += 2
		case 3:
			if pos+1 > len(pkt) {
				return events
			}
			var bin_len = int(pkt[pos])
			if pos+1+bin_len > len(pkt) {
				return events
			}
			payload = pkt[pos+1 : pos+1+bin_len]
			pos += 1 + bin_len
		}

		events = append(events, d.decode_one_event(em, event_id, payload)...)
	}

	return events
}

func (d *decoder_t) decode_one_event(m event_meta, event_id int, payload []byte) []decoded_event {
	if parser, known := d.event_parsers[event_id]; known {
		return parser(d, m, event_id, payload)
	}

	// Open set: anything else becomes a generic event named from the
	// event-name table, so failure classification needs no code change
	// for new event ids.
	return []decoded_event{generic_event_t{
		event_meta: m,
		name:       d.event_names.name_of(event_id),
		content:    hex_content(payload),
	}}
}

/*-------------------------------------------------------------------
 *
 * Name:        decode_multi_radio
 *
 * Purpose:     Unwrap a DIAG_MULTI_RADIO_CMD_F container and decode
 *		the inner record with the right radio index.
 *
 * Description:	u8 cmd, u8 res1, u16 res2, u32 radio id (signed
 *		semantics, base 1; 0 and -1 are also observed).
 *
 *-----------------------------------------------------------------*/

func (d *decoder_t) decode_multi_radio(pkt []byte, m event_meta) []decoded_event {
	if len(pkt) < 8 {
		return nil
	}
	var radio_id = int(int32(binary.LittleEndian.Uint32(pkt[4:8])))
	m.radio = sanitize_radio_id(radio_id)
	return d.decode_frame(pkt[8:], m)
}

// sanitize_radio_id maps the wire subscription id onto a context slot.
// Base-1 on the wire; 0 and -1 are treated as the first radio, and
// anything above the supported count collapses onto the second.
func sanitize_radio_id(radio_id int) int {
	if radio_id <= 0 {
		return 0
	}
	if radio_id > MAX_RADIOS {
		return 1
	}
	return radio_id - 1
}

func (d *decoder_t) decode_verno(pkt []byte, m event_meta) []decoded_event {
	if len(pkt) < 47 {
		return nil
	}
	var msg = fmt.Sprintf("Compile: %s/%s, Release: %s/%s, Chipset: %s",
		printable_string(pkt[1:12]), printable_string(pkt[12:20]),
		printable_string(pkt[20:31]), printable_string(pkt[31:39]),
		printable_string(pkt[39:47]))
	return []decoded_event{log_line_t{event_meta: m, message: msg}}
}

func (d *decoder_t) decode_ext_build_id(pkt []byte, m event_meta) []decoded_event {
	if len(pkt) < 13 {
		return nil
	}
	return []decoded_event{log_line_t{event_meta: m,
		message: "Build ID: " + printable_string(pkt[12:])}}
}

func (d *decoder_t) decode_log_config(pkt []byte, m event_meta) []decoded_event {
	if len(pkt) < 8 {
		return nil
	}
	var op = binary.LittleEndian.Uint32(pkt[4:8])
	var msg string
	switch op {
	case LOG_CONFIG_DISABLE_OP:
		msg = "Log Config: Disable"
	case LOG_CONFIG_RETRIEVE_ID_RANGES_OP:
		msg = "Log Config: Retrieve ID ranges"
	case LOG_CONFIG_SET_MASK_OP:
		msg = "Log Config: Set mask"
	default:
		msg = fmt.Sprintf("Log Config: operation %d", op)
	}
	return []decoded_event{log_line_t{event_meta: m, message: msg}}
}

/*-------------------------------------------------------------------
 *
 * Name:        parse_qxdm_ts
 *
 * Purpose:     Convert a QXDM timestamp to wall-clock time.
 *
 * Description:	The upper 48 bits count 1/800 second units since the
 *		GPS epoch, 1980-01-06 00:00:00 UTC.  An all-zero value
 *		means the modem had no time reference yet.
 *
 *-----------------------------------------------------------------*/

var qxdm_epoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

func parse_qxdm_ts(raw uint64) (time.Time, bool) {
	if raw == 0 {
		return time.Time{}, false
	}
	var units = raw >> 16 /* 1/800 s each */
	var sec = units / 800
	var nsec = (units % 800) * (1_000_000_000 / 800)
	return qxdm_epoch.Add(time.Duration(sec)*time.Second + time.Duration(nsec)), true
}

// printable_string renders fixed-width byte fields from the modem,
// dropping NUL padding and anything non-ASCII.
func printable_string(b []byte) string {
	var out = make([]byte, 0, len(b))
	for _, c := range b {
		if c == 0 {
			break
		}
		if c >= 0x20 && c <= 0x7E {
			out = append(out, c)
		} else {
			out = append(out, '.')
		}
	}
	return string(out)
}

func hex_content(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var out = make([]byte, 0, len(payload)*3)
	for i, b := range payload {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, fmt.Sprintf("%02x", b)...)
	}
	return string(out)
}
