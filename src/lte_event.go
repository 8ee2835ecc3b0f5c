package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Parsers for the LTE event ids carried in
 *		DIAG_EVENT_REPORT_F records.
 *
 * Description:	Event payloads are tiny - zero to two bytes or a short
 *		Pascal string - so most of this file is lookup tables
 *		mapping raw byte values to protocol names.  Events with
 *		no structured meaning here still come out as generic
 *		events so nothing silently disappears from the stream.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
)

const EVENT_LTE_RRC_TIMER_STATUS = 1605
const EVENT_LTE_RRC_STATE_CHANGE = 1606
const EVENT_LTE_RRC_DL_MSG = 1609
const EVENT_LTE_RRC_UL_MSG = 1610
const EVENT_LTE_RRC_PAGING_DRX_CYCLE = 1614
const EVENT_LTE_ML1_PHR_REPORT = 1938
const EVENT_LTE_RRC_STATE_CHANGE_TRIGGER = 1994

var lte_rrc_state_names = map[int]string{
	0: "RRC_SEARCH",
	1: "RRC_IDLE_NOT_CAMPED",
	2: "RRC_IDLE_CAMPED",
	3: "RRC_CONNECTING",
	4: "RRC_CONNECTED",
	5: "RRC_INACTIVE",
	7: "RRC_CLOSING",
}

var lte_rrc_dl_channel_names = map[int]string{
	1: "BCCH",
	2: "PCCH",
	3: "CCCH",
	4: "DCCH",
}

var lte_rrc_ul_channel_names = map[int]string{
	5: "CCCH",
	6: "DCCH",
}

var lte_rrc_dl_message_names = map[int]string{
	0x00: "MIB",
	0x01: "SIB1",
	0x02: "SIB2",
	0x03: "SIB3",
	0x04: "SIB4",
	0x05: "SIB5",
	0x06: "SIB6",
	0x07: "SIB7",
	0x40: "Paging",
	0x4B: "RRCConnectionSetup",
	0x81: "DLInformationTransfer",
	0x83: "RRCConnectionReconfiguration",
	0x85: "RRCConnectionRelease",
}

var lte_rrc_ul_message_names = map[int]string{
	0x01: "RRCConnectionRequest",
	0x83: "RRCConnectionReconfigurationComplete",
	0x84: "RRCConnectionSetupComplete",
	0x89: "ULInformationTransfer",
}

var lte_rrc_state_cause_names = map[int]string{
	0x01: "RRCConnectionRequest",
	0x4B: "RRCConnectionSetup",
	0x81: "DLInformationTransfer",
	0x84: "RRCConnectionSetupComplete",
	0x85: "RRCConnectionRelease",
	0x89: "ULInformationTransfer",
}

/*-------------------------------------------------------------------
 *
 * Name:        lte_event_parsers
 *
 * Purpose:     Build the event id dispatch table.
 *
 *-----------------------------------------------------------------*/

func lte_event_parsers() map[int]event_parser_fn {
	var table = map[int]event_parser_fn{
		EVENT_LTE_RRC_STATE_CHANGE:         parse_event_rrc_state_change,
		EVENT_LTE_RRC_DL_MSG:               parse_event_rrc_dl_msg,
		EVENT_LTE_RRC_UL_MSG:               parse_event_rrc_ul_msg,
		EVENT_LTE_ML1_PHR_REPORT:           parse_event_phr_report,
		EVENT_LTE_RRC_STATE_CHANGE_TRIGGER: parse_event_rrc_state_cause,
	}

	// NAS message, timer and OTA events have no KPI use but are worth
	// a readable line: generic with hex content.
	var hex_ids = []int{
		EVENT_LTE_RRC_TIMER_STATUS,
		EVENT_LTE_RRC_PAGING_DRX_CYCLE,
		1627, 1628, 1629, 1630, 1631, 1632, 1633, 1634,
		1635, 1636, 1637, 1638, 1966, 1967, 1968, 1969,
	}
	for _, id := range hex_ids {
		table[id] = parse_event_generic
	}
	return table
}

func parse_event_generic(d *decoder_t, m event_meta, id int, payload []byte) []decoded_event {
	return []decoded_event{generic_event_t{
		event_meta: m,
		name:       d.event_names.name_of(id),
		content:    hex_content(payload),
	}}
}

func parse_event_rrc_state_change(d *decoder_t, m event_meta, id int, payload []byte) []decoded_event {
	if len(payload) < 1 {
		return nil
	}
	var state, known = lte_rrc_state_names[int(payload[0])]
	if !known {
		state = fmt.Sprintf("%02x", payload[0])
	}
	return []decoded_event{rrc_state_change_t{event_meta: m, state: state}}
}

func parse_event_rrc_state_cause(d *decoder_t, m event_meta, id int, payload []byte) []decoded_event {
	if len(payload) < 1 {
		return nil
	}
	var cause, known = lte_rrc_state_cause_names[int(payload[0])]
	if !known {
		cause = fmt.Sprintf("0x%02X", payload[0])
	}
	return []decoded_event{rrc_state_cause_t{event_meta: m, cause: cause}}
}

func parse_event_rrc_dl_msg(d *decoder_t, m event_meta, id int, payload []byte) []decoded_event {
	return parse_event_rrc_msg(m, payload, DIR_DL, lte_rrc_dl_channel_names, lte_rrc_dl_message_names)
}

func parse_event_rrc_ul_msg(d *decoder_t, m event_meta, id int, payload []byte) []decoded_event {
	return parse_event_rrc_msg(m, payload, DIR_UL, lte_rrc_ul_channel_names, lte_rrc_ul_message_names)
}

func parse_event_rrc_msg(m event_meta, payload []byte, direction link_direction_e, channels map[int]string, messages map[int]string) []decoded_event {
	if len(payload) < 2 {
		return nil
	}

	var channel, known = channels[int(payload[0])]
	if !known {
		channel = fmt.Sprintf("Unknown (%02x)", payload[0])
	}
	var msgtype string
	msgtype, known = messages[int(payload[1])]
	if !known {
		msgtype = fmt.Sprintf("Unknown (%02x)", payload[1])
	}

	return []decoded_event{rrc_message_t{
		event_meta:   m,
		direction:    direction,
		channel:      channel,
		message_type: msgtype,
	}}
}

/*-------------------------------------------------------------------
 *
 * Name:        parse_event_phr_report
 *
 * Purpose:     1938 - power headroom report.
 *
 * Description:	The PHR index is the low six bits of the first payload
 *		byte.  Headroom in dB is phr-23, clamped to [-23, 40].
 *		Transmit power derivation (and its inversion quirk on
 *		some chipsets) happens in the KPI tracker.
 *
 *-----------------------------------------------------------------*/

func parse_event_phr_report(d *decoder_t, m event_meta, id int, payload []byte) []decoded_event {
	if len(payload) < 1 {
		return nil
	}
	var phr = int(payload[0]) & 0x3F
	var ph_db = phr - 23
	if ph_db < -23 {
		ph_db = -23
	}
	if ph_db > 40 {
		ph_db = 40
	}
	return []decoded_event{phr_report_t{event_meta: m, phr: phr, ph_db: ph_db}}
}
