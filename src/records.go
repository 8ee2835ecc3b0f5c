package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Decoded-event data model shared by the record decoder,
 *		the KPI tracker and the output sink.
 *
 * Description:	Each variant carries only the fields its source record
 *		documents.  Events are created by the decoder, consumed
 *		once downstream and discarded; nothing here is long lived.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"time"
)

// Common part of every decoded event.
type event_meta struct {
	radio int
	ts    time.Time
}

type decoded_event interface {
	meta() event_meta
	summary() string
}

func (m event_meta) meta() event_meta { return m }

// Serving-cell roles for measurement records.
type cell_role_e int

const (
	CELL_PRIMARY cell_role_e = iota
	CELL_PRIMARY_CONNECTED
	CELL_NEIGHBOR
)

type cell_measurement_t struct {
	event_meta
	role       cell_role_e
	cell_index int /* Only meaningful for CELL_NEIGHBOR. */
	earfcn     int
	pci        int
	rsrp       int
	rssi       int
	rsrq       int
	priority   *int /* Present only in the idle serving-cell record. */
}

func (e cell_measurement_t) summary() string {
	switch e.role {
	case CELL_PRIMARY_CONNECTED:
		return fmt.Sprintf("serving cell (connected) PCI %d RSRP %d", e.pci, e.rsrp)
	case CELL_NEIGHBOR:
		return fmt.Sprintf("neighbor cell %d PCI %d RSRP %d", e.cell_index, e.pci, e.rsrp)
	default:
		return fmt.Sprintf("serving cell EARFCN %d PCI %d RSRP %d", e.earfcn, e.pci, e.rsrp)
	}
}

type link_direction_e int

const (
	DIR_DL link_direction_e = iota
	DIR_UL
)

type mac_transport_block_t struct {
	event_meta
	direction link_direction_e
	tbs_bits  int
	n_prb     int    /* DL only. */
	grant     uint32 /* UL only: raw grant field. */
	mcs       *int   /* UL only: five LSBs of the grant. */
	ndi       *int   /* UL only: configured grant bit. */
	mac_hdr   []byte /* DL only: MAC PDU header bytes for the GSMTAP MAC layer. */
}

func (e mac_transport_block_t) summary() string {
	if e.direction == DIR_UL {
		return fmt.Sprintf("MAC UL transport block, %d bits", e.tbs_bits)
	}
	return fmt.Sprintf("MAC DL transport block, %d bits, %d PRB", e.tbs_bits, e.n_prb)
}

// Timing Advance Command control element found in a MAC DL PDU header.
type timing_advance_t struct {
	event_meta
	ta int /* 0-63 */
}

func (e timing_advance_t) summary() string { return fmt.Sprintf("MAC CE timing advance %d", e.ta) }

// One RACH attempt record; any subset of the three message sections
// may be present, flagged by the has_msgN fields.
type rach_event_t struct {
	event_meta
	attempt    int
	result     int /* 0 = success */
	contention int /* 1 = contention based */

	has_msg1       bool
	preamble       int
	preamble_power int /* dB */

	has_msg2    bool
	backoff_ms  int
	msg2_result int
	tc_rnti     int
	ta          int

	has_msg3 bool
	grant    uint32
	harq_id  int
}

func (e rach_event_t) summary() string {
	return fmt.Sprintf("RACH attempt %d (msg1=%v msg2=%v msg3=%v)", e.attempt, e.has_msg1, e.has_msg2, e.has_msg3)
}

type rrc_state_change_t struct {
	event_meta
	state string /* e.g. "RRC_CONNECTED", or two hex digits when unmapped. */
}

func (e rrc_state_change_t) summary() string { return "RRC state " + e.state }

type rrc_state_cause_t struct {
	event_meta
	cause string
}

func (e rrc_state_cause_t) summary() string { return "RRC state cause " + e.cause }

type rrc_message_t struct {
	event_meta
	direction    link_direction_e
	channel      string
	message_type string /* "Unknown (xx)" when unmapped; never an error. */
}

func (e rrc_message_t) summary() string {
	return fmt.Sprintf("RRC message %s on %s", e.message_type, e.channel)
}

type phr_report_t struct {
	event_meta
	phr   int /* Raw 6-bit power headroom field. */
	ph_db int /* Headroom in dB, clamped to the 3GPP -23..40 range. */
}

func (e phr_report_t) summary() string { return fmt.Sprintf("PHR report, headroom %d dB", e.ph_db) }

// Any event without a dedicated parser.  The name comes from the
// event-name table; downstream classification is by name substring,
// deliberately an open set.
type generic_event_t struct {
	event_meta
	name    string
	content string
}

func (e generic_event_t) summary() string {
	if e.content == "" {
		return e.name
	}
	return e.name + ": " + e.content
}

// RRC OTA message carrying the raw ASN.1 PDU for GSMTAP.
type rrc_ota_message_t struct {
	event_meta
	pci       int
	earfcn    int
	sfn       int
	subframe  int
	pdu_type  int /* Matches the GSMTAP LTE-RRC subtype. */
	rrc_rel   int
	payload   []byte
}

func (e rrc_ota_message_t) summary() string {
	return fmt.Sprintf("RRC OTA pdu %d, %d bytes", e.pdu_type, len(e.payload))
}

type nas_ota_message_t struct {
	event_meta
	incoming bool
	payload  []byte
}

func (e nas_ota_message_t) summary() string {
	var dir = "outgoing"
	if e.incoming {
		dir = "incoming"
	}
	return fmt.Sprintf("NAS EMM OTA %s, %d bytes", dir, len(e.payload))
}

// Observed downlink bandwidth from the RRC MIB record.
type bandwidth_info_t struct {
	event_meta
	pci    int
	earfcn int
	n_prb  int
}

func (e bandwidth_info_t) summary() string { return fmt.Sprintf("MIB bandwidth %d PRB", e.n_prb) }

// Free-text line from the modem (version strings, build id, log
// config echoes).  Rendered as a log-kind emission.
type log_line_t struct {
	event_meta
	message string
}

func (e log_line_t) summary() string { return e.message }
