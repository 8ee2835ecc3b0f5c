package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Field parsers for the LTE DIAG log records feeding the
 *		KPI set and the GSMTAP RRC/NAS/MAC layers.
 *
 * Description:	All records begin with a version byte.  Version 1
 *		carries the EARFCN as u16; version 2 widens it to u32
 *		and is otherwise identical.  The MAC records
 *		(0xB060-0xB064) use subpacket framing: after the record
 *		header each subpacket is u8 id, u8 version, u16 size
 *		(size includes this 4-byte subheader), payload.
 *
 *		Out-of-range field values are passed through untouched.
 *		Plausibility belongs to the KPI tracker, not here.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
)

/*
 * LTE log codes.
 */

const LOG_LTE_MAC_RACH_ATTEMPT = 0xB061
const LOG_LTE_MAC_DL_TRANSPORT = 0xB063
const LOG_LTE_MAC_UL_TRANSPORT = 0xB064
const LOG_LTE_RRC_OTA = 0xB0C0
const LOG_LTE_RRC_MIB = 0xB0C1
const LOG_LTE_NAS_EMM_OTA_IN = 0xB0E2
const LOG_LTE_NAS_EMM_OTA_OUT = 0xB0E3
const LOG_LTE_ML1_SCELL_MEAS = 0xB17F
const LOG_LTE_ML1_NCELL_MEAS = 0xB180
const LOG_LTE_ML1_SCELL_MEAS_RSP = 0xB193

const MAC_SUBPKT_RACH_ATTEMPT = 0x06
const MAC_SUBPKT_DL_TRANSPORT = 0x07
const MAC_SUBPKT_UL_TRANSPORT = 0x08

// Timing Advance Command control element LCID in a DL-SCH MAC PDU.
const MAC_LCID_TA_COMMAND = 0x1D
const MAC_LCID_CONTENTION = 0x1C
const MAC_LCID_DRX = 0x1E
const MAC_LCID_PADDING = 0x1F

// Sequential little-endian field reader.  Errors are sticky: once a
// read runs past the end, every later read returns zero and ok()
// reports false.  Keeps the record parsers free of length arithmetic.
type field_reader struct {
	buf    []byte
	pos    int
	failed bool
}

func (r *field_reader) u8() int {
	if r.failed || r.pos+1 > len(r.buf) {
		r.failed = true
		return 0
	}
	var v = int(r.buf[r.pos])
	r.pos++
	return v
}

func (r *field_reader) u16() int {
	if r.failed || r.pos+2 > len(r.buf) {
		r.failed = true
		return 0
	}
	var v = int(binary.LittleEndian.Uint16(r.buf[r.pos:]))
	r.pos += 2
	return v
}

func (r *field_reader) i16() int {
	return int(int16(r.u16()))
}

func (r *field_reader) u32() uint32 {
	if r.failed || r.pos+4 > len(r.buf) {
		r.failed = true
		return 0
	}
	var v = binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *field_reader) bytes(n int) []byte {
	if r.failed || n < 0 || r.pos+n > len(r.buf) {
		r.failed = true
		return nil
	}
	var v = r.buf[r.pos : r.pos+n]
	r.pos += n
	return v
}

func (r *field_reader) skip(n int) {
	r.bytes(n)
}

func (r *field_reader) ok() bool {
	return !r.failed
}

// earfcn reads the channel number at its version-dependent width.
func (r *field_reader) earfcn(version int) int {
	if version >= 2 {
		return int(r.u32())
	}
	return r.u16()
}

/*
 * Measurement scaling.  Raw values are sixteenths of a dB with fixed
 * offsets: RSRP -180, RSSI -110, RSRQ -30.  Rounded to whole dB.
 */

func scale_rsrp(raw int) int { return (raw+8)/16 - 180 }
func scale_rssi(raw int) int { return (raw+8)/16 - 110 }
func scale_rsrq(raw int) int { return (raw+8)/16 - 30 }

/*-------------------------------------------------------------------
 *
 * Name:        decode_lte_scell_meas_idle
 *
 * Purpose:     0xB17F - serving cell measurement while idle.  The only
 *		record carrying the cell reselection priority.
 *
 *-----------------------------------------------------------------*/

func decode_lte_scell_meas_idle(d *decoder_t, m event_meta, body []byte) []decoded_event {
	var r = field_reader{buf: body}
	var version = r.u8()
	var earfcn = r.earfcn(version)
	var pci = r.u16()
	var priority = r.u8()
	var rsrp = r.u16()
	var rssi = r.u16()
	var rsrq = r.u16()
	if !r.ok() {
		return nil
	}

	var prio *int
	if priority <= 7 {
		prio = &priority
	}
	return []decoded_event{cell_measurement_t{
		event_meta: m,
		role:       CELL_PRIMARY,
		earfcn:     earfcn,
		pci:        pci,
		rsrp:       scale_rsrp(rsrp),
		rssi:       scale_rssi(rssi),
		rsrq:       scale_rsrq(rsrq),
		priority:   prio,
	}}
}

func decode_lte_scell_meas_connected(d *decoder_t, m event_meta, body []byte) []decoded_event {
	var r = field_reader{buf: body}
	var version = r.u8()
	var earfcn = r.earfcn(version)
	var pci = r.u16()
	var rsrp = r.u16()
	var rssi = r.u16()
	var rsrq = r.u16()
	if !r.ok() {
		return nil
	}

	return []decoded_event{cell_measurement_t{
		event_meta: m,
		role:       CELL_PRIMARY_CONNECTED,
		earfcn:     earfcn,
		pci:        pci,
		rsrp:       scale_rsrp(rsrp),
		rssi:       scale_rssi(rssi),
		rsrq:       scale_rsrq(rsrq),
	}}
}

func decode_lte_ncell_meas(d *decoder_t, m event_meta, body []byte) []decoded_event {
	var r = field_reader{buf: body}
	var version = r.u8()
	var earfcn = r.earfcn(version)
	var count = r.u8()
	if !r.ok() {
		return nil
	}

	var events []decoded_event
	for i := 0; i < count; i++ {
		var pci = r.u16()
		var rsrp = r.u16()
		var rssi = r.u16()
		var rsrq = r.u16()
		if !r.ok() {
			break
		}
		events = append(events, cell_measurement_t{
			event_meta: m,
			role:       CELL_NEIGHBOR,
			cell_index: i,
			earfcn:     earfcn,
			pci:        pci,
			rsrp:       scale_rsrp(rsrp),
			rssi:       scale_rssi(rssi),
			rsrq:       scale_rsrq(rsrq),
		})
	}
	return events
}

/*-------------------------------------------------------------------
 *
 * Name:        mac_subpackets
 *
 * Purpose:     Walk the subpacket framing common to the MAC records.
 *
 * Inputs:	body	- Record body after the DIAG log header.
 *		want_id	- Subpacket id of interest.
 *
 * Returns:	Payloads of matching subpackets.
 *
 *-----------------------------------------------------------------*/

func mac_subpackets(body []byte, want_id int) [][]byte {
	var r = field_reader{buf: body}
	r.u8() /* record version */
	var num = r.u8()
	r.skip(2)

	var payloads [][]byte
	for i := 0; i < num && r.ok(); i++ {
		var id = r.u8()
		r.u8() /* subpacket version */
		var size = r.u16()
		if size < 4 {
			break
		}
		var payload = r.bytes(size - 4)
		if !r.ok() {
			break
		}
		if id == want_id {
			payloads = append(payloads, payload)
		}
	}
	return payloads
}

/*-------------------------------------------------------------------
 *
 * Name:        decode_lte_mac_rach_attempt
 *
 * Purpose:     0xB061 - RACH attempt record.  Carries any subset of
 *		the three RACH messages, flagged by a bitmask.
 *
 * Description:	Subpacket 0x06: u8 attempt (1-based), u8 result
 *		(0=success), u8 contention, u8 msg bitmask (bit0 Msg1,
 *		bit1 Msg2, bit2 Msg3), then the present sections in
 *		order: Msg1{u8 preamble index, i16 preamble power dB},
 *		Msg2{u16 backoff ms, u8 result, u16 TC-RNTI, u16 TA},
 *		Msg3{u32 grant, u8 HARQ id}.
 *
 *-----------------------------------------------------------------*/

func decode_lte_mac_rach_attempt(d *decoder_t, m event_meta, body []byte) []decoded_event {
	var events []decoded_event
	for _, payload := range mac_subpackets(body, MAC_SUBPKT_RACH_ATTEMPT) {
		var r = field_reader{buf: payload}
		var ev = rach_event_t{event_meta: m}
		ev.attempt = r.u8()
		ev.result = r.u8()
		ev.contention = r.u8()
		var bitmask = r.u8()
		if !r.ok() {
			continue
		}

		if bitmask&0x01 != 0 {
			ev.preamble = r.u8()
			ev.preamble_power = r.i16()
			ev.has_msg1 = r.ok()
		}
		if bitmask&0x02 != 0 {
			ev.backoff_ms = r.u16()
			ev.msg2_result = r.u8()
			ev.tc_rnti = r.u16()
			ev.ta = r.u16()
			ev.has_msg2 = r.ok()
		}
		if bitmask&0x04 != 0 {
			ev.grant = r.u32()
			ev.harq_id = r.u8()
			ev.has_msg3 = r.ok()
		}

		if ev.has_msg1 || ev.has_msg2 || ev.has_msg3 {
			events = append(events, ev)
		}
	}
	return events
}

/*-------------------------------------------------------------------
 *
 * Name:        decode_lte_mac_dl_transport
 *
 * Purpose:     0xB063 - downlink transport blocks.  One event per
 *		sample, plus a timing-advance event whenever the MAC
 *		PDU header carries the TA Command control element.
 *
 * Description:	Subpacket 0x07: u8 num samples, per sample:
 *		u16 sfn/subfn, u8 rnti type, u8 harq id, u16 TB size
 *		in bytes, u8 num PRB, u8 header length, header bytes.
 *
 *-----------------------------------------------------------------*/

func decode_lte_mac_dl_transport(d *decoder_t, m event_meta, body []byte) []decoded_event {
	var events []decoded_event
	for _, payload := range mac_subpackets(body, MAC_SUBPKT_DL_TRANSPORT) {
		var r = field_reader{buf: payload}
		var num = r.u8()
		for i := 0; i < num && r.ok(); i++ {
			r.u16() /* sfn/subfn */
			r.u8()  /* rnti type */
			r.u8()  /* harq id */
			var tb_bytes = r.u16()
			var n_prb = r.u8()
			var hdr_len = r.u8()
			var hdr = r.bytes(hdr_len)
			if !r.ok() {
				break
			}

			events = append(events, mac_transport_block_t{
				event_meta: m,
				direction:  DIR_DL,
				tbs_bits:   tb_bytes * 8,
				n_prb:      n_prb,
				mac_hdr:    hdr,
			})
			for _, ta := range mac_hdr_timing_advance(hdr) {
				events = append(events, timing_advance_t{event_meta: m, ta: ta})
			}
		}
	}
	return events
}

/*-------------------------------------------------------------------
 *
 * Name:        decode_lte_mac_ul_transport
 *
 * Purpose:     0xB064 - uplink transport blocks.  The MCS rides in
 *		the five least significant bits of the grant field;
 *		the NDI bit position is configurable (default 6).
 *
 *-----------------------------------------------------------------*/

func decode_lte_mac_ul_transport(d *decoder_t, m event_meta, body []byte) []decoded_event {
	var events []decoded_event
	for _, payload := range mac_subpackets(body, MAC_SUBPKT_UL_TRANSPORT) {
		var r = field_reader{buf: payload}
		var num = r.u8()
		for i := 0; i < num && r.ok(); i++ {
			r.u16() /* sfn/subfn */
			r.u8()  /* harq id */
			var grant = r.u32()
			var tb_bytes = r.u16()
			if !r.ok() {
				break
			}

			var mcs = int(grant & 0x1F)
			var ndi = int(grant>>uint(d.ul_ndi_bit)) & 1
			events = append(events, mac_transport_block_t{
				event_meta: m,
				direction:  DIR_UL,
				tbs_bits:   tb_bytes * 8,
				grant:      grant,
				mcs:        &mcs,
				ndi:        &ndi,
			})
		}
	}
	return events
}

/*-------------------------------------------------------------------
 *
 * Name:        mac_hdr_timing_advance
 *
 * Purpose:     Scan a DL-SCH MAC PDU header for Timing Advance
 *		Command control elements.
 *
 * Description:	Subheaders are one byte each (R|R|E|LCID), followed by
 *		a 7- or 15-bit length field for variable-size payloads.
 *		E=0 marks the last subheader; its payload runs to the
 *		end and carries no length.  Control element payloads
 *		follow the subheader list in subheader order.  The TA
 *		command is a single byte, TA in the low six bits.
 *
 *-----------------------------------------------------------------*/

func mac_hdr_timing_advance(hdr []byte) []int {
	type subhdr struct {
		lcid   int
		length int /* -1 = implicit, runs to end */
	}
	var subhdrs []subhdr
	var pos = 0

	for pos < len(hdr) {
		var b = hdr[pos]
		pos++
		var more = b&0x20 != 0
		var lcid = int(b & 0x1F)

		if !more {
			subhdrs = append(subhdrs, subhdr{lcid: lcid, length: -1})
			break
		}

		switch lcid {
		case MAC_LCID_TA_COMMAND:
			subhdrs = append(subhdrs, subhdr{lcid: lcid, length: 1})
		case MAC_LCID_CONTENTION:
			subhdrs = append(subhdrs, subhdr{lcid: lcid, length: 6})
		case MAC_LCID_DRX, MAC_LCID_PADDING:
			subhdrs = append(subhdrs, subhdr{lcid: lcid, length: 0})
		default:
			if pos >= len(hdr) {
				return nil
			}
			var length int
			if hdr[pos]&0x80 != 0 {
				if pos+2 > len(hdr) {
					return nil
				}
				length = int(hdr[pos]&0x7F)<<8 | int(hdr[pos+1])
				pos += 2
			} else {
				length = int(hdr[pos] & 0x7F)
				pos++
			}
			subhdrs = append(subhdrs, subhdr{lcid: lcid, length: length})
		}
	}

	// Payloads follow in subheader order; stop at the first implicit
	// length since offsets beyond it are unknowable.
	var tas []int
	for _, sh := range subhdrs {
		if sh.lcid == MAC_LCID_TA_COMMAND {
			if pos < len(hdr) {
				tas = append(tas, int(hdr[pos]&0x3F))
			}
		}
		if sh.length < 0 {
			break
		}
		pos += sh.length
	}
	return tas
}

/*-------------------------------------------------------------------
 *
 * Name:        decode_lte_rrc_ota
 *
 * Purpose:     0xB0C0 - RRC OTA message.  The raw ASN.1 PDU goes out
 *		on the GSMTAP RRC layer; the header also refreshes the
 *		tracker's last known serving cell identity.
 *
 * Description:	u8 version, u8 rrc release, u8 radio bearer id,
 *		u16 pci, earfcn (per version), u16 sfn/subfn (sfn in
 *		the upper 12 bits), u8 pdu type (equals the GSMTAP
 *		LTE-RRC subtype), u16 length, payload.
 *
 *-----------------------------------------------------------------*/

func decode_lte_rrc_ota(d *decoder_t, m event_meta, body []byte) []decoded_event {
	var r = field_reader{buf: body}
	var version = r.u8()
	var rrc_rel = r.u8()
	r.u8() /* rbid */
	var pci = r.u16()
	var earfcn = r.earfcn(version)
	var sfn_subfn = r.u16()
	var pdu_type = r.u8()
	var length = r.u16()
	var payload = r.bytes(length)
	if !r.ok() {
		return nil
	}

	return []decoded_event{rrc_ota_message_t{
		event_meta: m,
		pci:        pci,
		earfcn:     earfcn,
		sfn:        sfn_subfn >> 4,
		subframe:   sfn_subfn & 0xF,
		pdu_type:   pdu_type,
		rrc_rel:    rrc_rel,
		payload:    payload,
	}}
}

func decode_lte_rrc_mib(d *decoder_t, m event_meta, body []byte) []decoded_event {
	var r = field_reader{buf: body}
	var version = r.u8()
	var pci = r.u16()
	var earfcn = r.earfcn(version)
	r.u16() /* sfn */
	r.u8()  /* tx antennas */
	var n_prb = r.u8()
	if !r.ok() {
		return nil
	}

	return []decoded_event{bandwidth_info_t{
		event_meta: m,
		pci:        pci,
		earfcn:     earfcn,
		n_prb:      n_prb,
	}}
}

func decode_lte_nas_ota_in(d *decoder_t, m event_meta, body []byte) []decoded_event {
	return decode_lte_nas_ota(m, body, true)
}

func decode_lte_nas_ota_out(d *decoder_t, m event_meta, body []byte) []decoded_event {
	return decode_lte_nas_ota(m, body, false)
}

func decode_lte_nas_ota(m event_meta, body []byte, incoming bool) []decoded_event {
	var r = field_reader{buf: body}
	r.u8()    /* version */
	r.skip(3) /* NAS release */
	if !r.ok() || r.pos >= len(body) {
		return nil
	}

	return []decoded_event{nas_ota_message_t{
		event_meta: m,
		incoming:   incoming,
		payload:    body[r.pos:],
	}}
}
