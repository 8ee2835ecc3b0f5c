package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	GSMTAP version 2 encapsulation, so Wireshark can
 *		dissect the RRC/NAS/MAC payloads we pull out of the
 *		diagnostic stream.
 *
 * Description:	The header is sixteen bytes, multi-byte fields big
 *		endian.  Free-text lines travel as OSMOCORE_LOG
 *		packets: the GSMTAP header, an 84-byte log header,
 *		then the text.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"time"
)

const GSMTAP_VERSION = 2
const GSMTAP_HDR_LEN = 16 /* bytes; wire field counts 32-bit words */

const GSMTAP_TYPE_LTE_RRC = 0x0D
const GSMTAP_TYPE_LTE_MAC = 0x0E
const GSMTAP_TYPE_OSMOCORE_LOG = 0x10
const GSMTAP_TYPE_LTE_NAS = 0x12

// LTE RRC sub-types, numerically equal to the pdu_type field of the
// RRC OTA record.
const GSMTAP_LTE_RRC_SUB_DL_DCCH = 0
const GSMTAP_LTE_RRC_SUB_DL_CCCH = 1
const GSMTAP_LTE_RRC_SUB_UL_DCCH = 2
const GSMTAP_LTE_RRC_SUB_UL_CCCH = 3
const GSMTAP_LTE_RRC_SUB_BCCH_BCH = 4
const GSMTAP_LTE_RRC_SUB_BCCH_DL_SCH = 5
const GSMTAP_LTE_RRC_SUB_PCCH = 6
const GSMTAP_LTE_RRC_SUB_MCH = 7

const GSMTAP_LTE_NAS_SUB_PLAIN = 0

const GSMTAP_ARFCN_F_UPLINK = 0x4000

const GSMTAP_LOG_HDR_LEN = 84

/*-------------------------------------------------------------------
 *
 * Name:        gsmtap_header
 *
 * Purpose:     Build the fixed 16-byte GSMTAP header.
 *
 * Inputs:	pkt_type  - GSMTAP_TYPE_*.
 *		sub_type  - Type-specific channel discriminator.
 *		arfcn	  - Channel number plus flag bits.
 *		frame_nr  - Frame number, 0 when unknown.
 *
 *-----------------------------------------------------------------*/

func gsmtap_header(pkt_type int, sub_type int, arfcn int, frame_nr int) []byte {
	var hdr = make([]byte, GSMTAP_HDR_LEN)
	hdr[0] = GSMTAP_VERSION
	hdr[1] = GSMTAP_HDR_LEN / 4
	hdr[2] = byte(pkt_type)
	/* hdr[3] timeslot */
	binary.BigEndian.PutUint16(hdr[4:6], uint16(arfcn))
	/* hdr[6] signal dBm, hdr[7] SNR */
	binary.BigEndian.PutUint32(hdr[8:12], uint32(frame_nr))
	hdr[12] = byte(sub_type)
	/* hdr[13] antenna, hdr[14] sub-slot, hdr[15] reserved */
	return hdr
}

func gsmtap_lte_rrc(msg rrc_ota_message_t) []byte {
	var arfcn = msg.earfcn & 0x3FFF
	if msg.pdu_type == GSMTAP_LTE_RRC_SUB_UL_DCCH || msg.pdu_type == GSMTAP_LTE_RRC_SUB_UL_CCCH {
		arfcn |= GSMTAP_ARFCN_F_UPLINK
	}
	var hdr = gsmtap_header(GSMTAP_TYPE_LTE_RRC, msg.pdu_type, arfcn, msg.sfn)
	return append(hdr, msg.payload...)
}

func gsmtap_lte_nas(msg nas_ota_message_t) []byte {
	var arfcn = 0
	if !msg.incoming {
		arfcn = GSMTAP_ARFCN_F_UPLINK
	}
	var hdr = gsmtap_header(GSMTAP_TYPE_LTE_NAS, GSMTAP_LTE_NAS_SUB_PLAIN, arfcn, 0)
	return append(hdr, msg.payload...)
}

func gsmtap_lte_mac(tb mac_transport_block_t) []byte {
	var arfcn = 0
	if tb.direction == DIR_UL {
		arfcn = GSMTAP_ARFCN_F_UPLINK
	}
	var hdr = gsmtap_header(GSMTAP_TYPE_LTE_MAC, 0, arfcn, 0)
	return append(hdr, tb.mac_hdr...)
}

/*-------------------------------------------------------------------
 *
 * Name:        gsmtap_log
 *
 * Purpose:     Wrap a text line as an OSMOCORE_LOG packet.
 *
 * Description:	The log header is exactly 84 bytes: u32 seconds,
 *		u32 microseconds, 16-byte process name, u32 pid,
 *		u8 level, 3 pad bytes, 16-byte subsystem, 32-byte
 *		source file name, u32 source line.  Strings are
 *		NUL-padded and silently truncated.
 *
 *-----------------------------------------------------------------*/

func gsmtap_log(ts time.Time, subsys string, text string) []byte {
	var hdr = gsmtap_header(GSMTAP_TYPE_OSMOCORE_LOG, 0, 0, 0)

	var log = make([]byte, GSMTAP_LOG_HDR_LEN)
	binary.BigEndian.PutUint32(log[0:4], uint32(ts.Unix()))
	binary.BigEndian.PutUint32(log[4:8], uint32(ts.Nanosecond()/1000))
	copy(log[8:24], "diagtap")
	/* log[24:28] pid */
	log[28] = 3 /* LOGL_INFO */
	copy(log[32:48], subsys)
	/* log[48:80] source file, log[80:84] line number */

	return append(append(hdr, log...), text...)
}
