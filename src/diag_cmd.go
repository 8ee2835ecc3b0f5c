package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Builders for the DIAG requests we send to a live
 *		device: version queries, event report on/off, and the
 *		LTE log mask.
 *
 * Description:	These produce bare request payloads; diag_encapsulate
 *		adds the CRC and HDLC framing before the bytes hit the
 *		serial port.  Capture file replay never sends anything.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
)

const LOG_CONFIG_DISABLE_OP = 0
const LOG_CONFIG_RETRIEVE_ID_RANGES_OP = 1
const LOG_CONFIG_SET_MASK_OP = 3

// Equipment id selecting the LTE log code family (0xBxxx).
const LOG_EQUIP_ID_LTE = 0xB

// Log codes enabled on a live device.  Offline decode handles
// whatever the capture contains regardless of this list.
var lte_log_codes = []uint16{
	LOG_LTE_MAC_RACH_ATTEMPT,
	LOG_LTE_MAC_DL_TRANSPORT,
	LOG_LTE_MAC_UL_TRANSPORT,
	LOG_LTE_RRC_OTA,
	LOG_LTE_RRC_MIB,
	LOG_LTE_NAS_EMM_OTA_IN,
	LOG_LTE_NAS_EMM_OTA_OUT,
	LOG_LTE_ML1_SCELL_MEAS,
	LOG_LTE_ML1_NCELL_MEAS,
	LOG_LTE_ML1_SCELL_MEAS_RSP,
}

func cmd_verno() []byte {
	return []byte{DIAG_VERNO_F}
}

func cmd_ext_build_id() []byte {
	return []byte{DIAG_EXT_BUILD_ID_F}
}

func cmd_event_report(enable bool) []byte {
	if enable {
		return []byte{DIAG_EVENT_REPORT_F, 0x01}
	}
	return []byte{DIAG_EVENT_REPORT_F, 0x00}
}

/*-------------------------------------------------------------------
 *
 * Name:        cmd_log_mask_lte
 *
 * Purpose:     Build a DIAG_LOG_CONFIG_F SET_MASK request enabling
 *		the LTE log codes.
 *
 * Description:	u8 cmd, 3 pad bytes, u32 operation, u32 equipment id,
 *		u32 highest item id, then one bit per item.  Item ids
 *		are the low twelve bits of the log code.
 *
 *-----------------------------------------------------------------*/

func cmd_log_mask_lte() []byte {
	var last_item = 0
	for _, code := range lte_log_codes {
		if item := int(code & 0x0FFF); item > last_item {
			last_item = item
		}
	}

	var pkt = make([]byte, 16+(last_item+7)/8)
	pkt[0] = DIAG_LOG_CONFIG_F
	binary.LittleEndian.PutUint32(pkt[4:8], LOG_CONFIG_SET_MASK_OP)
	binary.LittleEndian.PutUint32(pkt[8:12], LOG_EQUIP_ID_LTE)
	binary.LittleEndian.PutUint32(pkt[12:16], uint32(last_item))

	for _, code := range lte_log_codes {
		var item = int(code & 0x0FFF)
		pkt[16+item/8] |= 1 << (item % 8)
	}
	return pkt
}

func cmd_log_disable() []byte {
	var pkt = make([]byte, 8)
	pkt[0] = DIAG_LOG_CONFIG_F
	binary.LittleEndian.PutUint32(pkt[4:8], LOG_CONFIG_DISABLE_OP)
	return pkt
}
