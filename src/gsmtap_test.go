package diagtap

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGsmtapHeader(t *testing.T) {
	var hdr = gsmtap_header(GSMTAP_TYPE_LTE_RRC, GSMTAP_LTE_RRC_SUB_BCCH_DL_SCH, 6300, 512)
	require.Len(t, hdr, GSMTAP_HDR_LEN)
	assert.Equal(t, byte(2), hdr[0], "version")
	assert.Equal(t, byte(4), hdr[1], "header length in words")
	assert.Equal(t, byte(GSMTAP_TYPE_LTE_RRC), hdr[2])
	assert.Equal(t, uint16(6300), binary.BigEndian.Uint16(hdr[4:6]))
	assert.Equal(t, uint32(512), binary.BigEndian.Uint32(hdr[8:12]))
	assert.Equal(t, byte(GSMTAP_LTE_RRC_SUB_BCCH_DL_SCH), hdr[12])
}

func TestGsmtapLteRrcDirection(t *testing.T) {
	var dl = gsmtap_lte_rrc(rrc_ota_message_t{
		earfcn: 6300, sfn: 100, pdu_type: GSMTAP_LTE_RRC_SUB_DL_DCCH,
		payload: []byte{0x22, 0x04}})
	require.Len(t, dl, GSMTAP_HDR_LEN+2)
	assert.Zero(t, binary.BigEndian.Uint16(dl[4:6])&GSMTAP_ARFCN_F_UPLINK)
	assert.Equal(t, []byte{0x22, 0x04}, dl[GSMTAP_HDR_LEN:])

	var ul = gsmtap_lte_rrc(rrc_ota_message_t{
		earfcn: 6300, pdu_type: GSMTAP_LTE_RRC_SUB_UL_DCCH, payload: []byte{0x01}})
	assert.NotZero(t, binary.BigEndian.Uint16(ul[4:6])&GSMTAP_ARFCN_F_UPLINK)
	assert.Equal(t, uint16(6300), binary.BigEndian.Uint16(ul[4:6])&0x3FFF)
}

func TestGsmtapLteRrcWideEarfcn(t *testing.T) {
	// EARFCNs beyond the 14-bit channel field are truncated, not
	// allowed to clobber the flag bits.
	var pkt = gsmtap_lte_rrc(rrc_ota_message_t{earfcn: 66986, pdu_type: GSMTAP_LTE_RRC_SUB_DL_DCCH})
	assert.Equal(t, uint16(66986&0x3FFF), binary.BigEndian.Uint16(pkt[4:6]))
}

func TestGsmtapLteNasDirection(t *testing.T) {
	var in = gsmtap_lte_nas(nas_ota_message_t{incoming: true, payload: []byte{0x07}})
	assert.Zero(t, binary.BigEndian.Uint16(in[4:6])&GSMTAP_ARFCN_F_UPLINK)

	var out = gsmtap_lte_nas(nas_ota_message_t{incoming: false, payload: []byte{0x07}})
	assert.NotZero(t, binary.BigEndian.Uint16(out[4:6])&GSMTAP_ARFCN_F_UPLINK)
	assert.Equal(t, byte(GSMTAP_TYPE_LTE_NAS), out[2])
}

func TestGsmtapLteMac(t *testing.T) {
	var pkt = gsmtap_lte_mac(mac_transport_block_t{
		direction: DIR_DL, mac_hdr: []byte{0x3D, 0x01, 0x15}})
	assert.Equal(t, byte(GSMTAP_TYPE_LTE_MAC), pkt[2])
	assert.Equal(t, []byte{0x3D, 0x01, 0x15}, pkt[GSMTAP_HDR_LEN:])

	var ul = gsmtap_lte_mac(mac_transport_block_t{direction: DIR_UL, mac_hdr: []byte{0x20}})
	assert.NotZero(t, binary.BigEndian.Uint16(ul[4:6])&GSMTAP_ARFCN_F_UPLINK)
}

func TestGsmtapLog(t *testing.T) {
	var ts = time.Date(2024, time.July, 1, 12, 0, 5, 250_000_000, time.UTC)
	var pkt = gsmtap_log(ts, "KPI", "LTE RRC State: RRC_CONNECTED")
	require.Len(t, pkt, GSMTAP_HDR_LEN+GSMTAP_LOG_HDR_LEN+len("LTE RRC State: RRC_CONNECTED"))

	assert.Equal(t, byte(GSMTAP_TYPE_OSMOCORE_LOG), pkt[2])

	var log = pkt[GSMTAP_HDR_LEN:]
	assert.Equal(t, uint32(ts.Unix()), binary.BigEndian.Uint32(log[0:4]))
	assert.Equal(t, uint32(250_000), binary.BigEndian.Uint32(log[4:8]))
	assert.Equal(t, "diagtap", printable_string(log[8:24]))
	assert.Equal(t, byte(3), log[28], "LOGL_INFO")
	assert.Equal(t, "KPI", printable_string(log[32:48]))
	assert.Equal(t, "LTE RRC State: RRC_CONNECTED", string(pkt[GSMTAP_HDR_LEN+GSMTAP_LOG_HDR_LEN:]))
}
