package diagtap

// Outer record decoder tests: command dispatch, the log container
// header, the packed event-report walk and the QXDM clock.

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func test_decoder(t *testing.T) *decoder_t {
	t.Helper()
	var cfg = config_defaults()
	cfg.Events = true
	cfg.EventsFile = "/nonexistent" /* builtin names only */
	return decoder_init(cfg)
}

func TestSanitizeRadioId(t *testing.T) {
	var cases = map[int]int{
		-1:  0,
		0:   0,
		1:   0,
		2:   1,
		3:   1,
		100: 1,
	}
	for wire, want := range cases {
		assert.Equal(t, want, sanitize_radio_id(wire), "wire id %d", wire)
	}
}

func TestParseQxdmTs(t *testing.T) {
	var _, ok = parse_qxdm_ts(0)
	assert.False(t, ok, "zero means no time reference")

	// 800 units of 1/800 s = exactly one second past the GPS epoch.
	ts, ok := parse_qxdm_ts(uint64(800) << 16)
	require.True(t, ok)
	assert.Equal(t, time.Date(1980, time.January, 6, 0, 0, 1, 0, time.UTC), ts)

	// Sub-second part: 400 units is half a second.
	ts, ok = parse_qxdm_ts(uint64(400) << 16)
	require.True(t, ok)
	assert.Equal(t, time.Date(1980, time.January, 6, 0, 0, 0, 500_000_000, time.UTC), ts)
}

func TestDecodeLogDispatch(t *testing.T) {
	var d = test_decoder(t)

	// DIAG_LOG_F carrying an idle serving cell measurement (0xB17F v1).
	var body = []byte{
		0x01,       /* version 1 */
		0x9C, 0x18, /* earfcn 6300 */
		0x6A, 0x00, /* pci 106 */
		0x05,       /* priority 5 */
		0x00, 0x05, /* rsrp 1280 -> -100 dBm */
		0xA0, 0x02, /* rssi 672 -> -68 dBm */
		0xF0, 0x00, /* rsrq 240 -> -15 dB */
	}
	var pkt = make([]byte, 16, 16+len(body))
	pkt[0] = DIAG_LOG_F
	binary.LittleEndian.PutUint16(pkt[4:6], uint16(len(body)+12))
	binary.LittleEndian.PutUint16(pkt[6:8], LOG_LTE_ML1_SCELL_MEAS)
	binary.LittleEndian.PutUint64(pkt[8:16], uint64(800)<<16)
	pkt = append(pkt, body...)

	var events = decode_record(d, raw_record_t{radio_index: 0, payload: pkt})
	require.Len(t, events, 1)
	var cell, ok = events[0].(cell_measurement_t)
	require.True(t, ok)
	assert.Equal(t, 6300, cell.earfcn)
	assert.Equal(t, 106, cell.pci)
	assert.Equal(t, -100, cell.rsrp)
	assert.Equal(t, -68, cell.rssi)
	assert.Equal(t, -15, cell.rsrq)

	// The QXDM timestamp replaces the arrival time.
	assert.Equal(t, time.Date(1980, time.January, 6, 0, 0, 1, 0, time.UTC),
		cell.meta().ts)
}

func TestDecodeLogUnknownCode(t *testing.T) {
	var d = test_decoder(t)

	var pkt = make([]byte, 20)
	pkt[0] = DIAG_LOG_F
	binary.LittleEndian.PutUint16(pkt[4:6], 16)
	binary.LittleEndian.PutUint16(pkt[6:8], 0xB990) /* not in the table */

	assert.Empty(t, decode_record(d, raw_record_t{payload: pkt}))
}

func TestDecodeEventReport(t *testing.T) {
	var d = test_decoder(t)

	// One full-timestamp event: RRC state change to RRC_CONNECTED.
	var pkt = []byte{DIAG_EVENT_REPORT_F, 0x00, 0x00}
	var field = make([]byte, 2)
	binary.LittleEndian.PutUint16(field, uint16(EVENT_LTE_RRC_STATE_CHANGE)|1<<13)
	pkt = append(pkt, field...)
	var ts = make([]byte, 8)
	binary.LittleEndian.PutUint64(ts, uint64(800)<<16)
	pkt = append(pkt, ts...)
	pkt = append(pkt, 0x04) /* RRC_CONNECTED */

	var events = decode_record(d, raw_record_t{payload: pkt})
	require.Len(t, events, 1)
	var st, ok = events[0].(rrc_state_change_t)
	require.True(t, ok)
	assert.Equal(t, "RRC_CONNECTED", st.state)
	assert.Equal(t, time.Date(1980, time.January, 6, 0, 0, 1, 0, time.UTC),
		st.meta().ts)
}

func TestDecodeEventReportTruncatedTs(t *testing.T) {
	var d = test_decoder(t)
	var arrival = time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)

	// Truncated-timestamp form keeps the arrival time.  Two events in
	// one report, the second with no payload.
	var pkt = []byte{DIAG_EVENT_REPORT_F, 0x00, 0x00}
	var field = make([]byte, 2)
	binary.LittleEndian.PutUint16(field, uint16(EVENT_LTE_RRC_STATE_CHANGE)|1<<13|1<<15)
	pkt = append(pkt, field...)
	pkt = append(pkt, 0x00, 0x00) /* truncated timestamp, skipped */
	pkt = append(pkt, 0x02)       /* RRC_IDLE_CAMPED */
	binary.LittleEndian.PutUint16(field, 2000|1<<15) /* unmapped id, no payload */
	pkt = append(pkt, field...)
	pkt = append(pkt, 0x00, 0x00)

	var events = decode_record(d, raw_record_t{arrival_time: arrival, payload: pkt})
	require.Len(t, events, 2)
	var st, ok = events[0].(rrc_state_change_t)
	require.True(t, ok)
	assert.Equal(t, "RRC_IDLE_CAMPED", st.state)
	assert.Equal(t, arrival, st.meta().ts)

	gen, ok := events[1].(generic_event_t)
	require.True(t, ok)
	assert.Equal(t, "EVENT_2000", gen.name)
}

func TestDecodeEventsDisabled(t *testing.T) {
	var cfg = config_defaults()
	var d = decoder_init(cfg)

	var pkt = []byte{DIAG_EVENT_REPORT_F, 0x00, 0x00, 0x46, 0x26,
		0, 0, 0, 0, 0, 0, 0, 0, 0x04}
	assert.Empty(t, decode_record(d, raw_record_t{payload: pkt}))
}

func TestDecodeMultiRadio(t *testing.T) {
	var d = test_decoder(t)

	// Wrap an event report for subscription 2, which lands on radio
	// slot 1.
	var inner = []byte{DIAG_EVENT_REPORT_F, 0x00, 0x00}
	var field = make([]byte, 2)
	binary.LittleEndian.PutUint16(field, uint16(EVENT_LTE_RRC_STATE_CHANGE)|1<<13|1<<15)
	inner = append(inner, field...)
	inner = append(inner, 0x00, 0x00, 0x04)

	var pkt = []byte{DIAG_MULTI_RADIO_CMD_F, 0x00, 0x00, 0x00}
	var id = make([]byte, 4)
	binary.LittleEndian.PutUint32(id, 2)
	pkt = append(pkt, id...)
	pkt = append(pkt, inner...)

	var events = decode_record(d, raw_record_t{radio_index: 0, payload: pkt})
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].meta().radio)
}

func TestDecodeVerno(t *testing.T) {
	var d = test_decoder(t)

	var pkt = make([]byte, 47)
	pkt[0] = DIAG_VERNO_F
	copy(pkt[1:12], "Feb 25 2021")
	copy(pkt[12:20], "12:00:00")
	copy(pkt[20:31], "Feb 25 2021")
	copy(pkt[31:39], "12:00:00")
	copy(pkt[39:47], "MSM8916")

	var events = decode_record(d, raw_record_t{payload: pkt})
	require.Len(t, events, 1)
	var line, ok = events[0].(log_line_t)
	require.True(t, ok)
	assert.Equal(t,
		"Compile: Feb 25 2021/12:00:00, Release: Feb 25 2021/12:00:00, Chipset: MSM8916",
		line.message)
}

func TestDecodeTerseMessagesSkipped(t *testing.T) {
	var d = test_decoder(t)
	for _, cmd := range []byte{DIAG_EXT_MSG_F, DIAG_EXT_MSG_TERSE_F,
		DIAG_QSR_EXT_MSG_TERSE_F, DIAG_QSR4_EXT_MSG_TERSE_F} {
		var pkt = append([]byte{cmd}, make([]byte, 32)...)
		assert.Empty(t, decode_record(d, raw_record_t{payload: pkt}))
	}
}

func TestPrintableString(t *testing.T) {
	assert.Equal(t, "MSM8916", printable_string([]byte("MSM8916\x00\x00")))
	assert.Equal(t, "a.b", printable_string([]byte{'a', 0x01, 'b'}))
}

func TestHexContent(t *testing.T) {
	assert.Equal(t, "", hex_content(nil))
	assert.Equal(t, "01 ab ff", hex_content([]byte{0x01, 0xAB, 0xFF}))
}
