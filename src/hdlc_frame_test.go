package diagtap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDeframerRoundTrip(t *testing.T) {
	// Whatever goes through diag_encapsulate must come back out of the
	// deframer unchanged, however the wire bytes are chunked.
	rapid.Check(t, func(t *rapid.T) {
		var payload = rapid.SliceOfN(rapid.Byte(), 1, 512).Draw(t, "payload")
		var wire = diag_encapsulate(payload)

		var df deframer_t
		var records []raw_record_t
		for len(wire) > 0 {
			var n = rapid.IntRange(1, len(wire)).Draw(t, "chunk")
			records = append(records, deframer_feed(&df, wire[:n], 0, time.Unix(0, 0))...)
			wire = wire[n:]
		}

		require.Len(t, records, 1)
		assert.Equal(t, payload, records[0].payload)
		assert.True(t, records[0].crc_valid)
	})
}

func TestDeframerMultipleFrames(t *testing.T) {
	var p1 = []byte{0x10, 0x00, 0x01}
	var p2 = []byte{0x60, 0x7E, 0x7D} /* control bytes inside the payload must survive escaping */

	var wire = append(diag_encapsulate(p1), diag_encapsulate(p2)...)

	var df deframer_t
	var records = deframer_feed(&df, wire, 1, time.Unix(100, 0))

	require.Len(t, records, 2)
	assert.Equal(t, p1, records[0].payload)
	assert.Equal(t, p2, records[1].payload)
	assert.Equal(t, 1, records[0].radio_index)
}

func TestDeframerBadCrc(t *testing.T) {
	var payload = []byte{0x00, 0x01, 0x02}
	var good = dm_crc16(payload)
	var bad = good ^ 0xFFFF

	var framed = append([]byte{}, payload...)
	framed = append(framed, byte(bad&0xFF), byte(bad>>8))
	var wire = append(hdlc_escape(framed), DIAG_CONTROL)

	var df deframer_t
	var records = deframer_feed(&df, wire, 0, time.Unix(0, 0))
	require.Len(t, records, 1)
	assert.False(t, records[0].crc_valid)
	assert.Equal(t, 1, df.crc_errors)

	// Same frame with checking disabled passes untagged.
	var df2 = deframer_t{disable_crc_check: true}
	records = deframer_feed(&df2, wire, 0, time.Unix(0, 0))
	require.Len(t, records, 1)
	assert.True(t, records[0].crc_valid)

	// And with drop_bad_crc it never comes out.
	var df3 = deframer_t{drop_bad_crc: true}
	records = deframer_feed(&df3, wire, 0, time.Unix(0, 0))
	assert.Empty(t, records)
}

func TestDeframerSkipsRunts(t *testing.T) {
	// Frames shorter than a CRC cannot be records; commonly seen as
	// back-to-back 0x7E delimiters.
	var df deframer_t
	var wire = append([]byte{DIAG_CONTROL, DIAG_CONTROL, 0x42, DIAG_CONTROL}, diag_encapsulate([]byte{1, 2, 3})...)
	var records = deframer_feed(&df, wire, 0, time.Unix(0, 0))
	require.Len(t, records, 1)
	assert.Equal(t, []byte{1, 2, 3}, records[0].payload)
}

func TestDeframerResyncOnOversize(t *testing.T) {
	var df deframer_t

	// A delimiter-free flood larger than any legal frame drops the
	// garbage, then a valid frame decodes normally.
	var garbage = make([]byte, 3*MAX_DIAG_FRAME)
	for i := range garbage {
		garbage[i] = 0x55
	}
	var records = deframer_feed(&df, garbage, 0, time.Unix(0, 0))
	assert.Empty(t, records)
	assert.Positive(t, df.resyncs)

	// Resync consumes up to the next delimiter, so the recovery frame
	// is only seen once a fresh 0x7e boundary goes by.
	var payload = []byte{0x10, 0x20, 0x30}
	var stream = append([]byte{DIAG_CONTROL}, diag_encapsulate(payload)...)
	records = deframer_feed(&df, stream, 0, time.Unix(0, 0))
	require.Len(t, records, 1)
	assert.Equal(t, payload, records[0].payload)
}

func TestPeekLogCode(t *testing.T) {
	var pkt = make([]byte, 16)
	pkt[0] = DIAG_LOG_F
	pkt[6] = 0x61
	pkt[7] = 0xB0
	assert.Equal(t, uint16(0xB061), peek_log_code(pkt))

	assert.Equal(t, uint16(0), peek_log_code([]byte{0x60, 0x00}))
	assert.Equal(t, uint16(0), peek_log_code(nil))
}
