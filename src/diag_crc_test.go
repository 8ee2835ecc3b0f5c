package diagtap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDmCrc16KnownAnswer(t *testing.T) {
	// CRC-16/X-25 check value.
	assert.Equal(t, uint16(0x906E), dm_crc16([]byte("123456789")))
}

func TestDmCrcAppendCheck(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var payload = rapid.SliceOf(rapid.Byte()).Draw(t, "payload")

		var framed = dm_crc_append(payload)
		require.Len(t, framed, len(payload)+2)
		assert.True(t, dm_crc_check(framed), "appended CRC must verify")
	})
}

func TestDmCrcDetectsSingleBitErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var payload = rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "payload")
		var framed = dm_crc_append(payload)

		var pos = rapid.IntRange(0, len(framed)-1).Draw(t, "pos")
		var bit = rapid.IntRange(0, 7).Draw(t, "bit")
		framed[pos] ^= 1 << bit

		assert.False(t, dm_crc_check(framed), "flipped bit must fail the check")
	})
}

func TestDmCrcCheckShortFrame(t *testing.T) {
	assert.False(t, dm_crc_check(nil))
	assert.False(t, dm_crc_check([]byte{0x01}))
	assert.False(t, dm_crc_check([]byte{0x01, 0x02}))
}
