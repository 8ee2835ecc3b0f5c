package diagtap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRrcStateChange(t *testing.T) {
	var d = test_decoder(t)

	var events = parse_event_rrc_state_change(d, event_meta{}, EVENT_LTE_RRC_STATE_CHANGE, []byte{0x04})
	require.Len(t, events, 1)
	assert.Equal(t, "RRC_CONNECTED", events[0].(rrc_state_change_t).state)

	// Unmapped states come out as bare hex digits.
	events = parse_event_rrc_state_change(d, event_meta{}, EVENT_LTE_RRC_STATE_CHANGE, []byte{0x09})
	require.Len(t, events, 1)
	assert.Equal(t, "09", events[0].(rrc_state_change_t).state)

	assert.Empty(t, parse_event_rrc_state_change(d, event_meta{}, EVENT_LTE_RRC_STATE_CHANGE, nil))
}

func TestEventRrcDlMsg(t *testing.T) {
	var d = test_decoder(t)

	var events = parse_event_rrc_dl_msg(d, event_meta{}, EVENT_LTE_RRC_DL_MSG, []byte{0x01, 0x4B})
	require.Len(t, events, 1)
	var msg = events[0].(rrc_message_t)
	assert.Equal(t, DIR_DL, msg.direction)
	assert.Equal(t, "BCCH", msg.channel)
	assert.Equal(t, "RRCConnectionSetup", msg.message_type)

	events = parse_event_rrc_dl_msg(d, event_meta{}, EVENT_LTE_RRC_DL_MSG, []byte{0x09, 0xEE})
	require.Len(t, events, 1)
	msg = events[0].(rrc_message_t)
	assert.Equal(t, "Unknown (09)", msg.channel)
	assert.Equal(t, "Unknown (ee)", msg.message_type)
}

func TestEventRrcUlMsg(t *testing.T) {
	var d = test_decoder(t)

	var events = parse_event_rrc_ul_msg(d, event_meta{}, EVENT_LTE_RRC_UL_MSG, []byte{0x06, 0x84})
	require.Len(t, events, 1)
	var msg = events[0].(rrc_message_t)
	assert.Equal(t, DIR_UL, msg.direction)
	assert.Equal(t, "DCCH", msg.channel)
	assert.Equal(t, "RRCConnectionSetupComplete", msg.message_type)
}

func TestEventRrcStateCause(t *testing.T) {
	var d = test_decoder(t)

	var events = parse_event_rrc_state_cause(d, event_meta{}, EVENT_LTE_RRC_STATE_CHANGE_TRIGGER, []byte{0x85})
	require.Len(t, events, 1)
	assert.Equal(t, "RRCConnectionRelease", events[0].(rrc_state_cause_t).cause)

	events = parse_event_rrc_state_cause(d, event_meta{}, EVENT_LTE_RRC_STATE_CHANGE_TRIGGER, []byte{0x42})
	require.Len(t, events, 1)
	assert.Equal(t, "0x42", events[0].(rrc_state_cause_t).cause)
}

func TestEventPhrReport(t *testing.T) {
	var d = test_decoder(t)

	var events = parse_event_phr_report(d, event_meta{}, EVENT_LTE_ML1_PHR_REPORT, []byte{38})
	require.Len(t, events, 1)
	var phr = events[0].(phr_report_t)
	assert.Equal(t, 38, phr.phr)
	assert.Equal(t, 15, phr.ph_db)

	// High bits outside the PHR field are masked off.
	events = parse_event_phr_report(d, event_meta{}, EVENT_LTE_ML1_PHR_REPORT, []byte{0xC0 | 5})
	require.Len(t, events, 1)
	phr = events[0].(phr_report_t)
	assert.Equal(t, 5, phr.phr)
	assert.Equal(t, -18, phr.ph_db)

	events = parse_event_phr_report(d, event_meta{}, EVENT_LTE_ML1_PHR_REPORT, []byte{63})
	require.Len(t, events, 1)
	assert.Equal(t, 40, events[0].(phr_report_t).ph_db)
}

func TestEventGenericNamed(t *testing.T) {
	var d = test_decoder(t)

	// Timer status has no structured parser; it becomes a named
	// generic event with hex content.
	var events = d.decode_one_event(event_meta{}, EVENT_LTE_RRC_TIMER_STATUS, []byte{0x01, 0x02})
	require.Len(t, events, 1)
	var gen = events[0].(generic_event_t)
	assert.Equal(t, "LTE_RRC_TIMER_STATUS", gen.name)
	assert.Equal(t, "01 02", gen.content)
	assert.Equal(t, "LTE_RRC_TIMER_STATUS: 01 02", gen.summary())
}
