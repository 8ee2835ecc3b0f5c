package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	KPI state tracker: fold the decoded event stream into
 *		per-radio state and produce the KPI emissions.
 *
 * Description:	One radio_kpi_context per radio index, fixed two-slot
 *		table, never shared.  All periodic behavior (the 2 s
 *		DL MCS throttle, the 1 s combined uplink line, the
 *		throughput window, the stale-cell reprint, the RACH
 *		timeout) compares deadlines against record timestamps.
 *		There are no timers: time advances only when records
 *		arrive, so a stalled input stalls periodic emission.
 *		That keeps replay of a capture file deterministic.
 *
 *		When several emissions fall out of one record they are
 *		ordered: cell measurements, RACH, RRC state, then
 *		KPI/throughput lines.
 *
 *---------------------------------------------------------------*/

import (
	"math"
	"strings"
	"time"
)

const RRC_CONNECTED_STATE = "RRC_CONNECTED"

const DL_MCS_THROTTLE = 2 * time.Second
const COMBINED_KPI_INTERVAL = time.Second
const SCELL_REPRINT_AFTER = 2 * time.Second
const RACH_TIMEOUT = 3 * time.Second
const THROUGHPUT_INTERVAL = time.Second
const THROUGHPUT_RETAIN = 5 * time.Second

// Pending RACH attempt, armed by a Msg1 fragment and resolved by a
// Msg2 fragment or the timeout.
type rach_attempt_t struct {
	deadline time.Time

	attempt        *int
	contention     *int
	preamble       *int
	preamble_power *int
}

type throughput_sample_t struct {
	ts   time.Time
	bits int

	uplink bool
	mcs    *int
	ndi    *int
}

type radio_kpi_context struct {
	last_rrc_state string

	last_primary_cell    *primary_cell_emission
	last_primary_cell_ts time.Time

	pending_rach *rach_attempt_t

	dl_hold_mcs *int
	dl_hold_prb int
	dl_next_ok  time.Time

	combined_next_ok time.Time
	last_ul_mcs      *int
	last_tx_power    *int
	last_ta          *int

	last_earfcn        *int
	last_bandwidth_prb int
	last_tc_rnti       *int

	ring        []throughput_sample_t
	ring_anchor time.Time
}

type kpi_tracker struct {
	cfg    *TapConfig
	hint_prb int /* 0 = no CLI bandwidth hint */
	radios [MAX_RADIOS]*radio_kpi_context
}

func kpi_tracker_init(cfg *TapConfig) *kpi_tracker {
	var t = &kpi_tracker{cfg: cfg}
	if cfg.DLBandwidthMHz != 0 {
		t.hint_prb = lte_mhz_to_prb[cfg.DLBandwidthMHz]
	}
	for i := range t.radios {
		t.radios[i] = &radio_kpi_context{}
	}
	return t
}

func (ctx *radio_kpi_context) connected() bool {
	return ctx.last_rrc_state == RRC_CONNECTED_STATE
}

// tick_t gathers one record's emissions in their fixed order.
type tick_t struct {
	cell, rach, state, kpi []kpi_emission
}

func (tk *tick_t) all() []kpi_emission {
	var out []kpi_emission
	out = append(out, tk.cell...)
	out = append(out, tk.rach...)
	out = append(out, tk.state...)
	return append(out, tk.kpi...)
}

/*-------------------------------------------------------------------
 *
 * Name:        process
 *
 * Purpose:     Fold one decoded event into the tracker; return the
 *		emissions it produced, in canonical order.
 *
 *-----------------------------------------------------------------*/

func (t *kpi_tracker) process(ev decoded_event) []kpi_emission {
	var m = ev.meta()
	if m.radio < 0 || m.radio >= MAX_RADIOS {
		return nil
	}
	var ctx = t.radios[m.radio]
	var tk = &tick_t{}

	// Deadline checks run against every record's clock, whatever the
	// record is about.
	t.check_scell_reprint(ctx, m, tk)
	t.check_rach_timeout(ctx, m, tk)

	switch e := ev.(type) {
	case cell_measurement_t:
		t.on_cell_measurement(ctx, e, tk)
	case mac_transport_block_t:
		t.on_transport_block(ctx, e, tk)
	case phr_report_t:
		t.on_phr_report(ctx, e, tk)
	case timing_advance_t:
		t.on_timing_advance(ctx, e, tk)
	case rach_event_t:
		t.on_rach(ctx, e, tk)
	case rrc_state_change_t:
		t.on_rrc_state(ctx, e, tk)
	case rrc_state_cause_t:
		var out = rrc_state_cause_emission{emission_base: emit_base("lte_rrc_state_cause", e.event_meta)}
		out.Cause = e.cause
		tk.state = append(tk.state, out)
	case rrc_message_t:
		t.on_rrc_message(ctx, e, tk)
	case generic_event_t:
		if strings.Contains(e.name, "FAILURE") {
			var out = rrc_event_emission{emission_base: emit_base("rrc_event", e.event_meta)}
			out.Name = e.name
			tk.kpi = append(tk.kpi, out)
		}
	case rrc_ota_message_t:
		ctx.last_earfcn = int_ptr(e.earfcn)
	case bandwidth_info_t:
		ctx.last_earfcn = int_ptr(e.earfcn)
		ctx.last_bandwidth_prb = e.n_prb
	case log_line_t:
		var out = log_emission{emission_base: emit_base("log", e.event_meta)}
		out.Message = e.message
		tk.kpi = append(tk.kpi, out)
	}

	return tk.all()
}

/*
 * Rule: while Connected, if more than 2 s passed since the primary
 * cell was last shown, reprint the stored emission.  The modem often
 * stops sending 0xB193 mid-connection and the cell identity would
 * otherwise scroll away.
 */

func (t *kpi_tracker) check_scell_reprint(ctx *radio_kpi_context, m event_meta, tk *tick_t) {
	if !ctx.connected() || ctx.last_primary_cell == nil {
		return
	}
	if m.ts.Sub(ctx.last_primary_cell_ts) <= SCELL_REPRINT_AFTER {
		return
	}
	var out = *ctx.last_primary_cell
	out.emission_base = emit_base("lte_primary_cell", m)
	ctx.last_primary_cell_ts = m.ts
	tk.cell = append(tk.cell, out)
}

func (t *kpi_tracker) on_cell_measurement(ctx *radio_kpi_context, e cell_measurement_t, tk *tick_t) {
	ctx.last_earfcn = int_ptr(e.earfcn)

	switch e.role {
	case CELL_PRIMARY:
		var out = primary_cell_emission{emission_base: emit_base("lte_primary_cell", e.event_meta)}
		out.Earfcn = int_ptr(e.earfcn)
		out.Pci = int_ptr(e.pci)
		out.Rsrp = int_ptr(e.rsrp)
		out.Rssi = int_ptr(e.rssi)
		out.Rsrq = int_ptr(e.rsrq)
		out.Priority = e.priority
		ctx.last_primary_cell = &out
		ctx.last_primary_cell_ts = e.ts
		tk.cell = append(tk.cell, out)

	case CELL_PRIMARY_CONNECTED:
		var out = scell_connected_emission{emission_base: emit_base("lte_scell_connected", e.event_meta)}
		out.Pci = int_ptr(e.pci)
		out.Rsrp = int_ptr(e.rsrp)
		out.Rssi = int_ptr(e.rssi)
		out.Rsrq = int_ptr(e.rsrq)
		ctx.last_primary_cell_ts = e.ts
		tk.cell = append(tk.cell, out)

	case CELL_NEIGHBOR:
		var out = ncell_emission{emission_base: emit_base("lte_ncell", e.event_meta)}
		out.CellIndex = int_ptr(e.cell_index)
		out.Earfcn = int_ptr(e.earfcn)
		out.Pci = int_ptr(e.pci)
		out.Rsrp = int_ptr(e.rsrp)
		out.Rssi = int_ptr(e.rssi)
		out.Rsrq = int_ptr(e.rsrq)
		tk.cell = append(tk.cell, out)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        on_transport_block
 *
 * Purpose:     DL: derive MCS from TBS, throttled to one line per 2 s
 *		holding the latest value.  UL: MCS straight from the
 *		grant, folded into the combined line while Connected.
 *		Both feed the throughput window while Connected.
 *
 *-----------------------------------------------------------------*/

func (t *kpi_tracker) on_transport_block(ctx *radio_kpi_context, e mac_transport_block_t, tk *tick_t) {
	if e.direction == DIR_DL {
		var prb = t.hint_prb
		if prb == 0 {
			prb = ctx.last_bandwidth_prb
		}
		if prb != 0 {
			if mcs, ok := mcs_from_tbs(e.tbs_bits, prb); ok {
				ctx.dl_hold_mcs = int_ptr(mcs)
				ctx.dl_hold_prb = prb
			}
		}
		// Emit held value at the throttle boundary.  DL MCS is shown
		// in Connected state only; the line floods during downloads
		// otherwise.
		if ctx.dl_hold_mcs != nil && ctx.connected() && !e.ts.Before(ctx.dl_next_ok) {
			var out = kpi_dl_emission{emission_base: emit_base("lte_kpi_dl", e.event_meta)}
			out.BwMhz = float_ptr(bandwidth_mhz(ctx.dl_hold_prb))
			out.Mcs = ctx.dl_hold_mcs
			out.n_prb = ctx.dl_hold_prb
			ctx.dl_next_ok = e.ts.Add(DL_MCS_THROTTLE)
			tk.kpi = append(tk.kpi, out)
		}
		t.feed_throughput(ctx, e, nil, nil, tk)
		return
	}

	var mcs *int
	if e.mcs != nil {
		var v = *e.mcs
		if t.cfg.InvertULMCS {
			v = 28 - v
		}
		mcs = int_ptr(v)
	}

	if ctx.connected() {
		if mcs != nil {
			ctx.last_ul_mcs = mcs
		}
		t.maybe_combined(ctx, e.event_meta, tk)
	} else if mcs != nil {
		var out = kpi_ul_emission{emission_base: emit_base("lte_kpi_ul", e.event_meta)}
		out.Mcs = mcs
		tk.kpi = append(tk.kpi, out)
	}
	t.feed_throughput(ctx, e, mcs, e.ndi, tk)
}

/*
 * Estimated TX power from the headroom report.  The modem reports
 * exactly 23 dBm (max power) between transmission bursts, which would
 * read as continuous full-power transmission; those are dropped.
 */

func (t *kpi_tracker) on_phr_report(ctx *radio_kpi_context, e phr_report_t, tk *tick_t) {
	var tx int
	if t.cfg.InvertTXPower {
		tx = clamp_int(e.ph_db-7, -50, 23)
	} else {
		tx = clamp_int(23-e.ph_db, -50, 23)
	}
	if tx == 23 {
		return
	}

	if ctx.connected() {
		ctx.last_tx_power = int_ptr(tx)
		t.maybe_combined(ctx, e.event_meta, tk)
		return
	}
	var out = kpi_tx_emission{emission_base: emit_base("lte_kpi_tx", e.event_meta)}
	out.TxPowerDbm = int_ptr(tx)
	tk.kpi = append(tk.kpi, out)
}

func (t *kpi_tracker) on_timing_advance(ctx *radio_kpi_context, e timing_advance_t, tk *tick_t) {
	ctx.last_ta = int_ptr(e.ta)
	if ctx.connected() {
		t.maybe_combined(ctx, e.event_meta, tk)
		return
	}
	var out = kpi_ta_emission{emission_base: emit_base("lte_kpi_ta", e.event_meta)}
	out.Ta = int_ptr(e.ta)
	tk.kpi = append(tk.kpi, out)
}

// maybe_combined emits the grouped UL MCS / TX power / TA line, at
// most once per second, skipping entirely while nothing is known yet.
func (t *kpi_tracker) maybe_combined(ctx *radio_kpi_context, m event_meta, tk *tick_t) {
	if ctx.last_ul_mcs == nil && ctx.last_tx_power == nil && ctx.last_ta == nil {
		return
	}
	if m.ts.Before(ctx.combined_next_ok) {
		return
	}
	var out = uplink_kpi_emission{emission_base: emit_base("lte_uplink_kpi", m)}
	out.UlMcs = ctx.last_ul_mcs
	out.TxPowerDbm = ctx.last_tx_power
	out.Ta = ctx.last_ta
	ctx.combined_next_ok = m.ts.Add(COMBINED_KPI_INTERVAL)
	tk.kpi = append(tk.kpi, out)
}

/*-------------------------------------------------------------------
 *
 * Name:        on_rach / check_rach_timeout
 *
 * Purpose:     The RACH correlation state machine.  Msg1 arms a
 *		pending attempt; Msg2 finalizes and emits; a pending
 *		attempt that never sees Msg2 within 3 s is forced out
 *		as a failure with the unseen fields null.  RACH lines
 *		are never throttled.
 *
 *-----------------------------------------------------------------*/

func (t *kpi_tracker) on_rach(ctx *radio_kpi_context, e rach_event_t, tk *tick_t) {
	if e.has_msg1 {
		ctx.pending_rach = &rach_attempt_t{
			deadline:       e.ts.Add(RACH_TIMEOUT),
			attempt:        int_ptr(e.attempt),
			contention:     int_ptr(e.contention),
			preamble:       int_ptr(e.preamble),
			preamble_power: int_ptr(e.preamble_power),
		}
	}

	if !e.has_msg2 {
		return
	}

	var out = rach_emission{emission_base: emit_base("lte_rach", e.event_meta)}
	if e.result == 0 {
		out.Result = "success"
	} else {
		out.Result = "failure"
	}
	out.Attempt = int_ptr(e.attempt)
	out.Contention = int_ptr(e.contention)
	if pending := ctx.pending_rach; pending != nil {
		out.Preamble = pending.preamble
		out.PreamblePowerDbm = pending.preamble_power
	}
	if e.has_msg1 {
		out.Preamble = int_ptr(e.preamble)
		out.PreamblePowerDbm = int_ptr(e.preamble_power)
	}
	out.Ta = int_ptr(e.ta)
	out.TcRnti = int_ptr(e.tc_rnti)
	out.Earfcn = ctx.last_earfcn
	ctx.last_tc_rnti = int_ptr(e.tc_rnti)
	ctx.pending_rach = nil
	tk.rach = append(tk.rach, out)
}

func (t *kpi_tracker) check_rach_timeout(ctx *radio_kpi_context, m event_meta, tk *tick_t) {
	var pending = ctx.pending_rach
	if pending == nil || m.ts.Before(pending.deadline) {
		return
	}

	var out = rach_emission{emission_base: emit_base("lte_rach", m)}
	out.Result = "failure"
	out.Attempt = pending.attempt
	out.Contention = pending.contention
	out.Preamble = pending.preamble
	out.PreamblePowerDbm = pending.preamble_power
	out.Earfcn = ctx.last_earfcn
	ctx.pending_rach = nil
	tk.rach = append(tk.rach, out)
}

func (t *kpi_tracker) on_rrc_state(ctx *radio_kpi_context, e rrc_state_change_t, tk *tick_t) {
	// 1:1 with the source records, repeats included.  The modem, not
	// this tracker, decides what counts as a state change.
	var out = rrc_state_emission{emission_base: emit_base("lte_rrc_state", e.event_meta)}
	out.State = e.state
	tk.state = append(tk.state, out)

	var was_connected = ctx.connected()
	ctx.last_rrc_state = e.state
	if was_connected && !ctx.connected() {
		ctx.ring = nil
		ctx.ring_anchor = time.Time{}
	}
}

func (t *kpi_tracker) on_rrc_message(ctx *radio_kpi_context, e rrc_message_t, tk *tick_t) {
	var msg string
	switch {
	case e.direction == DIR_DL && e.message_type == "RRCConnectionReconfiguration":
		msg = "LTE handover: RRCConnectionReconfiguration (network command)"
	case e.direction == DIR_UL && e.message_type == "RRCConnectionReconfigurationComplete":
		msg = "LTE handover: RRCConnectionReconfigurationComplete (UE completed)"
	default:
		return
	}
	var out = log_emission{emission_base: emit_base("log", e.event_meta)}
	out.Message = msg
	tk.kpi = append(tk.kpi, out)
}

/*-------------------------------------------------------------------
 *
 * Name:        feed_throughput
 *
 * Purpose:     Maintain the sliding throughput window and emit the
 *		once-per-second line.
 *
 * Description:	Samples accumulate only while Connected; the ring was
 *		cleared on disconnect, so time spent idle does not
 *		dilute the figures after reconnecting.  The line sums
 *		bits over the last second; the UL average MCS and the
 *		NDI-based retransmission share look back five seconds.
 *
 *-----------------------------------------------------------------*/

func (t *kpi_tracker) feed_throughput(ctx *radio_kpi_context, e mac_transport_block_t, mcs *int, ndi *int, tk *tick_t) {
	if !ctx.connected() {
		return
	}

	ctx.ring = append(ctx.ring, throughput_sample_t{
		ts:     e.ts,
		bits:   e.tbs_bits,
		uplink: e.direction == DIR_UL,
		mcs:    mcs,
		ndi:    ndi,
	})

	// Prune beyond the 5 s retention.
	var cutoff = e.ts.Add(-THROUGHPUT_RETAIN)
	var keep = 0
	for _, s := range ctx.ring {
		if !s.ts.Before(cutoff) {
			ctx.ring[keep] = s
			keep++
		}
	}
	ctx.ring = ctx.ring[:keep]

	if ctx.ring_anchor.IsZero() {
		ctx.ring_anchor = e.ts
		return
	}
	if e.ts.Sub(ctx.ring_anchor) < THROUGHPUT_INTERVAL {
		return
	}
	ctx.ring_anchor = e.ts

	var window = e.ts.Add(-THROUGHPUT_INTERVAL)
	var bits = 0
	for _, s := range ctx.ring {
		if !s.ts.Before(window) {
			bits += s.bits
		}
	}

	var out = throughput_emission{emission_base: emit_base("lte_throughput", e.event_meta)}
	out.Mbps = float64(bits) / 1e6

	var mcs_sum, mcs_n = 0, 0
	var toggles, repeats = 0, 0
	var prev_ndi *int
	for _, s := range ctx.ring {
		if !s.uplink {
			continue
		}
		if s.mcs != nil {
			mcs_sum += *s.mcs
			mcs_n++
		}
		if s.ndi != nil {
			if prev_ndi != nil {
				if *s.ndi == *prev_ndi {
					repeats++
				} else {
					toggles++
				}
			}
			prev_ndi = s.ndi
		}
	}
	if mcs_n > 0 {
		out.UlAvgMcs = float_ptr(math.Round(float64(mcs_sum)/float64(mcs_n)*10) / 10)
	}
	if pairs := toggles + repeats; pairs > 0 && !t.cfg.NoULRetransmit {
		// No toggle on a new transmission opportunity means the HARQ
		// process repeated the block.  The meaning flips on chipsets
		// that report the bit inverted.
		var retx = repeats
		if t.cfg.InvertULNDI {
			retx = toggles
		}
		out.UlRetx = float_ptr(math.Round(float64(retx)/float64(pairs)*1000) / 10)
	}
	tk.kpi = append(tk.kpi, out)
}

func clamp_int(v int, lo int, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
