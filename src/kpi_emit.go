package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	KPI emission types: the tracker's output records,
 *		rendered both as console text lines and as JSON UDP
 *		datagrams.
 *
 * Description:	Each emission marshals directly with encoding/json.
 *		`ts` and `radio` are always present.  Numeric fields
 *		absent from the source data are pointers and serialize
 *		as null - never zero, because zero is a meaningful
 *		value for most of them (MCS 0, contention 0).  Only
 *		fields documented as optional use omitempty.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"time"
)

type kpi_emission interface {
	kind() string
	line() string
	radio_index() int
	when() time.Time
}

type emission_base struct {
	Ts    string `json:"ts"`
	Radio int    `json:"radio"`
	Type  string `json:"type"`

	ts time.Time
}

func (b emission_base) kind() string      { return b.Type }
func (b emission_base) radio_index() int  { return b.Radio }
func (b emission_base) when() time.Time   { return b.ts }

func emit_base(kind string, m event_meta) emission_base {
	return emission_base{Ts: iso_timestamp(m.ts), Radio: m.radio, Type: kind, ts: m.ts}
}

// iso_timestamp renders ISO-8601 with microseconds when the fraction
// is nonzero, without when it is.
func iso_timestamp(t time.Time) string {
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02T15:04:05.000000")
}

func opt_int(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

type kpi_dl_emission struct {
	emission_base
	BwMhz *float64 `json:"bw_mhz"`
	Mcs   *int     `json:"mcs"`

	n_prb int
}

func (e kpi_dl_emission) line() string {
	return fmt.Sprintf("%s BW MCS=%s", bandwidth_label(e.n_prb), opt_int(e.Mcs))
}

type kpi_ul_emission struct {
	emission_base
	Mcs *int `json:"mcs"`
}

func (e kpi_ul_emission) line() string {
	return fmt.Sprintf("LTE KPI UL: MCS=%s", opt_int(e.Mcs))
}

type kpi_tx_emission struct {
	emission_base
	TxPowerDbm *int `json:"tx_power_dbm"`
}

func (e kpi_tx_emission) line() string {
	return fmt.Sprintf("LTE KPI TX: est. TX power=%s dBm", opt_int(e.TxPowerDbm))
}

type kpi_ta_emission struct {
	emission_base
	Ta *int `json:"ta"`
}

func (e kpi_ta_emission) line() string {
	return fmt.Sprintf("LTE KPI: TA=%s", opt_int(e.Ta))
}

type uplink_kpi_emission struct {
	emission_base
	UlMcs      *int `json:"ul_mcs"`
	TxPowerDbm *int `json:"tx_power_dbm"`
	Ta         *int `json:"ta"`
}

func (e uplink_kpi_emission) line() string {
	return fmt.Sprintf("LTE KPI: UL MCS=%s, TX power=%s dBm, TA=%s",
		opt_int(e.UlMcs), opt_int(e.TxPowerDbm), opt_int(e.Ta))
}

type rach_emission struct {
	emission_base
	Result           string `json:"result"`
	Attempt          *int   `json:"attempt"`
	Contention       *int   `json:"contention"`
	Preamble         *int   `json:"preamble"`
	PreamblePowerDbm *int   `json:"preamble_power_dbm"`
	Ta               *int   `json:"ta"`
	TcRnti           *int   `json:"tc_rnti"`
	Earfcn           *int   `json:"earfcn"`
}

func (e rach_emission) line() string {
	var tc_rnti = "-"
	if e.TcRnti != nil {
		tc_rnti = fmt.Sprintf("0x%04X", *e.TcRnti)
	}
	return fmt.Sprintf("LTE KPI RACH: result=%s, attempt=%s, contention=%s, preamble=%s, preamble_power_dB=%s, ta=%s, tc_rnti=%s, earfcn=%s",
		e.Result, opt_int(e.Attempt), opt_int(e.Contention), opt_int(e.Preamble),
		opt_int(e.PreamblePowerDbm), opt_int(e.Ta), tc_rnti, opt_int(e.Earfcn))
}

type rrc_state_emission struct {
	emission_base
	State string `json:"state"`
}

func (e rrc_state_emission) line() string {
	return "LTE RRC State: " + e.State
}

type rrc_state_cause_emission struct {
	emission_base
	Cause string `json:"cause"`
}

func (e rrc_state_cause_emission) line() string {
	return "LTE RRC State Cause: " + e.Cause
}

type primary_cell_emission struct {
	emission_base
	Earfcn   *int `json:"earfcn"`
	Pci      *int `json:"pci"`
	Rsrp     *int `json:"rsrp"`
	Rssi     *int `json:"rssi"`
	Rsrq     *int `json:"rsrq"`
	Priority *int `json:"priority,omitempty"`
}

func (e primary_cell_emission) line() string {
	var s = fmt.Sprintf("LTE Primary Cell: EARFCN: %s, PCI: %s, RSRP: %s, RSSI: %s, RSRQ: %s",
		opt_int(e.Earfcn), opt_int(e.Pci), opt_int(e.Rsrp), opt_int(e.Rssi), opt_int(e.Rsrq))
	if e.Priority != nil {
		s += fmt.Sprintf(", priority: %d", *e.Priority)
	}
	return s
}

type scell_connected_emission struct {
	emission_base
	Pci  *int `json:"pci"`
	Rsrp *int `json:"rsrp"`
	Rssi *int `json:"rssi"`
	Rsrq *int `json:"rsrq"`
}

func (e scell_connected_emission) line() string {
	return fmt.Sprintf("LTE Primary Cell (Connected): PCI: %s, DL RSRP: %s, RSSI: %s, RSRQ: %s",
		opt_int(e.Pci), opt_int(e.Rsrp), opt_int(e.Rssi), opt_int(e.Rsrq))
}

type ncell_emission struct {
	emission_base
	CellIndex *int `json:"cell_index"`
	Earfcn    *int `json:"earfcn"`
	Pci       *int `json:"pci"`
	Rsrp      *int `json:"rsrp"`
	Rssi      *int `json:"rssi"`
	Rsrq      *int `json:"rsrq"`
}

func (e ncell_emission) line() string {
	return fmt.Sprintf("Neighbor cell %s: EARFCN: %s, PCI: %s, RSRP: %s, RSSI: %s, RSRQ: %s",
		opt_int(e.CellIndex), opt_int(e.Earfcn), opt_int(e.Pci),
		opt_int(e.Rsrp), opt_int(e.Rssi), opt_int(e.Rsrq))
}

type throughput_emission struct {
	emission_base
	Mbps     float64  `json:"mbps"`
	UlAvgMcs *float64 `json:"ul_avg_mcs,omitempty"`
	UlRetx   *float64 `json:"ul_retx_pct,omitempty"`
}

func (e throughput_emission) line() string {
	return fmt.Sprintf("LTE throughput: %.2f Mbps", e.Mbps)
}

type rrc_event_emission struct {
	emission_base
	Name string `json:"name"`
}

func (e rrc_event_emission) line() string {
	return "RRC event: " + e.Name
}

// log_emission carries the free-form lines: handover classification,
// modem version strings, decoded generic events.
type log_emission struct {
	emission_base
	Message string `json:"message"`
}

func (e log_emission) line() string {
	return e.Message
}

func int_ptr(v int) *int             { return &v }
func float_ptr(v float64) *float64   { return &v }
