package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Output sink: console lines, JSON UDP datagrams, and
 *		GSMTAP packets.
 *
 * Description:	Decode never depends on output success.  A UDP send
 *		failure is logged once per socket and the datagram is
 *		dropped; the pipeline keeps running.  GSMTAP carries
 *		four layers - rrc, nas, mac, events - individually
 *		selectable, or disabled wholesale.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/lestrrat-go/strftime"
)

type output_sink struct {
	cfg *TapConfig

	json_conn   net.Conn
	gsmtap_conn net.Conn
	ts_format   *strftime.Strftime

	json_fail_logged   bool
	gsmtap_fail_logged bool
}

func sink_init(cfg *TapConfig) (*output_sink, error) {
	var s = &output_sink{cfg: cfg}

	if cfg.JSONUDPPort != 0 {
		var conn, err = net.Dial("udp", fmt.Sprintf("127.0.0.1:%d", cfg.JSONUDPPort))
		if err != nil {
			return nil, fmt.Errorf("json udp socket: %w", err)
		}
		s.json_conn = conn
	}

	if !cfg.NoGsmtap {
		var conn, err = net.Dial("udp", fmt.Sprintf("%s:%d", cfg.GsmtapHost, cfg.GsmtapPort))
		if err != nil {
			return nil, fmt.Errorf("gsmtap socket: %w", err)
		}
		s.gsmtap_conn = conn
	}

	if cfg.TimestampFormat != "" {
		var f, err = strftime.New(cfg.TimestampFormat)
		if err != nil {
			return nil, fmt.Errorf("timestamp format: %w", err)
		}
		s.ts_format = f
	}

	return s, nil
}

func (s *output_sink) close() {
	if s.json_conn != nil {
		s.json_conn.Close()
	}
	if s.gsmtap_conn != nil {
		s.gsmtap_conn.Close()
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        emit
 *
 * Purpose:     Render one KPI emission to every configured output.
 *
 *-----------------------------------------------------------------*/

func (s *output_sink) emit(e kpi_emission) {
	var line = e.line()

	text_color_set(DT_COLOR_DECODED)
	if s.ts_format != nil {
		dt_printf("%s ", s.ts_format.FormatString(e.when()))
	}
	dt_printf("Radio %d: %s\n", e.radio_index(), line)
	text_color_set(DT_COLOR_INFO)

	if s.json_conn != nil {
		var payload, err = json.Marshal(e)
		if err == nil {
			_, err = s.json_conn.Write(payload)
		}
		if err != nil && !s.json_fail_logged {
			diag_log.Warn("json udp send failed, suppressing further reports", "err", err)
			s.json_fail_logged = true
		}
	}

	s.send_gsmtap_log(e.when(), "KPI", line)
}

/*-------------------------------------------------------------------
 *
 * Name:        handle_event
 *
 * Purpose:     GSMTAP encapsulation and console rendering of decoded
 *		events that are not KPI emissions.
 *
 *-----------------------------------------------------------------*/

func (s *output_sink) handle_event(ev decoded_event) {
	var m = ev.meta()

	switch e := ev.(type) {
	case rrc_ota_message_t:
		if s.layer_on("rrc") {
			s.send_gsmtap(gsmtap_lte_rrc(e))
		}
	case nas_ota_message_t:
		if s.layer_on("nas") {
			s.send_gsmtap(gsmtap_lte_nas(e))
		}
	case mac_transport_block_t:
		if len(e.mac_hdr) > 0 && s.layer_on("mac") {
			s.send_gsmtap(gsmtap_lte_mac(e))
		}
	case generic_event_t, rrc_state_change_t, rrc_state_cause_t, rrc_message_t, phr_report_t:
		if s.layer_on("events") {
			s.send_gsmtap_log(m.ts, "EVENT", ev.summary())
		}
		if s.cfg.Events {
			if _, generic := ev.(generic_event_t); generic {
				text_color_set(DT_COLOR_REC)
				dt_printf("Radio %d: %s\n", m.radio, ev.summary())
				text_color_set(DT_COLOR_INFO)
			}
		}
	}
}

func (s *output_sink) layer_on(layer string) bool {
	return s.gsmtap_conn != nil && s.cfg.layer_enabled(layer)
}

func (s *output_sink) send_gsmtap(pkt []byte) {
	if s.gsmtap_conn == nil {
		return
	}
	if _, err := s.gsmtap_conn.Write(pkt); err != nil && !s.gsmtap_fail_logged {
		diag_log.Warn("gsmtap send failed, suppressing further reports", "err", err)
		s.gsmtap_fail_logged = true
	}
}

func (s *output_sink) send_gsmtap_log(ts time.Time, subsys string, text string) {
	if !s.layer_on("events") {
		return
	}
	s.send_gsmtap(gsmtap_log(ts, subsys, text))
}
