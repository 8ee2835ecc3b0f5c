package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Top level: wire the source, decoder, KPI tracker and
 *		sink into the single-threaded record loop.
 *
 * Description:	Records are processed to completion, one at a time;
 *		the per-radio KPI state is only ever touched from this
 *		loop, so it needs no locking.  The loop ends on end of
 *		stream, a transport fault, or an interrupt signal.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
)

func Tap(cfg *TapConfig) error {
	logging_init(cfg.Debug, cfg.Quiet)
	if cfg.KPI {
		cfg.Events = true
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	var src, err = source_open(cfg)
	if err != nil {
		return err
	}
	defer src.close()

	sink, err := sink_init(cfg)
	if err != nil {
		return err
	}
	defer sink.close()

	var decoder = decoder_init(cfg)
	var tracker *kpi_tracker
	if cfg.KPI {
		tracker = kpi_tracker_init(cfg)
	}

	if cfg.Announce && cfg.JSONUDPPort != 0 {
		dns_sd_announce(cfg.JSONUDPPort)
	}

	var live = cfg.SerialDevice != ""
	if live {
		if err := prepare_device(src, cfg); err != nil {
			return err
		}
		defer stop_device(src)
	}

	var ctx, stop = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for ctx.Err() == nil {
		var records, readErr = src.next()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("transport fault: %w", readErr)
		}

		for _, rec := range records {
			for _, ev := range decode_record(decoder, rec) {
				sink.handle_event(ev)

				if tracker != nil {
					for _, emission := range tracker.process(ev) {
						sink.emit(emission)
					}
				} else if line, isLine := ev.(log_line_t); isLine {
					var out = log_emission{emission_base: emit_base("log", line.event_meta)}
					out.Message = line.message
					sink.emit(out)
				}
			}
		}
	}

	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        prepare_device / stop_device
 *
 * Purpose:     Session setup and teardown on a live device: query the
 *		modem identity, switch on event reporting, set the LTE
 *		log mask; undo it all on the way out.
 *
 *-----------------------------------------------------------------*/

func prepare_device(src stream_source, cfg *TapConfig) error {
	var requests = [][]byte{
		cmd_verno(),
		cmd_ext_build_id(),
		cmd_log_mask_lte(),
	}
	if cfg.Events {
		requests = append(requests, cmd_event_report(true))
	}

	for _, req := range requests {
		if err := src.send(req); err != nil {
			return fmt.Errorf("device setup: %w", err)
		}
	}
	return nil
}

func stop_device(src stream_source) {
	// Best effort; the port may already be gone.
	src.send(cmd_event_report(false))
	src.send(cmd_log_disable())
}
