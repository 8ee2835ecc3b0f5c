package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Stream sources: a live serial device or recorded
 *		capture files, both reduced to "next complete records,
 *		or end of stream".
 *
 * Description:	Three capture formats are handled:
 *
 *		  QMDL - the raw HDLC stream as read from the device,
 *			 run through the same deframer as live input.
 *		  DLF  - u16 length-prefixed records, already
 *			 unescaped, no CRC trailer.
 *		  HDF  - bare concatenated log records, found by
 *			 scanning for the 0x10 0x00 len len header.
 *
 *		Gzipped captures are unwrapped transparently.  The
 *		format comes from the file extension unless forced.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/term"
)

const SERIAL_OPEN_RETRIES = 3
const SERIAL_RETRY_PAUSE = 2 * time.Second
const SERIAL_CHUNK = 4096

type stream_source interface {
	// next returns the next batch of records.  io.EOF means a clean
	// end of stream; any other error is a transport fault.
	next() ([]raw_record_t, error)

	// send transmits a DIAG request.  Capture replay ignores it.
	send(payload []byte) error

	close()
}

func source_open(cfg *TapConfig) (stream_source, error) {
	if cfg.SerialDevice != "" {
		return serial_source_open(cfg)
	}
	if len(cfg.DumpFiles) > 0 {
		return capture_source_open(cfg)
	}
	return nil, errors.New("no input: give a serial device or capture files")
}

/*
 * Live serial device.
 */

type serial_source struct {
	cfg  *TapConfig
	port *term.Term
	df   deframer_t
	buf  []byte
}

func serial_source_open(cfg *TapConfig) (*serial_source, error) {
	var s = &serial_source{
		cfg: cfg,
		df: deframer_t{
			disable_crc_check: cfg.DisableCRCCheck,
			drop_bad_crc:      cfg.DropCRCFailures,
		},
		buf: make([]byte, SERIAL_CHUNK),
	}
	var err = s.reopen()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// reopen tries the device a few times.  USB diagnostic ports come and
// go during modem resets.
func (s *serial_source) reopen() error {
	var err error
	for attempt := 1; attempt <= SERIAL_OPEN_RETRIES; attempt++ {
		s.port, err = serial_port_open(s.cfg.SerialDevice, s.cfg.Baudrate)
		if err == nil {
			return nil
		}
		diag_log.Warn("serial open failed", "attempt", attempt, "err", err)
		if attempt < SERIAL_OPEN_RETRIES {
			time.Sleep(SERIAL_RETRY_PAUSE)
		}
	}
	return fmt.Errorf("serial device unavailable: %w", err)
}

func (s *serial_source) next() ([]raw_record_t, error) {
	for {
		var n, err = serial_port_read(s.port, s.buf)
		if err != nil {
			serial_port_close(s.port)
			if reopenErr := s.reopen(); reopenErr != nil {
				return nil, reopenErr
			}
			continue
		}
		var records = deframer_feed(&s.df, s.buf[:n], 0, time.Now())
		if len(records) > 0 {
			return records, nil
		}
	}
}

func (s *serial_source) send(payload []byte) error {
	if serial_port_write(s.port, diag_encapsulate(payload)) < 0 {
		return errors.New("serial write failed")
	}
	return nil
}

func (s *serial_source) close() {
	serial_port_close(s.port)
}

/*
 * Capture file replay.
 */

type capture_source struct {
	cfg   *TapConfig
	files []string
	index int

	file   *os.File
	reader *bufio.Reader
	format string
	df     deframer_t
	buf    []byte
}

func capture_source_open(cfg *TapConfig) (*capture_source, error) {
	var s = &capture_source{
		cfg:   cfg,
		files: cfg.DumpFiles,
		df: deframer_t{
			disable_crc_check: cfg.DisableCRCCheck,
			drop_bad_crc:      cfg.DropCRCFailures,
		},
		buf: make([]byte, SERIAL_CHUNK),
	}
	if err := s.open_next(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *capture_source) open_next() error {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	if s.index >= len(s.files) {
		return io.EOF
	}
	var path = s.files[s.index]
	s.index++

	var file, err = os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open capture %s: %w", path, err)
	}
	s.file = file
	s.reader = bufio.NewReader(file)

	// Transparent gzip.
	if magic, _ := s.reader.Peek(2); len(magic) == 2 && magic[0] == 0x1F && magic[1] == 0x8B {
		var gz, gzErr = gzip.NewReader(s.reader)
		if gzErr != nil {
			return fmt.Errorf("capture %s: %w", path, gzErr)
		}
		s.reader = bufio.NewReader(gz)
	}

	s.format = capture_format(path, s.cfg.Format)
	diag_log.Info("reading capture", "path", path, "format", s.format)
	return nil
}

// capture_format resolves the format: forced setting first, then the
// file extension (ignoring a trailing .gz), then QMDL.
func capture_format(path string, forced string) string {
	if forced != "" {
		return forced
	}
	var name = strings.ToLower(path)
	name = strings.TrimSuffix(name, ".gz")
	switch filepath.Ext(name) {
	case ".dlf":
		return "dlf"
	case ".hdf":
		return "hdf"
	default:
		return "qmdl"
	}
}

func (s *capture_source) next() ([]raw_record_t, error) {
	for {
		var records, err = s.next_from_file()
		if err == io.EOF {
			if nextErr := s.open_next(); nextErr != nil {
				return nil, nextErr
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			return records, nil
		}
	}
}

func (s *capture_source) next_from_file() ([]raw_record_t, error) {
	switch s.format {
	case "dlf":
		return s.next_dlf()
	case "hdf":
		return s.next_hdf()
	default:
		return s.next_qmdl()
	}
}

func (s *capture_source) next_qmdl() ([]raw_record_t, error) {
	var n, err = s.reader.Read(s.buf)
	if n == 0 && err != nil {
		return nil, err
	}
	return deframer_feed(&s.df, s.buf[:n], 0, time.Now()), nil
}

// DLF records carry their total length, including the two length
// bytes, up front.  No HDLC escapes, no CRC.
func (s *capture_source) next_dlf() ([]raw_record_t, error) {
	var lenbuf [2]byte
	if _, err := io.ReadFull(s.reader, lenbuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	var total = int(binary.LittleEndian.Uint16(lenbuf[:]))
	if total < 2 {
		diag_log.Warn("short DLF record length, skipping file remainder", "len", total)
		return nil, io.EOF
	}
	var payload = make([]byte, total-2)
	if _, err := io.ReadFull(s.reader, payload); err != nil {
		return nil, io.EOF
	}
	return []raw_record_t{{
		radio_index:  0,
		arrival_time: time.Now(),
		log_code:     peek_log_code(payload),
		payload:      payload,
		crc_valid:    true,
	}}, nil
}

// HDF is a bare concatenation of DIAG_LOG_F records; resynchronize by
// scanning for the header: 0x10, 0x00, then two matching u16 lengths.
func (s *capture_source) next_hdf() ([]raw_record_t, error) {
	for {
		var head, _ = s.reader.Peek(6)
		if len(head) < 6 {
			return nil, io.EOF
		}
		var len1 = binary.LittleEndian.Uint16(head[2:4])
		var len2 = binary.LittleEndian.Uint16(head[4:6])
		if head[0] != DIAG_LOG_F || head[1] != 0x00 || len1 != len2 || len1 < 12 {
			s.reader.Discard(1)
			continue
		}

		var payload = make([]byte, 4+int(len2))
		if _, err := io.ReadFull(s.reader, payload); err != nil {
			return nil, io.EOF
		}
		return []raw_record_t{{
			radio_index:  0,
			arrival_time: time.Now(),
			log_code:     peek_log_code(payload),
			payload:      payload,
			crc_valid:    true,
		}}, nil
	}
}

func (s *capture_source) send(payload []byte) error {
	return nil
}

func (s *capture_source) close() {
	if s.file != nil {
		s.file.Close()
	}
}
