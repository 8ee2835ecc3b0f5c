package diagtap

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to serial port, hiding operating system differences.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/pkg/term"
)

/*-------------------------------------------------------------------
 *
 * Name:	serial_port_open
 *
 * Purpose:	Open the diagnostic serial port in raw mode.
 *
 * Inputs:	devicename	- Usually /dev/ttyUSB0 or similar.
 *				  Could be /dev/rfcomm0 for Bluetooth.
 *
 *		baud		- Speed.  If 0, leave it alone.
 *
 * Returns 	Handle for serial port.
 *
 *---------------------------------------------------------------*/

func serial_port_open(devicename string, baud int) (*term.Term, error) {

	var fd, err = term.Open(devicename, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("could not open serial port %s: %w", devicename, err)
	}

	switch baud {
	case 0: /* Leave it alone. */
	case 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600:
		fd.SetSpeed(baud)
	default:
		diag_log.Warn("unsupported serial speed, using 115200", "baud", baud)
		fd.SetSpeed(115200)
	}

	return fd, nil
}

/*-------------------------------------------------------------------
 *
 * Name:	serial_port_write
 *
 * Purpose:	Send bytes to the serial port.
 *
 * Inputs:	fd	- Handle from open.
 *		data	- Slice of bytes.
 *
 * Returns 	Number of bytes written.  Should be the same as len.
 *		-1 if error.
 *
 *---------------------------------------------------------------*/

func serial_port_write(fd *term.Term, data []byte) int {

	if fd == nil {
		return (-1)
	}

	var written, err = fd.Write(data)
	if written != len(data) || err != nil {
		return (-1)
	}

	return written
} /* serial_port_write */

/*-------------------------------------------------------------------
 *
 * Name:        serial_port_read
 *
 * Purpose:     Get the next chunk of bytes from the serial port.
 *		Waits if nothing is ready.
 *
 *--------------------------------------------------------------------*/

func serial_port_read(fd *term.Term, buf []byte) (int, error) {
	return fd.Read(buf)
}

/*-------------------------------------------------------------------
 *
 * Name:        serial_port_close
 *
 * Purpose:     Close the device.
 *
 * Inputs:	fd	- Handle from open.
 *
 * Returns:	None.
 *
 *--------------------------------------------------------------------*/

func serial_port_close(fd *term.Term) {
	if fd == nil {
		return
	}
	fd.Close()
}
