package diagtap

/*-------------------------------------------------------------
 *
 * Purpose:	CRC-16/X-25, the "DM CRC" protecting every DIAG frame.
 *
 * 		Reflected CRC-CCITT polynomial 0x1021, init and xorout
 *		both 0xFFFF.  The two CRC bytes trail the frame payload,
 *		least significant byte first, inside the HDLC escaping.
 *
 *--------------------------------------------------------------*/

// Reflected polynomial for CRC-16/X-25.
const DM_CRC_POLY = 0x8408

var dm_crc_table [256]uint16

func init() {
	for n := 0; n < 256; n++ {
		var crc = uint16(n)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ DM_CRC_POLY
			} else {
				crc >>= 1
			}
		}
		dm_crc_table[n] = crc
	}
}

/*-------------------------------------------------------------
 *
 * Name:	dm_crc16
 *
 * Purpose:	Compute the DM CRC over frame payload bytes.
 *
 * Inputs:	data	- Frame payload, without the CRC trailer.
 *
 * Returns:	16-bit CRC value.
 *
 *--------------------------------------------------------------*/

func dm_crc16(data []byte) uint16 {
	var crc uint16 = 0xFFFF
	for _, b := range data {
		crc = (crc >> 8) ^ dm_crc_table[byte(crc)^b]
	}
	return ^crc
}

/*-------------------------------------------------------------
 *
 * Name:	dm_crc_append
 *
 * Purpose:	Append the DM CRC trailer to a payload.
 *
 * Inputs:	data	- Frame payload.
 *
 * Returns:	Payload followed by the 2-byte CRC, LSB first.
 *
 *--------------------------------------------------------------*/

func dm_crc_append(data []byte) []byte {
	var crc = dm_crc16(data)
	var out = make([]byte, 0, len(data)+2)
	out = append(out, data...)
	out = append(out, byte(crc), byte(crc>>8))
	return out
}

/*-------------------------------------------------------------
 *
 * Name:	dm_crc_check
 *
 * Purpose:	Validate the trailing DM CRC of an unescaped frame.
 *
 * Inputs:	frame	- Payload followed by 2-byte CRC, LSB first.
 *
 * Returns:	true if the CRC matches, false otherwise.
 *		Frames shorter than the CRC itself fail.
 *
 *--------------------------------------------------------------*/

func dm_crc_check(frame []byte) bool {
	if len(frame) < 3 {
		return false
	}
	var expected = dm_crc16(frame[:len(frame)-2])
	var received = uint16(frame[len(frame)-1])<<8 | uint16(frame[len(frame)-2])
	return expected == received
}
