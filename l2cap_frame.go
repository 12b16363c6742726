package attgatt

import "encoding/binary"

// attChannel is the fixed L2CAP channel ID (0x0004) ATT traffic rides
// on, per the Bluetooth Core spec's fixed channel assignments.
const attChannel = 0x0004

// l2capHeaderLen is the length of the 4-byte L2CAP basic frame header:
// length(2 LE) || channel(2 LE).
const l2capHeaderLen = 4

// frameL2CAP prepends the 4-byte L2CAP header to payload, as required
// for every ATT PDU crossing the logical link: length(2, LE) ||
// channel(2, LE) = 0x0004 || payload.
func frameL2CAP(payload []byte) []byte {
	out := make([]byte, l2capHeaderLen+len(payload))
	binary.LittleEndian.PutUint16(out, uint16(len(payload)))
	binary.LittleEndian.PutUint16(out[2:], attChannel)
	copy(out[l2capHeaderLen:], payload)
	return out
}

// unframeL2CAP strips the L2CAP header from b, returning the ATT
// payload. It reports false if b is too short to contain a header or
// the declared length does not match the remaining bytes.
func unframeL2CAP(b []byte) ([]byte, bool) {
	if len(b) < l2capHeaderLen {
		return nil, false
	}
	n := binary.LittleEndian.Uint16(b)
	if int(n) != len(b)-l2capHeaderLen {
		return nil, false
	}
	return b[l2capHeaderLen:], true
}
