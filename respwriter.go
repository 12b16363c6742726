package attgatt

// pduWriter accumulates an ATT response PDU, supporting the
// accumulate-while-it-fits pattern FindInformation and FindByTypeValue
// need: candidate entries are written speculatively between Begin and
// Commit, and Commit rolls back to the last good length if the entry
// pushed the PDU past the connection's MTU. It plays the role the
// teacher's l2capWriter played for chunked writes, simplified to a
// grow-and-rollback byte buffer since this engine does not share the
// teacher's embedded fixed-capacity buffer constraint.
type pduWriter struct {
	mtu  int
	buf  []byte
	mark int
}

// newPDUWriter returns a writer whose Commit calls will reject any
// attempt to grow the PDU past mtu bytes.
func newPDUWriter(mtu int) *pduWriter {
	return &pduWriter{mtu: mtu}
}

// Byte appends a single unconditional byte, typically PDU opcode or
// format header bytes that are always present once a response is
// produced at all.
func (w *pduWriter) Byte(b byte) { w.buf = append(w.buf, b) }

// Uint16 appends v little-endian, unconditionally.
func (w *pduWriter) Uint16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// Bytes appends b unconditionally.
func (w *pduWriter) Bytes(b []byte) { w.buf = append(w.buf, b...) }

// Begin marks the start of a speculative entry; a following Commit may
// roll back to this point.
func (w *pduWriter) Begin() { w.mark = len(w.buf) }

// Commit reports whether the PDU, as grown since Begin, still fits in
// mtu bytes. If not, it rolls the buffer back to the mark and returns
// false; the caller should stop accumulating further entries.
func (w *pduWriter) Commit() bool {
	if len(w.buf) > w.mtu {
		w.buf = w.buf[:w.mark]
		return false
	}
	return true
}

// Len reports the PDU's current length.
func (w *pduWriter) Len() int { return len(w.buf) }

// Result returns the accumulated PDU bytes.
func (w *pduWriter) Result() []byte { return w.buf }
