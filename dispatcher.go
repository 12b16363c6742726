package attgatt

// maxAttrValueLen bounds a single attribute value read within the
// dispatcher's scratch buffer. The Bluetooth Core spec caps attribute
// values at 512 bytes; nothing in this engine needs more.
const maxAttrValueLen = 512

// Dispatcher is the ATT request dispatcher (component D). One exists
// per server, shared across connections; Process itself is safe for
// concurrent use; the per-request serialization the spec requires comes
// from the AttributeTable's own mutex, held across the handler call for
// reads and writes alike.
type Dispatcher struct {
	table *AttributeTable
	subs  *SubscriptionRegistry
}

// NewDispatcher returns a dispatcher driving table and subs.
func NewDispatcher(table *AttributeTable, subs *SubscriptionRegistry) *Dispatcher {
	return &Dispatcher{table: table, subs: subs}
}

// Process decodes and handles one ATT request PDU (ExchangeMtu excepted
// — that's negotiated upstream) and returns the response PDU bytes, or
// nil if the request class produces no response (WriteCmd).
func (d *Dispatcher) Process(conn ConnHandle, pdu []byte, mtu int) []byte {
	req, err := DecodeRequest(pdu)
	if err != nil {
		op := byte(0)
		if len(pdu) > 0 {
			op = pdu[0]
		}
		return errorResp(op, 0, errCode(err))
	}
	return d.dispatch(conn, req, mtu)
}

func (d *Dispatcher) dispatch(conn ConnHandle, req Request, mtu int) []byte {
	d.table.Lock()
	defer d.table.Unlock()

	switch req.Op {
	case opFindInfoReq:
		return d.handleFindInfo(req, mtu)
	case opFindByTypeReq:
		return d.handleFindByType(req, mtu)
	case opReadByTypeReq:
		return d.handleReadByType(req)
	case opReadByGroupReq:
		return d.handleReadByGroup(req)
	case opReadReq:
		return d.handleRead(req, 0)
	case opReadBlobReq:
		return d.handleRead(req, req.Offset)
	case opReadMultiReq:
		return errorResp(opReadMultiReq, 0, ErrAttributeNotFound)
	case opWriteReq:
		return d.handleWrite(conn, req)
	case opWriteCmd:
		d.handleWriteCmd(conn, req)
		return nil
	case opPrepWriteReq:
		return d.handlePrepareWrite(req)
	case opExecWriteReq:
		return []byte{opExecWriteResp}
	default:
		return errorResp(req.Op, 0, ErrRequestNotSupported)
	}
}

// handleFindInfo implements FindInformation: accumulate handle||uuid
// pairs for in-range attributes, stopping as soon as the UUID length
// class changes from the first match, or the PDU would exceed mtu.
func (d *Dispatcher) handleFindInfo(req Request, mtu int) []byte {
	w := newPDUWriter(mtu)
	w.Byte(opFindInfoResp)
	uuidLen := -1
	for _, a := range d.table.Attrs() {
		if a.Handle < req.StartHandle || a.Handle > req.EndHandle {
			continue
		}
		if uuidLen == -1 {
			uuidLen = a.UUID.Len()
			if uuidLen == 2 {
				w.Byte(0x01)
			} else {
				w.Byte(0x02)
			}
		}
		if a.UUID.Len() != uuidLen {
			break
		}
		w.Begin()
		w.Uint16(a.Handle)
		w.Bytes(a.UUID.Bytes())
		if !w.Commit() {
			break
		}
	}
	if uuidLen == -1 {
		return errorResp(opFindInfoReq, req.StartHandle, ErrAttributeNotFound)
	}
	return w.Result()
}

// handleFindByType implements FindByTypeValue: locate primary service
// declarations whose UUID equals req.Value, in range, and report their
// handle and group end. The service UUID itself is omitted from each
// entry, matching observed behavior when the client already supplied it
// as the match value.
func (d *Dispatcher) handleFindByType(req Request, mtu int) []byte {
	if !req.TypeUUID.Equal(uuidPrimaryService) {
		return errorResp(opFindByTypeReq, req.StartHandle, ErrAttributeNotFound)
	}

	w := newPDUWriter(mtu)
	w.Byte(opFindByTypeResp)
	var wrote bool
	for _, a := range d.table.Attrs() {
		if a.Handle < req.StartHandle || a.Handle > req.EndHandle {
			continue
		}
		if !a.IsService() || !a.serviceUUID.Equal(uuidFromRaw(req.Value)) {
			continue
		}
		w.Begin()
		w.Uint16(a.Handle)
		w.Uint16(a.LastHandleInGroup)
		if !w.Commit() {
			break
		}
		wrote = true
	}
	if !wrote {
		return errorResp(opFindByTypeReq, req.StartHandle, ErrAttributeNotFound)
	}
	return w.Result()
}

// handleReadByType implements ReadByType: the first in-range attribute
// whose UUID matches req.TypeUUID becomes the response. Preserved
// limitation: only the first match is returned, not every homogeneous
// pair in range.
func (d *Dispatcher) handleReadByType(req Request) []byte {
	a := d.findFirstByType(req.StartHandle, req.EndHandle, req.TypeUUID)
	if a == nil {
		return errorResp(opReadByTypeReq, req.StartHandle, ErrAttributeNotFound)
	}

	var value [maxAttrValueLen]byte
	n, err := a.read(0, value[:])
	if err != nil {
		return errorResp(opReadByTypeReq, a.Handle, errCode(err))
	}

	buf := make([]byte, 0, 3+n)
	buf = append(buf, opReadByTypeResp, byte(2+n))
	buf = append(buf, byte(a.Handle), byte(a.Handle>>8))
	buf = append(buf, value[:n]...)
	return buf
}

// handleReadByGroup implements ReadByGroupType: same single-match scan
// as ReadByType, but the pair also carries last_handle_in_group.
func (d *Dispatcher) handleReadByGroup(req Request) []byte {
	a := d.findFirstByType(req.StartHandle, req.EndHandle, req.TypeUUID)
	if a == nil {
		return errorResp(opReadByGroupReq, req.StartHandle, ErrAttributeNotFound)
	}

	var value [maxAttrValueLen]byte
	n, err := a.read(0, value[:])
	if err != nil {
		return errorResp(opReadByGroupReq, a.Handle, errCode(err))
	}

	buf := make([]byte, 0, 5+n)
	buf = append(buf, opReadByGroupResp, byte(4+n))
	buf = append(buf, byte(a.Handle), byte(a.Handle>>8))
	buf = append(buf, byte(a.LastHandleInGroup), byte(a.LastHandleInGroup>>8))
	buf = append(buf, value[:n]...)
	return buf
}

func (d *Dispatcher) findFirstByType(start, end uint16, uuid UUID) *Attribute {
	for _, a := range d.table.Attrs() {
		if a.Handle < start || a.Handle > end {
			continue
		}
		if a.UUID.Equal(uuid) {
			return a
		}
	}
	return nil
}

// handleRead implements Read (offset 0) and ReadBlob (offset as given).
func (d *Dispatcher) handleRead(req Request, offset uint16) []byte {
	a := d.table.At(req.Handle)
	if a == nil {
		op := byte(opReadReq)
		if req.Op == opReadBlobReq {
			op = opReadBlobReq
		}
		return errorResp(op, req.Handle, ErrInvalidHandle)
	}

	respOp := byte(opReadResp)
	reqOp := byte(opReadReq)
	if req.Op == opReadBlobReq {
		respOp = opReadBlobResp
		reqOp = opReadBlobReq
	}

	var value [maxAttrValueLen]byte
	n, err := a.read(int(offset), value[:])
	if err != nil {
		return errorResp(reqOp, req.Handle, errCode(err))
	}

	buf := make([]byte, 0, 1+n)
	buf = append(buf, respOp)
	buf = append(buf, value[:n]...)
	return buf
}

// handleWrite implements Write: delegates to the codec at offset 0. On
// a successful CCCD write, the subscription registry is updated before
// the write response is returned, so it is visible to the notifier
// strictly before the client sees success.
func (d *Dispatcher) handleWrite(conn ConnHandle, req Request) []byte {
	a := d.table.At(req.Handle)
	if a == nil {
		return errorResp(opWriteReq, req.Handle, ErrInvalidHandle)
	}
	if err := a.write(0, req.Value); err != nil {
		return errorResp(opWriteReq, req.Handle, errCode(err))
	}
	if a.IsCCCD() {
		d.subs.SetNotify(conn, a.Handle, a.notifications)
	}
	return []byte{opWriteResp}
}

// handleWriteCmd implements WriteCmd: fire-and-forget, errors swallowed.
func (d *Dispatcher) handleWriteCmd(conn ConnHandle, req Request) {
	a := d.table.At(req.Handle)
	if a == nil {
		return
	}
	if err := a.write(0, req.Value); err != nil {
		return
	}
	if a.IsCCCD() {
		d.subs.SetNotify(conn, a.Handle, a.notifications)
	}
}

// handlePrepareWrite implements PrepareWrite: delegates to the codec at
// the given offset and echoes the request back as the response.
func (d *Dispatcher) handlePrepareWrite(req Request) []byte {
	a := d.table.At(req.Handle)
	if a == nil {
		return errorResp(opPrepWriteReq, req.Handle, ErrInvalidHandle)
	}
	if err := a.write(int(req.Offset), req.Value); err != nil {
		return errorResp(opPrepWriteReq, req.Handle, errCode(err))
	}
	buf := make([]byte, 0, 5+len(req.Value))
	buf = append(buf, opPrepWriteResp)
	buf = append(buf, byte(req.Handle), byte(req.Handle>>8))
	buf = append(buf, byte(req.Offset), byte(req.Offset>>8))
	buf = append(buf, req.Value...)
	return buf
}

// errorResp builds an ATT_ERROR_RSP: opcode(1) || request_opcode(1) ||
// handle(2, LE) || code(1). Always exactly 5 bytes, regardless of
// whatever partial response might otherwise have been built.
func errorResp(reqOpcode byte, handle uint16, code AttError) []byte {
	buf := make([]byte, 5)
	writeErrorResp(buf, reqOpcode, handle, code)
	return buf
}

// errCode extracts the AttError carried by err, defaulting to
// UnlikelyError for anything the codec or handler raised that isn't
// already an AttError.
func errCode(err error) AttError {
	if ae, ok := err.(AttError); ok {
		return ae
	}
	return ErrUnlikelyError
}
