package attgatt

// readable reports whether a's value can be read at all, independent of
// offset. Data attributes gate on props.Read; every other variant is
// unconditionally readable.
func (a *Attribute) readable() bool {
	switch a.kind {
	case kindService, kindReadOnlyData, kindDeclaration, kindCCCD:
		return true
	case kindData:
		return a.props.Has(PropRead)
	default:
		return false
	}
}

// writable reports whether a's value can be written at all. Only Data
// and CCCD attributes ever accept writes.
func (a *Attribute) writable() bool {
	switch a.kind {
	case kindData:
		return a.props.Any(PropWrite | PropWriteWithoutResponse | PropAuthenticatedWrite)
	case kindCCCD:
		return true
	default:
		return false
	}
}

// read serves a read at offset into out, returning the number of bytes
// written. It never returns more than len(out) bytes.
func (a *Attribute) read(offset int, out []byte) (int, error) {
	if !a.readable() {
		return 0, ErrReadNotPermitted
	}
	switch a.kind {
	case kindService:
		b := a.serviceUUID.Bytes()
		if offset > len(b) {
			return 0, nil
		}
		return copy(out, b[offset:]), nil

	case kindReadOnlyData, kindData:
		return a.handler.ServeRead(a.UUID, a.Handle, offset, out)

	case kindCCCD:
		if offset > 0 {
			return 0, ErrInvalidOffset
		}
		if len(out) < 2 {
			return 0, ErrUnlikelyError
		}
		var b byte
		if a.notifications {
			b |= cccNotifyBit
		}
		if a.indications {
			b |= cccIndicateBit
		}
		out[0] = b
		out[1] = 0
		return 2, nil

	case kindDeclaration:
		return a.readDeclaration(offset, out), nil

	default:
		return 0, ErrReadNotPermitted
	}
}

// readDeclaration emits props(1) || value_handle(2, LE) || uuid_bytes,
// honoring offset at any of the three straddle points (0, 1, or 2), and
// clamping to out's capacity.
func (a *Attribute) readDeclaration(offset int, out []byte) int {
	full := make([]byte, 0, 3+a.declUUID.Len())
	full = append(full, byte(a.props))
	full = append(full, byte(a.declValueHandle), byte(a.declValueHandle>>8))
	full = append(full, a.declUUID.Bytes()...)
	if offset > len(full) {
		return 0
	}
	return copy(out, full[offset:])
}

// write serves a write of data at offset.
func (a *Attribute) write(offset int, data []byte) error {
	switch a.kind {
	case kindData:
		if !a.writable() {
			return ErrWriteNotPermitted
		}
		return a.handler.ServeWrite(a.UUID, a.Handle, offset, data)

	case kindCCCD:
		if offset > 0 {
			return ErrInvalidOffset
		}
		if len(data) == 0 {
			return ErrUnlikelyError
		}
		a.notifications = data[0]&cccNotifyBit != 0
		a.indications = data[0]&cccIndicateBit != 0
		return nil

	default:
		return ErrWriteNotPermitted
	}
}

// decodeDeclaration splits data as props(1) || handle(2) || uuid(rest),
// interpreting the remainder as a 16-bit or 128-bit UUID by length. It
// is the client-side counterpart to readDeclaration, used to interpret
// ReadByType(CHARACTERISTIC_UUID16) responses during discovery.
func decodeDeclaration(data []byte) (props CharacteristicProps, valueHandle uint16, uuid UUID, ok bool) {
	if len(data) < 3 {
		return 0, 0, UUID{}, false
	}
	props = CharacteristicProps(data[0])
	valueHandle = uint16(data[1]) | uint16(data[2])<<8
	rest := data[3:]
	if len(rest) != 2 && len(rest) != 16 {
		return 0, 0, UUID{}, false
	}
	b := make([]byte, len(rest))
	copy(b, rest)
	uuid = uuidFromRaw(b)
	return props, valueHandle, uuid, true
}
