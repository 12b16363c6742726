package attgatt

import "encoding/binary"

// Request is a decoded ATT request PDU. Only the fields relevant to Op
// are populated; see DecodeRequest.
type Request struct {
	Op byte

	StartHandle uint16
	EndHandle   uint16
	Handle      uint16
	Offset      uint16
	TypeUUID    UUID
	Value       []byte
	Handles     []uint16
	Flags       byte
}

// DecodeRequest parses the ATT opcode and body out of pdu, the payload
// of one inbound ATT PDU (after L2CAP framing has been stripped).
// ExchangeMtu is not decoded here; the spec treats MTU negotiation as
// handled upstream of the core.
func DecodeRequest(pdu []byte) (Request, error) {
	if len(pdu) == 0 {
		return Request{}, ErrInvalidPDU
	}
	op, body := pdu[0], pdu[1:]
	req := Request{Op: op}

	switch op {
	case opFindInfoReq:
		if len(body) < 4 {
			return Request{}, ErrInvalidPDU
		}
		req.StartHandle = le16(body)
		req.EndHandle = le16(body[2:])

	case opFindByTypeReq:
		if len(body) < 6 {
			return Request{}, ErrInvalidPDU
		}
		req.StartHandle = le16(body)
		req.EndHandle = le16(body[2:])
		req.TypeUUID = UUID16(le16(body[4:]))
		req.Value = body[6:]

	case opReadByTypeReq, opReadByGroupReq:
		if len(body) < 4 {
			return Request{}, ErrInvalidPDU
		}
		req.StartHandle = le16(body)
		req.EndHandle = le16(body[2:])
		u, err := decodeInlineUUID(body[4:])
		if err != nil {
			return Request{}, err
		}
		req.TypeUUID = u

	case opReadReq:
		if len(body) < 2 {
			return Request{}, ErrInvalidPDU
		}
		req.Handle = le16(body)

	case opReadBlobReq:
		if len(body) < 4 {
			return Request{}, ErrInvalidPDU
		}
		req.Handle = le16(body)
		req.Offset = le16(body[2:])

	case opReadMultiReq:
		if len(body) < 4 || len(body)%2 != 0 {
			return Request{}, ErrInvalidPDU
		}
		for i := 0; i < len(body); i += 2 {
			req.Handles = append(req.Handles, le16(body[i:]))
		}

	case opWriteReq, opWriteCmd:
		if len(body) < 2 {
			return Request{}, ErrInvalidPDU
		}
		req.Handle = le16(body)
		req.Value = body[2:]

	case opPrepWriteReq:
		if len(body) < 4 {
			return Request{}, ErrInvalidPDU
		}
		req.Handle = le16(body)
		req.Offset = le16(body[2:])
		req.Value = body[4:]

	case opExecWriteReq:
		if len(body) < 1 {
			return Request{}, ErrInvalidPDU
		}
		req.Flags = body[0]

	default:
		return Request{}, ErrRequestNotSupported
	}

	return req, nil
}

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// decodeInlineUUID interprets b as a 16-bit or 128-bit little-endian
// UUID, the form ReadByType and ReadByGroupType requests carry their
// attribute type in.
func decodeInlineUUID(b []byte) (UUID, error) {
	if len(b) != 2 && len(b) != 16 {
		return UUID{}, ErrInvalidPDU
	}
	raw := make([]byte, len(b))
	copy(raw, b)
	return uuidFromRaw(raw), nil
}
