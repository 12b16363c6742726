package attgatt

import "fmt"

// Error is the client-side error type: either a transport-level
// failure, a protocol mismatch, or an ATT_ERROR_RSP relayed from the
// peer.
type Error struct {
	// Code is set when the peer returned an ATT_ERROR_RSP; Err is set
	// otherwise. Exactly one of the two is non-zero.
	Code AttError
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("att: %s", e.Code)
}

// Unwrap exposes the underlying transport error, if any, for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// Att wraps an ATT_ERROR_RSP code as a client Error.
func Att(code AttError) *Error { return &Error{Code: code} }

// ErrInvalidValue is returned when a response PDU's opcode doesn't
// match what the request expected.
var ErrInvalidValue = &Error{Err: fmt.Errorf("attgatt: response opcode did not match request")}

// ErrNotFound signals a discovery loop found nothing more to iterate;
// it is AttributeNotFound surfacing as a normal termination condition,
// not a failure.
var ErrNotFound = Att(ErrAttributeNotFound)
