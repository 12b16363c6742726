package attgatt

import "errors"

// AclSender is the outbound ACL queue this engine hands framed PDUs to.
// Its implementation — HCI controller, transport socket, whatever sits
// below L2CAP — is an external collaborator outside this engine's
// scope; Notifier and Server only ever see this interface.
type AclSender interface {
	Send(conn ConnHandle, frame []byte) error
}

// ErrNoCCCD is returned by Notify when the target characteristic has no
// CCCD to gate on; such a characteristic was never built with Notify or
// Indicate in its properties, so it structurally cannot be notified.
var ErrNoCCCD = errors.New("attgatt: characteristic has no CCCD")

// Notifier builds and enqueues notification PDUs, gated by a
// SubscriptionRegistry (component F). One Notifier is shared across all
// connections of a server.
type Notifier struct {
	subs *SubscriptionRegistry
	acl  AclSender
}

// NewNotifier returns a notifier gating sends through subs and handing
// framed PDUs to acl.
func NewNotifier(subs *SubscriptionRegistry, acl AclSender) *Notifier {
	return &Notifier{subs: subs, acl: acl}
}

// Notify sends value as a notification for ch on conn, if and only if
// conn currently has notifications enabled on ch's CCCD. If ch has no
// CCCD at all, Notify fails with ErrNoCCCD. If the CCCD exists but is
// not currently enabled, Notify succeeds without sending anything.
func (n *Notifier) Notify(conn ConnHandle, ch Characteristic, value []byte) error {
	if !ch.HasCCCD() {
		return ErrNoCCCD
	}
	if !n.subs.ShouldNotify(conn, ch.CCCDHandle) {
		return nil
	}

	pdu := make([]byte, 0, 3+len(value))
	pdu = append(pdu, opHandleNotify)
	pdu = append(pdu, byte(ch.Handle), byte(ch.Handle>>8))
	pdu = append(pdu, value...)

	return n.acl.Send(conn, frameL2CAP(pdu))
}
