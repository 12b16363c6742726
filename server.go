package attgatt

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultMTU is the ATT MTU assumed for a connection before Exchange
// MTU negotiation, per the Bluetooth Core spec's minimum.
const DefaultMTU = 23

// MaxMTU bounds how large a negotiated MTU this server will honor.
const MaxMTU = 517

// Server is a GATT server: an attribute database, a request dispatcher,
// a subscription registry, and a notifier, wired together. Unlike the
// teacher's Server, this one owns no transport of its own — the HCI
// controller, L2CAP channel multiplexer, and connection lifecycle are
// external collaborators (see HandleRequest) the embedding application
// supplies.
type Server struct {
	// Name is the device name exposed via the Generic Access service's
	// Device Name characteristic (0x2A00). NewServer copies it into that
	// characteristic; later changes to this field do not alter the
	// exposed value.
	Name string

	// Log receives structured diagnostics for dropped or malformed
	// PDUs. If nil, logging is disabled.
	Log logrus.FieldLogger

	table *AttributeTable
	subs  *SubscriptionRegistry
	disp  *Dispatcher
	notif *Notifier

	built bool

	mu   sync.RWMutex
	mtus map[ConnHandle]int
}

// NewServer returns a server named name, ready to have services added
// via AddService. capacity bounds the number of attributes the
// database can hold; it must account for the built-in Generic Access
// service (Device Name, its User Description descriptor, and
// Appearance — 6 attributes) and the empty Generic Attribute service
// (1 attribute) plus every service, characteristic, and descriptor the
// caller will add.
func NewServer(name string, acl AclSender, capacity int) *Server {
	table := NewAttributeTable(capacity)
	subs := NewSubscriptionRegistry()
	s := &Server{
		Name:  name,
		table: table,
		subs:  subs,
		disp:  NewDispatcher(table, subs),
		notif: NewNotifier(subs, acl),
		mtus:  make(map[ConnHandle]int),
	}
	s.addDefaultServices()
	return s
}

// addDefaultServices populates the Generic Access service (Device Name,
// Appearance) and an empty Generic Attribute service, mirroring what
// every GATT server exposes regardless of application services.
func (s *Server) addDefaultServices() {
	gap := s.table.AddService(uuidGenericAccessService)
	deviceName := gap.AddCharacteristicReadOnly(uuidDeviceName, PropRead, NewFixedValue([]byte(s.Name)))
	deviceName.AddDescriptorReadOnly(uuidCharUserDescription, PropRead, NewFixedValue([]byte("Device Name")))
	gap.AddCharacteristicReadOnly(uuidAppearance, PropRead, NewFixedValue(genericComputerAppearance))
	gap.Build()

	gatt := s.table.AddService(uuidGenericAttributeService)
	gatt.Build()
}

// AddService registers a new primary service. It must be called before
// Build, and the returned ServiceBuilder's own Build must be called
// before the service can be used by any connection.
func (s *Server) AddService(uuid UUID) *ServiceBuilder {
	if s.built {
		panic("attgatt: AddService called after Build")
	}
	return s.table.AddService(uuid)
}

// Build finalizes the server's attribute database. It must be called
// exactly once, after every application service has been added and
// sealed, and before HandleRequest is called for any connection.
func (s *Server) Build() {
	s.built = true
}

// Notifier returns the server's notifier, for sending notifications
// gated by the subscription registry.
func (s *Server) Notifier() *Notifier { return s.notif }

// Table returns the server's attribute database, for diagnostics. Walks
// must hold Table().Lock() for their duration.
func (s *Server) Table() *AttributeTable { return s.table }

// Connected registers conn with DefaultMTU. Call it when the
// connection-lifecycle layer reports a new link; HandleRequest treats
// an unregistered connection as having DefaultMTU.
func (s *Server) Connected(conn ConnHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mtus[conn] = DefaultMTU
}

// Disconnected releases conn's negotiated MTU and subscriptions. Call
// it when the connection-lifecycle layer reports the link is gone.
func (s *Server) Disconnected(conn ConnHandle) {
	s.mu.Lock()
	delete(s.mtus, conn)
	s.mu.Unlock()
	s.subs.Clear(conn)
}

func (s *Server) mtu(conn ConnHandle) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.mtus[conn]; ok {
		return m
	}
	return DefaultMTU
}

// HandleRequest is the server's outer loop, described in the dispatch
// design as framing-and-truncation glue around the core dispatcher: it
// strips the L2CAP header from frame, handles Exchange MTU itself (the
// core dispatcher never sees it), otherwise hands the ATT payload to
// the Dispatcher, truncates the result to the connection's negotiated
// MTU, and re-frames it for the ACL sender. It returns nil if the
// request produced no response (WriteCmd, or a malformed frame that
// was merely logged and dropped).
func (s *Server) HandleRequest(conn ConnHandle, frame []byte) []byte {
	payload, ok := unframeL2CAP(frame)
	if !ok {
		s.logf("attgatt: dropping malformed L2CAP frame from %v", conn)
		return nil
	}
	if len(payload) == 0 {
		return nil
	}

	if payload[0] == opMtuReq {
		return frameL2CAP(s.handleMTU(conn, payload))
	}

	mtu := s.mtu(conn)
	resp := s.disp.Process(conn, payload, mtu)
	if resp == nil {
		return nil
	}
	if len(resp) > mtu {
		resp = resp[:mtu]
	}
	return frameL2CAP(resp)
}

func (s *Server) handleMTU(conn ConnHandle, payload []byte) []byte {
	clientMTU := DefaultMTU
	if len(payload) >= 3 {
		clientMTU = int(payload[1]) | int(payload[2])<<8
	}
	negotiated := clientMTU
	if negotiated < DefaultMTU {
		negotiated = DefaultMTU
	}
	if negotiated > MaxMTU {
		negotiated = MaxMTU
	}

	s.mu.Lock()
	s.mtus[conn] = negotiated
	s.mu.Unlock()

	return []byte{opMtuResp, byte(negotiated), byte(negotiated >> 8)}
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.Log != nil {
		s.Log.Debugf(format, args...)
	}
}
