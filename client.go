package attgatt

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// notifQueueSize bounds how many undelivered notifications a single
// NotificationListener will buffer before newer ones are dropped.
const notifQueueSize = 8

// maxNotifSubscribers bounds how many NotificationListeners a Client
// will serve concurrently, the same fixed-capacity-over-growth
// discipline the subscription registry uses server-side.
const maxNotifSubscribers = 8

// ClientTransport is the outbound half of the client's connection to a
// peer: send one already-L2CAP-framed PDU. Receiving frames back is the
// caller's responsibility; feed them to Client.Deliver as they arrive.
type ClientTransport interface {
	Send(frame []byte) error
}

// ClientService is a discovered primary service: its handle range and
// the UUID it was discovered by.
type ClientService struct {
	UUID  UUID
	Start uint16
	End   uint16
}

// ClientCharacteristic is a discovered characteristic's value handle
// and, if present, its CCCD handle.
type ClientCharacteristic struct {
	Handle     uint16
	CCCDHandle uint16
}

// HasCCCD reports whether the characteristic has a CCCD to subscribe
// through.
func (c ClientCharacteristic) HasCCCD() bool { return c.CCCDHandle != 0 }

type notifMsg struct {
	handle uint16
	value  []byte
}

// Client is the ATT client (component G): a request/response
// correlator plus notification pub-sub, layered over discovery,
// read/write, and subscribe flows. One Client serves one connection.
type Client struct {
	transport ClientTransport

	mu          sync.Mutex
	respCh      chan []byte
	outstanding bool

	subMu sync.Mutex
	subs  [maxNotifSubscribers]chan notifMsg
}

// NewClient returns a client that sends requests through transport.
func NewClient(transport ClientTransport) *Client {
	return &Client{
		transport: transport,
		respCh:    make(chan []byte, 1),
	}
}

// Deliver feeds one inbound, still-L2CAP-framed PDU to the client. It
// demultiplexes: HANDLE_VALUE_NTF PDUs are routed to the notification
// pub-sub, everything else to the response channel awaited by the
// in-flight request.
func (c *Client) Deliver(frame []byte) {
	payload, ok := unframeL2CAP(frame)
	if !ok || len(payload) == 0 {
		return
	}
	if payload[0] == opHandleNotify && len(payload) >= 3 {
		value := make([]byte, len(payload)-3)
		copy(value, payload[3:])
		c.publish(notifMsg{handle: le16(payload[1:]), value: value})
		return
	}

	body := make([]byte, len(payload))
	copy(body, payload)
	select {
	case c.respCh <- body:
	default:
		panic("attgatt: response delivered with no outstanding request")
	}
}

// request sends pdu and blocks for the matching response, converting an
// ATT_ERROR_RSP into an *Error.
func (c *Client) request(pdu []byte) ([]byte, error) {
	c.mu.Lock()
	if c.outstanding {
		c.mu.Unlock()
		panic("attgatt: at most one outstanding request is allowed per client")
	}
	c.outstanding = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.outstanding = false
		c.mu.Unlock()
	}()

	if err := c.transport.Send(frameL2CAP(pdu)); err != nil {
		return nil, errors.Wrap(err, "attgatt: send request")
	}
	resp := <-c.respCh
	if len(resp) >= 5 && resp[0] == opError {
		return nil, Att(AttError(resp[4]))
	}
	return resp, nil
}

func (c *Client) publish(msg notifMsg) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		if ch == nil {
			continue
		}
		select {
		case ch <- msg:
		default:
			// Slow subscriber; drop rather than block publish.
		}
	}
}

// NotificationListener delivers notifications for one subscribed value
// handle, filtering out notifications for any other handle on the
// shared pub-sub.
type NotificationListener struct {
	client      *Client
	valueHandle uint16
	ch          chan notifMsg
	slot        int
}

// Next blocks until a notification for the subscribed handle arrives.
// It returns false if the listener has been closed.
func (l *NotificationListener) Next() ([]byte, bool) {
	for msg := range l.ch {
		if msg.handle == l.valueHandle {
			return msg.value, true
		}
	}
	return nil, false
}

// Close releases the listener's subscriber slot.
func (l *NotificationListener) Close() {
	l.client.subMu.Lock()
	defer l.client.subMu.Unlock()
	if l.client.subs[l.slot] == l.ch {
		close(l.ch)
		l.client.subs[l.slot] = nil
	}
}

func (c *Client) listen(valueHandle uint16) (*NotificationListener, error) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for i, ch := range c.subs {
		if ch == nil {
			nc := make(chan notifMsg, notifQueueSize)
			c.subs[i] = nc
			return &NotificationListener{client: c, valueHandle: valueHandle, ch: nc, slot: i}, nil
		}
	}
	return nil, fmt.Errorf("attgatt: no free notification subscriber slots (max %d)", maxNotifSubscribers)
}

// ServicesByUUID discovers every primary service matching uuid by
// repeated FindByTypeValue requests spanning the full handle space.
func (c *Client) ServicesByUUID(uuid UUID) ([]ClientService, error) {
	var result []ClientService
	start := uint16(0x0001)

	for {
		req := encodeFindByTypeValue(start, 0xFFFF, uuidPrimaryService, uuid.Bytes())
		resp, err := c.request(req)
		if err != nil {
			if isNotFound(err) {
				break
			}
			return result, err
		}
		if len(resp) < 1 || resp[0] != opFindByTypeResp {
			return result, ErrInvalidValue
		}

		body := resp[1:]
		var lastEnd uint16
		for len(body) >= 4 {
			result = append(result, ClientService{UUID: uuid, Start: le16(body), End: le16(body[2:])})
			lastEnd = le16(body[2:])
			body = body[4:]
		}
		if lastEnd == 0 || lastEnd == 0xFFFF {
			break
		}
		start = lastEnd + 1
	}
	return result, nil
}

// CharacteristicByUUID discovers the characteristic matching uuid
// within service, following up with a CCCD lookup if the declaration
// grants Notify or Indicate.
func (c *Client) CharacteristicByUUID(service ClientService, uuid UUID) (ClientCharacteristic, error) {
	start := service.Start
	for {
		resp, err := c.request(encodeReadByType(start, service.End, uuidCharacteristic))
		if err != nil {
			if isNotFound(err) {
				return ClientCharacteristic{}, ErrNotFound
			}
			return ClientCharacteristic{}, err
		}

		handle, declBody, ok := parseReadByTypeResp(resp)
		if !ok {
			return ClientCharacteristic{}, ErrInvalidValue
		}
		props, valueHandle, declUUID, ok := decodeDeclaration(declBody)
		if !ok {
			return ClientCharacteristic{}, ErrInvalidValue
		}

		if declUUID.Equal(uuid) {
			ch := ClientCharacteristic{Handle: valueHandle}
			if props.Any(PropNotify | PropIndicate) {
				if cresp, err := c.request(encodeReadByType(valueHandle, valueHandle+1, uuidCCCD)); err == nil {
					if cccdHandle, _, ok := parseReadByTypeResp(cresp); ok {
						ch.CCCDHandle = cccdHandle
					}
				}
			}
			return ch, nil
		}

		if handle == 0xFFFF {
			return ClientCharacteristic{}, ErrNotFound
		}
		start = handle + 1
	}
}

// ReadCharacteristic reads ch's value into dest, returning the number
// of bytes copied.
func (c *Client) ReadCharacteristic(ch ClientCharacteristic, dest []byte) (int, error) {
	resp, err := c.request(encodeRead(ch.Handle))
	if err != nil {
		return 0, err
	}
	if len(resp) < 1 || resp[0] != opReadResp {
		return 0, ErrInvalidValue
	}
	return copy(dest, resp[1:]), nil
}

// ReadCharacteristicByUUID reads the first characteristic matching uuid
// within service into dest, without a prior discovery round-trip.
func (c *Client) ReadCharacteristicByUUID(service ClientService, uuid UUID, dest []byte) (int, error) {
	resp, err := c.request(encodeReadByType(service.Start, service.End, uuid))
	if err != nil {
		return 0, err
	}
	_, value, ok := parseReadByTypeResp(resp)
	if !ok {
		return 0, ErrInvalidValue
	}
	return copy(dest, value), nil
}

// WriteCharacteristic writes buf as ch's new value, expecting a
// WriteRsp.
func (c *Client) WriteCharacteristic(ch ClientCharacteristic, buf []byte) error {
	resp, err := c.request(encodeWrite(ch.Handle, buf))
	if err != nil {
		return err
	}
	if len(resp) < 1 || resp[0] != opWriteResp {
		return ErrInvalidValue
	}
	return nil
}

// Subscribe enables notifications (or, if indication is true,
// indications) on ch's CCCD and returns a listener for the resulting
// HANDLE_VALUE_NTF PDUs.
func (c *Client) Subscribe(ch ClientCharacteristic, indication bool) (*NotificationListener, error) {
	if !ch.HasCCCD() {
		return nil, fmt.Errorf("attgatt: characteristic %#04x has no CCCD", ch.Handle)
	}
	val := uint16(0x0001)
	if indication {
		val = 0x0002
	}
	resp, err := c.request(encodeWrite(ch.CCCDHandle, []byte{byte(val), byte(val >> 8)}))
	if err != nil {
		return nil, err
	}
	if len(resp) < 1 || resp[0] != opWriteResp {
		return nil, ErrInvalidValue
	}
	return c.listen(ch.Handle)
}

// Unsubscribe disables notifications and indications on ch's CCCD.
func (c *Client) Unsubscribe(ch ClientCharacteristic) error {
	if !ch.HasCCCD() {
		return nil
	}
	_, err := c.request(encodeWrite(ch.CCCDHandle, []byte{0x00, 0x00}))
	return err
}

func isNotFound(err error) bool {
	ae, ok := err.(*Error)
	return ok && ae.Err == nil && ae.Code == ErrAttributeNotFound
}

// parseReadByTypeResp splits a ReadByType/ReadByGroupType-shaped
// response (opcode, pair_len, handle(2), value...) into the matched
// handle and its value bytes.
func parseReadByTypeResp(resp []byte) (handle uint16, value []byte, ok bool) {
	if len(resp) < 4 || (resp[0] != opReadByTypeResp && resp[0] != opReadByGroupResp) {
		return 0, nil, false
	}
	pairLen := int(resp[1])
	body := resp[2:]
	if pairLen < 2 || len(body) < pairLen {
		return 0, nil, false
	}
	return le16(body), body[2:pairLen], true
}

func encodeFindByTypeValue(start, end uint16, typeUUID UUID, value []byte) []byte {
	buf := make([]byte, 0, 7+len(value))
	buf = append(buf, opFindByTypeReq)
	buf = appendU16(buf, start)
	buf = appendU16(buf, end)
	buf = append(buf, typeUUID.Bytes()...)
	buf = append(buf, value...)
	return buf
}

func encodeReadByType(start, end uint16, typeUUID UUID) []byte {
	buf := make([]byte, 0, 5+typeUUID.Len())
	buf = append(buf, opReadByTypeReq)
	buf = appendU16(buf, start)
	buf = appendU16(buf, end)
	buf = append(buf, typeUUID.Bytes()...)
	return buf
}

func encodeRead(handle uint16) []byte {
	buf := make([]byte, 0, 3)
	buf = append(buf, opReadReq)
	return appendU16(buf, handle)
}

func encodeWrite(handle uint16, data []byte) []byte {
	buf := make([]byte, 0, 3+len(data))
	buf = append(buf, opWriteReq)
	buf = appendU16(buf, handle)
	buf = append(buf, data...)
	return buf
}

func appendU16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}
