package attgatt

// eventKind distinguishes a GattEvent's direction.
type eventKind int

const (
	eventRead eventKind = iota
	eventWrite
)

// GattEvent is one pending read or write, handed to a foreground task
// that owns the value data without implementing ValueHandler directly.
// Exactly one of Reply/Fail (for a read) or Ack/Fail (for a write) must
// be called exactly once per event, or the originating ATT request
// never completes.
type GattEvent struct {
	kind   eventKind
	UUID   UUID
	Handle uint16
	Offset int

	value []byte // write: the payload to consume

	out  []byte
	n    int
	err  error
	done chan struct{}
}

// IsRead reports whether this event is a read request.
func (e *GattEvent) IsRead() bool { return e.kind == eventRead }

// IsWrite reports whether this event is a write request.
func (e *GattEvent) IsWrite() bool { return e.kind == eventWrite }

// Value returns the payload of a write event. It is nil for read
// events.
func (e *GattEvent) Value() []byte { return e.value }

// Reply fills a read event's destination buffer with data and
// completes it. It must only be called for a read event.
func (e *GattEvent) Reply(data []byte) {
	e.n = copy(e.out, data)
	close(e.done)
}

// Ack completes a write event successfully. It must only be called for
// a write event.
func (e *GattEvent) Ack() {
	close(e.done)
}

// Fail completes the event with an AttError, surfaced to the peer as an
// ATT_ERROR_RSP.
func (e *GattEvent) Fail(err error) {
	e.err = err
	close(e.done)
}

// SplitBridge is the Split Event Bridge (component H): a ValueHandler
// that turns D's read/write calls into GattEvents polled by a
// foreground task, instead of requiring that task to implement
// ValueHandler itself.
//
// The exchange area is a depth-1 channel, matching the spec's "at most
// one outstanding request" invariant; since the database mutex is held
// across the ServeRead/ServeWrite call for the entirety of one ATT
// request, that invariant holds for free here — there is structurally
// only one in-flight call into any handler at a time.
type SplitBridge struct {
	events chan *GattEvent
}

// NewSplitBridge returns a bridge whose Events channel the foreground
// task should range over.
func NewSplitBridge() *SplitBridge {
	return &SplitBridge{events: make(chan *GattEvent, 1)}
}

// Events returns the channel of pending read/write requests. The
// foreground task should loop: event := <-Events(); handle it; Reply or
// Ack or Fail it.
func (b *SplitBridge) Events() <-chan *GattEvent { return b.events }

// ServeRead implements ValueHandler by handing off a read GattEvent and
// blocking until the foreground task replies.
func (b *SplitBridge) ServeRead(uuid UUID, handle uint16, offset int, out []byte) (int, error) {
	ev := &GattEvent{kind: eventRead, UUID: uuid, Handle: handle, Offset: offset, out: out, done: make(chan struct{})}
	b.events <- ev
	<-ev.done
	if ev.err != nil {
		return 0, ev.err
	}
	return ev.n, nil
}

// ServeWrite implements ValueHandler by handing off a write GattEvent
// and blocking until the foreground task acknowledges it.
func (b *SplitBridge) ServeWrite(uuid UUID, handle uint16, offset int, data []byte) error {
	value := make([]byte, len(data))
	copy(value, data)
	ev := &GattEvent{kind: eventWrite, UUID: uuid, Handle: handle, Offset: offset, value: value, done: make(chan struct{})}
	b.events <- ev
	<-ev.done
	return ev.err
}
