package attgatt

import "sync"

// attrKind tags which variant of Attribute.data is in play. It plays the
// role the teacher's handleType enum played for bleno-style handles, but
// carries the GATT attribute semantics this engine actually needs.
type attrKind int

const (
	kindService attrKind = iota
	kindReadOnlyData
	kindData
	kindDeclaration
	kindCCCD
)

// Attribute is one addressable record in the database: a handle, a type
// UUID, and a tagged value variant. The variant fields below are only
// meaningful for the matching kind; see readable/writable/read/write in
// codec.go.
type Attribute struct {
	UUID              UUID
	Handle            uint16
	LastHandleInGroup uint16

	kind attrKind

	// kindService
	serviceUUID UUID

	// kindReadOnlyData, kindData, kindDeclaration (props gates the
	// Declaration's own characteristic, not the Declaration attribute
	// itself, which is always readable)
	props CharacteristicProps

	// kindReadOnlyData, kindData: the user-supplied handler backing this
	// value, and the UUID/handle context threaded through it.
	handler ValueHandler

	// kindDeclaration
	declValueHandle uint16
	declUUID        UUID

	// kindCCCD
	notifications bool
	indications   bool
}

// IsService reports whether a is a primary service declaration.
func (a *Attribute) IsService() bool { return a.kind == kindService }

// IsDeclaration reports whether a is a characteristic declaration.
func (a *Attribute) IsDeclaration() bool { return a.kind == kindDeclaration }

// IsCCCD reports whether a is a Client Characteristic Configuration
// Descriptor.
func (a *Attribute) IsCCCD() bool { return a.kind == kindCCCD }

// KindString names a's variant, for diagnostics and CLI output.
func (a *Attribute) KindString() string {
	switch a.kind {
	case kindService:
		return "Service"
	case kindReadOnlyData:
		return "ReadOnlyData"
	case kindData:
		return "Data"
	case kindDeclaration:
		return "Declaration"
	case kindCCCD:
		return "CCCD"
	default:
		return "Unknown"
	}
}

// AttributeTable is the fixed-capacity, append-only-at-setup attribute
// database (component A). It is populated by the ServiceBuilder chain
// before requests are dispatched and thereafter mutated only in place (CCCD
// flags, user-handler-owned values); the slice itself never grows again.
//
// A single mutex protects the sequence for concurrent request
// processing, matching the single-database-mutex model the dispatcher
// assumes. Callers that need to walk the table (the dispatcher) must
// hold Lock across the walk; Attrs returns the live slice, not a copy.
type AttributeTable struct {
	mu    sync.Mutex
	attrs []*Attribute

	// nextHandle is the monotonic handle counter, starting at 1 (handle
	// 0 is reserved/invalid). It jumps to the next multiple of 16 on
	// every ServiceBuilder.Build, per the 16-alignment policy.
	nextHandle uint16
}

// NewAttributeTable returns an empty table sized to hold capacity
// attributes without reallocating during the setup phase.
func NewAttributeTable(capacity int) *AttributeTable {
	return &AttributeTable{
		attrs:      make([]*Attribute, 0, capacity),
		nextHandle: 1,
	}
}

// Lock acquires the database mutex for the duration of one request's
// processing. The dispatcher holds it across any handler await, per the
// concurrency model's intentional serialization.
func (t *AttributeTable) Lock() { t.mu.Lock() }

// Unlock releases the database mutex.
func (t *AttributeTable) Unlock() { t.mu.Unlock() }

// Attrs returns the live, ordered attribute slice. Callers must hold
// Lock for the duration of any walk.
func (t *AttributeTable) Attrs() []*Attribute { return t.attrs }

// At returns the attribute with the given handle, or nil if none
// matches. Callers must hold Lock. The scan is linear but bounded by
// the table's fixed capacity.
func (t *AttributeTable) At(handle uint16) *Attribute {
	for _, a := range t.attrs {
		if a.Handle == handle {
			return a
		}
	}
	return nil
}

// push assigns the next handle to attr, appends it, and advances the
// counter. It is only ever called from the single-owner builder chain
// during setup, so it does not take the table's runtime mutex.
func (t *AttributeTable) push(attr *Attribute) uint16 {
	h := t.nextHandle
	attr.Handle = h
	attr.LastHandleInGroup = h
	t.attrs = append(t.attrs, attr)
	t.nextHandle++
	return h
}

// ServiceHandle identifies a sealed service: its declaration handle and
// the last handle in its 16-aligned group.
type ServiceHandle struct {
	Handle            uint16
	LastHandleInGroup uint16
}

// Characteristic identifies a sealed characteristic's value handle and,
// if Notify or Indicate was set, its CCCD handle. CCCDHandle is 0 (the
// reserved/invalid handle) when the characteristic has no CCCD.
type Characteristic struct {
	Handle     uint16
	CCCDHandle uint16
}

// HasCCCD reports whether the characteristic carries a CCCD.
func (c Characteristic) HasCCCD() bool { return c.CCCDHandle != 0 }

// ServiceBuilder is the transient object returned by AddService. It
// remembers where the current service's attributes begin so that Build
// can stamp every one of them with the sealed LastHandleInGroup. Go has
// no destructors, so unlike the teacher's borrow-and-Drop pattern, Build
// must be called explicitly for every service — failing to call it
// leaves the service's attributes with LastHandleInGroup == Handle and
// next_handle unaligned, silently breaking invariant 1.
type ServiceBuilder struct {
	table *AttributeTable
	start int
	handle uint16
}

// AddService appends a primary service declaration and returns a builder
// for adding its characteristics. Build must be called on the returned
// builder before the next AddService call.
func (t *AttributeTable) AddService(uuid UUID) *ServiceBuilder {
	start := len(t.attrs)
	h := t.push(&Attribute{
		kind:        kindService,
		UUID:        uuidPrimaryService,
		serviceUUID: uuid,
	})
	return &ServiceBuilder{table: t, start: start, handle: h}
}

// AddCharacteristic pushes a Declaration, a handler-backed value
// attribute, and (if props grants Notify or Indicate) a CCCD, per the
// fixed 2-or-3-push layout.
func (sb *ServiceBuilder) AddCharacteristic(uuid UUID, props CharacteristicProps, h ValueHandler) *CharacteristicBuilder {
	return sb.addCharacteristic(uuid, props, kindData, h)
}

// AddCharacteristicReadOnly is like AddCharacteristic but the value
// attribute is ReadOnlyData: readable whenever matched, regardless of
// props.Read, and never writable.
func (sb *ServiceBuilder) AddCharacteristicReadOnly(uuid UUID, props CharacteristicProps, h ValueHandler) *CharacteristicBuilder {
	return sb.addCharacteristic(uuid, props, kindReadOnlyData, h)
}

func (sb *ServiceBuilder) addCharacteristic(uuid UUID, props CharacteristicProps, valueKind attrKind, h ValueHandler) *CharacteristicBuilder {
	t := sb.table
	valueHandle := t.nextHandle + 1
	cccdHandle := t.nextHandle + 2

	t.push(&Attribute{
		kind:            kindDeclaration,
		UUID:            uuidCharacteristic,
		props:           props,
		declValueHandle: valueHandle,
		declUUID:        uuid,
	})

	t.push(&Attribute{
		kind:    valueKind,
		UUID:    uuid,
		props:   props,
		handler: h,
	})

	ch := Characteristic{Handle: valueHandle}
	if props.Any(PropNotify | PropIndicate) {
		t.push(&Attribute{
			kind: kindCCCD,
			UUID: uuidCCCD,
		})
		ch.CCCDHandle = cccdHandle
	}

	return &CharacteristicBuilder{table: t, characteristic: ch}
}

// Build seals the service: every attribute pushed since AddService gets
// LastHandleInGroup set to the handle of the last one pushed, and the
// table's next_handle jumps up to the next multiple of 16 so the next
// service starts on an aligned boundary. Returns the sealed
// ServiceHandle.
func (sb *ServiceBuilder) Build() ServiceHandle {
	t := sb.table
	last := t.nextHandle - 1
	for _, a := range t.attrs[sb.start:] {
		a.LastHandleInGroup = last
	}
	if rem := t.nextHandle % 16; rem != 0 {
		t.nextHandle += 16 - rem
	}
	return ServiceHandle{Handle: sb.handle, LastHandleInGroup: last}
}

// CharacteristicBuilder is the transient object returned by
// AddCharacteristic(ReadOnly). It lets descriptors be appended after the
// characteristic's CCCD (if any) and before the next characteristic or
// service seal.
type CharacteristicBuilder struct {
	table          *AttributeTable
	characteristic Characteristic
}

// AddDescriptor pushes a handler-backed descriptor attribute, writable
// iff props grants Write, WriteWithoutResponse, or AuthenticatedWrite.
func (cb *CharacteristicBuilder) AddDescriptor(uuid UUID, props CharacteristicProps, h ValueHandler) uint16 {
	return cb.table.push(&Attribute{
		kind:    kindData,
		UUID:    uuid,
		props:   props,
		handler: h,
	})
}

// AddDescriptorReadOnly pushes a descriptor attribute that is always
// readable and never writable, regardless of props.
func (cb *CharacteristicBuilder) AddDescriptorReadOnly(uuid UUID, props CharacteristicProps, h ValueHandler) uint16 {
	return cb.table.push(&Attribute{
		kind:    kindReadOnlyData,
		UUID:    uuid,
		props:   props,
		handler: h,
	})
}

// Build returns the characteristic handle pair recorded when it was
// added; it performs no further table mutation. It exists so caller code
// reads symmetrically with ServiceBuilder.Build.
func (cb *CharacteristicBuilder) Build() Characteristic { return cb.characteristic }

// FindCharacteristicByValueHandle returns the Characteristic whose value
// attribute has the given handle, following invariant 4 to pick up a
// trailing CCCD at handle+1 if present. Callers must hold Lock.
func (t *AttributeTable) FindCharacteristicByValueHandle(handle uint16) (Characteristic, bool) {
	for i, a := range t.attrs {
		if a.Handle != handle || a.kind == kindDeclaration || a.kind == kindService {
			continue
		}
		ch := Characteristic{Handle: handle}
		if i+1 < len(t.attrs) && t.attrs[i+1].IsCCCD() {
			ch.CCCDHandle = t.attrs[i+1].Handle
		}
		return ch, true
	}
	return Characteristic{}, false
}
