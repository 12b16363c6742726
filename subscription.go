package attgatt

import "sync"

// subscriptionCapacity is the build-time size of the subscription
// registry. The spec calls out 4 as the default; callers that need more
// concurrently-subscribed (connection, CCCD) pairs must raise it here.
const subscriptionCapacity = 4

// ConnHandle identifies a connection to the subscription registry and
// dispatcher. It is an opaque caller-assigned identifier; connection
// lifecycle (establishing or tearing one down) is outside this engine's
// scope.
type ConnHandle uint32

type subscriptionEntry struct {
	cccdHandle uint16 // 0 marks a free slot
	conn       ConnHandle
}

// SubscriptionRegistry is the bounded, per-connection set of enabled
// notify/indicate CCCD handles (component E). It is a fixed-size table,
// not a map, so that enable/disable and the notifier's gating check are
// both simple linear scans over a small, cache-friendly array — the
// same trade the teacher's fixed handle arrays make.
//
// Overflow on enable is silently dropped: if all slots are occupied,
// SetNotify(_, _, true) is a no-op. This is a known limitation carried
// from the spec, not a bug introduced here; callers must budget
// capacity for their expected connection/characteristic fan-out.
type SubscriptionRegistry struct {
	mu      sync.Mutex
	entries [subscriptionCapacity]subscriptionEntry
}

// NewSubscriptionRegistry returns an empty registry.
func NewSubscriptionRegistry() *SubscriptionRegistry {
	return &SubscriptionRegistry{}
}

// ShouldNotify reports whether conn has an enabled subscription on
// cccdHandle.
func (r *SubscriptionRegistry) ShouldNotify(conn ConnHandle, cccdHandle uint16) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.cccdHandle == cccdHandle && e.conn == conn {
			return true
		}
	}
	return false
}

// SetNotify enables or disables conn's subscription on cccdHandle. On
// enable, it takes the first free slot and silently drops the update if
// the table is full. On disable, it zeroes the matching slot if one
// exists.
func (r *SubscriptionRegistry) SetNotify(conn ConnHandle, cccdHandle uint16, enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !enable {
		for i, e := range r.entries {
			if e.cccdHandle == cccdHandle && e.conn == conn {
				r.entries[i] = subscriptionEntry{}
			}
		}
		return
	}

	for _, e := range r.entries {
		if e.cccdHandle == cccdHandle && e.conn == conn {
			return // already enabled
		}
	}
	for i, e := range r.entries {
		if e.cccdHandle == 0 {
			r.entries[i] = subscriptionEntry{cccdHandle: cccdHandle, conn: conn}
			return
		}
	}
	// Table full: overflow is silently dropped, per spec.
}

// Clear zeroes every slot belonging to conn, releasing its subscriptions
// on disconnect.
func (r *SubscriptionRegistry) Clear(conn ConnHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.conn == conn {
			r.entries[i] = subscriptionEntry{}
		}
	}
}
