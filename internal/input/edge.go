package input

import (
	"sync/atomic"
	"time"
)

// EdgeCapture records, per button, the time of the last accepted falling
// edge and whether it is still pending classification.
//
// Each button is a single atomic word: the edge time in Unix nanoseconds
// shifted left by one, with the pending flag in bit 0. The edge goroutine
// writes it, the poll loop reads and clears the flag, and both sides always
// see the (timestamp, pending) pair as one value.
type EdgeCapture struct {
	debounce int64
	slots    [NumButtons]atomic.Uint64
}

// NewEdgeCapture creates an EdgeCapture that suppresses edges arriving
// within debounce of the previous accepted edge.
func NewEdgeCapture(debounce time.Duration) *EdgeCapture {
	return &EdgeCapture{debounce: int64(debounce)}
}

// Falling records a falling edge on b at the given time. It returns false
// when the edge was suppressed as bounce or b is unknown.
// Safe to call from the edge event goroutine; it never blocks or allocates.
func (c *EdgeCapture) Falling(b Button, at time.Time) bool {
	if !b.Valid() {
		return false
	}
	ts := at.UnixNano()
	slot := &c.slots[b]
	for {
		v := slot.Load()
		if ts-int64(v>>1) < c.debounce {
			return false
		}
		if slot.CompareAndSwap(v, uint64(ts)<<1|1) {
			return true
		}
	}
}

// Last returns the time of the last accepted edge on b, or the zero time if
// there has been none.
func (c *EdgeCapture) Last(b Button) time.Time {
	if !b.Valid() {
		return time.Time{}
	}
	return unpack(c.slots[b].Load())
}

// Pending reports whether b has an edge that has not been taken yet.
func (c *EdgeCapture) Pending(b Button) bool {
	if !b.Valid() {
		return false
	}
	return c.slots[b].Load()&1 == 1
}

// Take clears the pending flag on b. It returns the edge time and true if
// the flag was set.
func (c *EdgeCapture) Take(b Button) (time.Time, bool) {
	if !b.Valid() {
		return time.Time{}, false
	}
	slot := &c.slots[b]
	for {
		v := slot.Load()
		if v&1 == 0 {
			return time.Time{}, false
		}
		if slot.CompareAndSwap(v, v&^1) {
			return unpack(v), true
		}
	}
}

func unpack(v uint64) time.Time {
	ns := int64(v >> 1)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
