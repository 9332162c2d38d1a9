package mqtt

import "log"

// pendingMsg is a serialized message held for replay after reconnection.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO holding messages while the broker is
// unreachable. When full, the oldest message is dropped.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type ringBuffer struct {
	buf     []pendingMsg
	head    int // next write position
	count   int
	dropped int // messages lost since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]pendingMsg, capacity)}
}

func (r *ringBuffer) push(msg pendingMsg) {
	if r.count == len(r.buf) {
		if r.dropped == 0 {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", len(r.buf))
		}
		r.dropped++
		// head already points at the oldest entry
		r.buf[r.head] = msg
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % len(r.buf)
	r.count++
}

// drain returns the buffered messages oldest first, plus how many were
// dropped, and empties the buffer.
func (r *ringBuffer) drain() ([]pendingMsg, int) {
	dropped := r.dropped
	r.dropped = 0
	if r.count == 0 {
		return nil, dropped
	}

	out := make([]pendingMsg, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
		r.buf[(start+i)%len(r.buf)] = pendingMsg{}
	}
	r.count = 0
	r.head = 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
