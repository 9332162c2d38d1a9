package gpio

import (
	"fmt"
	"sync"
	"time"
)

// LightWrite is one recorded SetLight call.
type LightWrite struct {
	Light int
	On    bool
}

// FakeDevice is a test double with scripted button levels. Press and
// Release change levels and Press fires the edge handler like the real
// event goroutine would.
type FakeDevice struct {
	mu     sync.Mutex
	onEdge EdgeHandler
	low    []bool
	lit    []bool
	writes []LightWrite
	closed bool

	// ReadError, if set, will be returned by ButtonLow.
	ReadError error
}

// NewFakeDevice creates a FakeDevice with the given number of buttons and
// lights. onEdge may be nil.
func NewFakeDevice(buttons, lights int, onEdge EdgeHandler) *FakeDevice {
	return &FakeDevice{
		onEdge: onEdge,
		low:    make([]bool, buttons),
		lit:    make([]bool, lights),
	}
}

// Press drives button i low and reports a falling edge at the given time.
func (f *FakeDevice) Press(i int, at time.Time) {
	f.mu.Lock()
	f.low[i] = true
	handler := f.onEdge
	f.mu.Unlock()

	if handler != nil {
		handler(i, at)
	}
}

// Release lets button i float back high.
func (f *FakeDevice) Release(i int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.low[i] = false
}

// ButtonLow returns the scripted level of button i.
func (f *FakeDevice) ButtonLow(i int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if i < 0 || i >= len(f.low) {
		return false, fmt.Errorf("button %d out of range", i)
	}
	return f.low[i], nil
}

// SetLight records the write.
func (f *FakeDevice) SetLight(i int, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.lit) {
		return fmt.Errorf("light %d out of range", i)
	}
	f.lit[i] = on
	f.writes = append(f.writes, LightWrite{Light: i, On: on})
	return nil
}

// Lit reports the last value written to light i.
func (f *FakeDevice) Lit(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lit[i]
}

// Writes returns a copy of every light write so far.
func (f *FakeDevice) Writes() []LightWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]LightWrite, len(f.writes))
	copy(out, f.writes)
	return out
}

// Close marks the device as closed.
func (f *FakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeDevice) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
