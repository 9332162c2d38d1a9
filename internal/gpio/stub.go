//go:build !linux

package gpio

import "errors"

// RealDevice is not available on non-Linux platforms.
type RealDevice struct{}

// NewRealDevice returns an error on non-Linux platforms.
func NewRealDevice(pins Pins, onEdge EdgeHandler) (*RealDevice, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ButtonLow is not implemented on non-Linux platforms.
func (d *RealDevice) ButtonLow(i int) (bool, error) {
	return false, errors.New("gpio: not supported")
}

// SetLight is not implemented on non-Linux platforms.
func (d *RealDevice) SetLight(i int, on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *RealDevice) Close() error {
	return nil
}
