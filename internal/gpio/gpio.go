// Package gpio provides button and light access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// EdgeHandler is called from the event goroutine for every falling edge
// on a button line. index is the button's position in Pins.Buttons.
type EdgeHandler func(index int, at time.Time)

// Device reads buttons and drives lights.
type Device interface {
	// ButtonLow reports whether button i reads low (pressed).
	ButtonLow(i int) (bool, error)

	// SetLight switches light i on or off.
	SetLight(i int, on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pins maps buttons and lights to line offsets on a chip (BCM numbering).
type Pins struct {
	Chip string
	// Buttons in Left, Middle, Right, Void, Confirm order.
	Buttons []int
	// Lights in Left, Middle, Right order.
	Lights []int
}

// Default pin assignment (BCM numbering)
const (
	PinLeft    = 18
	PinMiddle  = 19
	PinRight   = 20
	PinVoid    = 2
	PinConfirm = 3

	PinLightLeft   = 17
	PinLightMiddle = 27
	PinLightRight  = 22
)

// DefaultPins returns the wiring used by the reference board.
func DefaultPins() Pins {
	return Pins{
		Chip:    "gpiochip0",
		Buttons: []int{PinLeft, PinMiddle, PinRight, PinVoid, PinConfirm},
		Lights:  []int{PinLightLeft, PinLightMiddle, PinLightRight},
	}
}
