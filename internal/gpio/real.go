//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealDevice drives buttons and lights on actual hardware using the Linux
// GPIO character device.
type RealDevice struct {
	chip    *gpiocdev.Chip
	buttons []*gpiocdev.Line
	lights  []*gpiocdev.Line
	offsets map[int]int
}

// NewRealDevice requests the button lines as pulled-up inputs with falling
// edge detection and the light lines as outputs, initially off. onEdge may
// be nil.
func NewRealDevice(pins Pins, onEdge EdgeHandler) (*RealDevice, error) {
	chip, err := gpiocdev.NewChip(pins.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	d := &RealDevice{chip: chip, offsets: make(map[int]int, len(pins.Buttons))}
	for i, offset := range pins.Buttons {
		d.offsets[offset] = i
	}

	handler := func(evt gpiocdev.LineEvent) {
		if onEdge == nil || evt.Type != gpiocdev.LineEventFallingEdge {
			return
		}
		if i, ok := d.offsets[evt.Offset]; ok {
			onEdge(i, time.Now())
		}
	}

	for _, offset := range pins.Buttons {
		// Buttons pull the line to ground when pressed.
		line, err := chip.RequestLine(offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithFallingEdge,
			gpiocdev.WithEventHandler(handler))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request button pin %d: %w", offset, err)
		}
		d.buttons = append(d.buttons, line)
	}

	for _, offset := range pins.Lights {
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("request light pin %d: %w", offset, err)
		}
		d.lights = append(d.lights, line)
	}

	return d, nil
}

// ButtonLow reports whether button i reads low.
func (d *RealDevice) ButtonLow(i int) (bool, error) {
	if i < 0 || i >= len(d.buttons) {
		return false, fmt.Errorf("button %d out of range", i)
	}
	v, err := d.buttons[i].Value()
	if err != nil {
		return false, fmt.Errorf("read button %d: %w", i, err)
	}
	return v == 0, nil
}

// SetLight switches light i on or off.
func (d *RealDevice) SetLight(i int, on bool) error {
	if i < 0 || i >= len(d.lights) {
		return fmt.Errorf("light %d out of range", i)
	}
	v := 0
	if on {
		v = 1
	}
	if err := d.lights[i].SetValue(v); err != nil {
		return fmt.Errorf("set light %d: %w", i, err)
	}
	return nil
}

// Close releases GPIO resources.
// Lights are switched off and every line is returned to an input with
// pull-down (matching Pi boot defaults) before closing.
func (d *RealDevice) Close() error {
	var errs []error

	for i, line := range d.lights {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("switch off light %d: %w", i, err))
		}
	}
	for _, line := range append(d.buttons, d.lights...) {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", line.Offset(), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", line.Offset(), err))
		}
	}
	d.buttons, d.lights = nil, nil

	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		d.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
