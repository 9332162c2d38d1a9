package main

import (
	"fmt"
	"log"

	"github.com/sweeney/reaction-timer/internal/gpio"
	"github.com/sweeney/reaction-timer/internal/input"
	"github.com/sweeney/reaction-timer/internal/logic"
)

// sampleLevels reads every button once.
func sampleLevels(dev gpio.Device) (input.Sample, error) {
	var s input.Sample
	for i, b := range input.Buttons {
		low, err := dev.ButtonLow(i)
		if err != nil {
			return input.Sample{}, fmt.Errorf("read %s: %w", b, err)
		}
		s[i] = low
	}
	return s, nil
}

// deviceLights drives the stimulus lights through the GPIO device.
type deviceLights struct {
	dev gpio.Device
}

func (d deviceLights) SetLight(l logic.Light, on bool) {
	if err := d.dev.SetLight(int(l), on); err != nil {
		log.Printf("gpio write error: %s: %v", l, err)
	}
}
