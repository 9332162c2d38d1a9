package logic

import (
	"math/rand/v2"
	"time"

	"github.com/sweeney/reaction-timer/internal/input"
)

// DeviceContext holds every piece of mutable device state. The edge
// goroutine only ever touches Edges; everything else belongs to the poll
// loop.
type DeviceContext struct {
	Edges      *input.EdgeCapture
	Classifier *input.Classifier
	Scheduler  *Scheduler
	Machine    *Machine
}

// NewDeviceContext wires a classifier, scheduler and state machine around
// an existing EdgeCapture.
func NewDeviceContext(edges *input.EdgeCapture, th input.Thresholds, timing Timing, rng *rand.Rand, gw Gateways, userID int) *DeviceContext {
	sched := NewScheduler(timing, rng)
	return &DeviceContext{
		Edges:      edges,
		Classifier: input.NewClassifier(edges, th),
		Scheduler:  sched,
		Machine:    NewMachine(timing, sched, gw, userID),
	}
}

// Cycle runs one poll cycle: gesture classification, stimulus scheduling,
// then the state machine, in that order. It never blocks.
func (d *DeviceContext) Cycle(now time.Time, levels input.Levels) ([]input.Gesture, []Event) {
	gestures := d.Classifier.Process(now, levels, d.Machine.Phase())
	stim := d.Scheduler.Poll(now)
	events := d.Machine.Step(now, gestures, stim)
	return gestures, events
}
