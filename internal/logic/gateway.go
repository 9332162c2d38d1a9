package logic

import "time"

// Lights drives the stimulus light outputs.
type Lights interface {
	SetLight(l Light, on bool)
}

// Display accepts render commands. Calls must not block on rendering.
type Display interface {
	ShowMenu(items []MenuItem, selected int)
	ShowCountdown(stage int)
	ShowLatency(current, average time.Duration)
	ShowSummary(s Summary)
	ShowError(msg string)
}

// Sink is the append-only results store.
type Sink interface {
	Append(rec SessionRecord) error
}

// Eraser is implemented by sinks that can remove the last appended record.
type Eraser interface {
	DeleteLast() error
}

// Gateways bundles the collaborators the state machine drives.
type Gateways struct {
	Lights  Lights
	Display Display
	Sink    Sink
}

// Timing holds the session-level timing and size configuration.
type Timing struct {
	MaxRoundsNormal   int
	MaxRoundsPractice int
	ResponseTimeout   time.Duration
	DelayMin          time.Duration
	DelayMax          time.Duration
	TooFast           time.Duration
	CountdownStage    time.Duration
	CountdownStages   int
}

// DefaultTiming returns the stock configuration.
func DefaultTiming() Timing {
	return Timing{
		MaxRoundsNormal:   10,
		MaxRoundsPractice: 5,
		ResponseTimeout:   1000 * time.Millisecond,
		DelayMin:          3000 * time.Millisecond,
		DelayMax:          10000 * time.Millisecond,
		TooFast:           100 * time.Millisecond,
		CountdownStage:    1000 * time.Millisecond,
		CountdownStages:   3,
	}
}

// Cancel flash offsets from the trigger: on, off, on, then off for good.
const (
	cancelFirstOff  = 400 * time.Millisecond
	cancelSecondOn  = 650 * time.Millisecond
	CancelDuration  = 850 * time.Millisecond
	cancelPhaseDone = 3
)
