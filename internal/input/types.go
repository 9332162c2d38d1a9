// Package input turns raw falling edges and sampled pin levels into button
// gestures (tap, hold, combo).
// This package has NO I/O: edges arrive through EdgeCapture.Falling, pin
// levels through the Levels interface, and time is always a parameter.
package input

import "time"

// Button identifies one of the fixed physical buttons.
type Button int

const (
	Left Button = iota
	Middle
	Right
	Void
	Confirm
)

// NumButtons is the size of the fixed button set.
const NumButtons = int(Confirm) + 1

// Buttons lists every button in classification order.
var Buttons = [NumButtons]Button{Left, Middle, Right, Void, Confirm}

// Valid reports whether b is a member of the fixed button set.
func (b Button) Valid() bool {
	return b >= Left && b <= Confirm
}

// IsAnswer reports whether b is one of the three round-answer buttons.
func (b Button) IsAnswer() bool {
	return b == Left || b == Middle || b == Right
}

func (b Button) String() string {
	switch b {
	case Left:
		return "LEFT"
	case Middle:
		return "MIDDLE"
	case Right:
		return "RIGHT"
	case Void:
		return "VOID"
	case Confirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

// GestureKind tags a Gesture.
type GestureKind string

const (
	Tap            GestureKind = "TAP"
	HoldConfirmed  GestureKind = "HOLD_CONFIRMED"
	HoldReleased   GestureKind = "HOLD_RELEASED"
	ComboConfirmed GestureKind = "COMBO_CONFIRMED"
)

// Gesture is a classified button interaction. Each qualifying transition
// produces exactly one Gesture.
type Gesture struct {
	Kind   GestureKind
	Button Button
	// Other is the second button of a ComboConfirmed gesture.
	Other Button
	// At is the edge timestamp for taps and the poll time otherwise.
	At time.Time
}

// Phase tells the classifier which thresholds apply this cycle.
type Phase int

const (
	// PhaseIdle covers the menu and any state without a running session.
	PhaseIdle Phase = iota
	// PhaseActive is a running session that is not waiting for an answer.
	PhaseActive
	// PhaseAwaiting is a running session waiting for an answer press.
	PhaseAwaiting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseActive:
		return "ACTIVE"
	case PhaseAwaiting:
		return "AWAITING"
	default:
		return "UNKNOWN"
	}
}

// Levels reports sampled pin levels.
type Levels interface {
	// Low returns true while the button's pin reads low (pressed).
	Low(b Button) bool
}

// Sample is one reading of every button pin. It implements Levels.
type Sample [NumButtons]bool

// Low implements Levels. Unknown buttons read high.
func (s Sample) Low(b Button) bool {
	if !b.Valid() {
		return false
	}
	return s[b]
}

// Thresholds holds the debounce guard and per-gesture hold durations.
type Thresholds struct {
	// Debounce is both the edge suppression window and the confirmation
	// window during which pin levels are not trusted.
	Debounce time.Duration
	// NavHold confirms a menu navigation press.
	NavHold time.Duration
	// StartHold confirms Confirm (start / select / continue).
	StartHold time.Duration
	// CancelHold confirms Void while a session is active.
	CancelHold time.Duration
	// ClearHold confirms Void while idle.
	ClearHold time.Duration
}

// DefaultThresholds returns the stock timing.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Debounce:   20 * time.Millisecond,
		NavHold:    40 * time.Millisecond,
		StartHold:  1000 * time.Millisecond,
		CancelHold: 500 * time.Millisecond,
		ClearHold:  2000 * time.Millisecond,
	}
}
