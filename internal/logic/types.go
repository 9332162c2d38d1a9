// Package logic contains the reaction-test session logic: stimulus
// scheduling, round recording and the session state machine.
// This package has NO I/O (no GPIO, MQTT, storage, OS, or time.Sleep).
// Time is always injectable via time.Time parameters, and hardware is
// reached only through the Lights, Display and Sink interfaces.
package logic

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/reaction-timer/internal/input"
)

// Light identifies one of the stimulus lights.
type Light int

const (
	LightLeft Light = iota
	LightMiddle
	LightRight
)

// NumLights is the number of stimulus lights.
const NumLights = int(LightRight) + 1

// SimpleLight is the fixed target in Simple mode.
const SimpleLight = LightMiddle

// NoLight marks an attempt without a pressed light (timeouts).
const NoLight Light = -1

func (l Light) String() string {
	switch l {
	case LightLeft:
		return "LEFT"
	case LightMiddle:
		return "MIDDLE"
	case LightRight:
		return "RIGHT"
	case NoLight:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// LightFor maps an answer button to the light it answers for.
func LightFor(b input.Button) (Light, bool) {
	switch b {
	case input.Left:
		return LightLeft, true
	case input.Middle:
		return LightMiddle, true
	case input.Right:
		return LightRight, true
	default:
		return NoLight, false
	}
}

// Mode selects how targets are chosen and answers scored.
type Mode string

const (
	ModeSimple Mode = "SIMPLE"
	ModeChoice Mode = "CHOICE"
)

// State is the session state machine's state.
type State string

const (
	StateIdle            State = "IDLE"
	StateCountdown       State = "COUNTDOWN"
	StateAwaiting        State = "AWAITING_RESPONSE"
	StateRoundTransition State = "ROUND_TRANSITION"
	StateChoiceToSimple  State = "CHOICE_TO_SIMPLE"
	StateSummary         State = "SUMMARY"
	StateCancelling      State = "CANCELLING"
	StateHalted          State = "HALTED"
)

// SessionConfig is fixed when a block starts.
type SessionConfig struct {
	Mode      Mode
	Practice  bool
	MaxRounds int
}

// MenuAction is the action bound to a menu item.
type MenuAction int

const (
	ActionStartTest MenuAction = iota
	ActionStartPractice
	ActionAdvanceUser
)

// MenuItem is one entry of the idle menu.
type MenuItem struct {
	Label  string
	Action MenuAction
}

// DefaultMenu is the stock menu, in display order.
var DefaultMenu = []MenuItem{
	{Label: "Start test", Action: ActionStartTest},
	{Label: "Practice", Action: ActionStartPractice},
	{Label: "Next user", Action: ActionAdvanceUser},
}

// AttemptKind classifies a single response (or lack of one).
type AttemptKind string

const (
	AttemptCorrect   AttemptKind = "CORRECT"
	AttemptIncorrect AttemptKind = "INCORRECT"
	AttemptTooFast   AttemptKind = "TOO_FAST"
	AttemptTimeout   AttemptKind = "TIMEOUT"
	AttemptEarly     AttemptKind = "EARLY"
)

// Attempt is one logged response within a block.
type Attempt struct {
	Round   int
	Kind    AttemptKind
	Target  Light
	Pressed Light
	// Latency is measured from illumination; zero for early presses.
	Latency time.Duration
	At      time.Time
}

// RoundRecord is one completed round. Only correct answers complete a round.
type RoundRecord struct {
	Index     int
	Latency   time.Duration
	Correct   bool
	Incorrect int
	Timeouts  int
	TooFast   int
}

// Summary is what the display shows at the end of a block.
type Summary struct {
	UserID   int
	Mode     Mode
	Practice bool
	Rounds   int
	Best     time.Duration
	Average  time.Duration
	Accuracy float64
}

// SessionRecord is the finalized result of a completed block. It owns its
// slices; nothing in the state machine keeps a reference to them.
// Latencies holds the round latencies; Rounds adds per-round counters.
type SessionRecord struct {
	ID          uuid.UUID
	UserID      int
	Mode        Mode
	Practice    bool
	Accuracy    float64
	Best        time.Duration
	Average     time.Duration
	Latencies   []time.Duration
	Rounds      []RoundRecord
	Attempts    []Attempt
	Incorrect   int
	Timeouts    int
	TooFast     int
	StartedAt   time.Time
	CompletedAt time.Time
}

// RoundRecords returns one RoundRecord per entry of Latencies. Latencies
// is the authoritative latency sequence; Rounds only contributes the
// per-round counters where it lines up by position.
func (r SessionRecord) RoundRecords() []RoundRecord {
	out := make([]RoundRecord, len(r.Latencies))
	for i, l := range r.Latencies {
		rr := RoundRecord{Index: i, Correct: true}
		if i < len(r.Rounds) {
			rr = r.Rounds[i]
		}
		rr.Index = i
		rr.Latency = l
		out[i] = rr
	}
	return out
}

// Fields returns the persisted text form: user id, mode, accuracy, then
// one latency in milliseconds per round.
func (r SessionRecord) Fields() []string {
	out := make([]string, 0, 3+len(r.Latencies))
	out = append(out,
		strconv.Itoa(r.UserID),
		string(r.Mode),
		strconv.FormatFloat(r.Accuracy, 'f', 3, 64),
	)
	for _, l := range r.Latencies {
		out = append(out, strconv.FormatInt(l.Milliseconds(), 10))
	}
	return out
}

// EventType represents a session occurrence worth logging or publishing.
type EventType string

const (
	EventState         EventType = "STATE"
	EventAttempt       EventType = "ATTEMPT"
	EventBlockComplete EventType = "BLOCK_COMPLETE"
	EventCancelled     EventType = "CANCELLED"
	EventCleared       EventType = "CLEARED"
	EventUser          EventType = "USER"
	EventHalted        EventType = "HALTED"
)

// Event is returned by the state machine for the daemon to log and publish.
type Event struct {
	Timestamp time.Time
	Type      EventType
	From      State
	To        State
	UserID    int
	Attempt   *Attempt
	Record    *SessionRecord
	Message   string
}

// Counts tracks totals since startup.
type Counts struct {
	Sessions  int
	Cancelled int
	Rounds    int
	Incorrect int
	TooFast   int
	Timeouts  int
}

// Snapshot is a point-in-time view of the state machine.
type Snapshot struct {
	State       State
	Mode        Mode
	Practice    bool
	Round       int
	MaxRounds   int
	UserID      int
	MenuItem    string
	Target      Light
	Lit         bool
	LastLatency time.Duration
	Best        time.Duration
	Average     time.Duration
	Accuracy    float64
	Incorrect   int
	Error       string
	Counts      Counts
}
