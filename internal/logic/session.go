package logic

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/reaction-timer/internal/input"
)

// Machine is the session state machine. It consumes gestures and stimulus
// events once per poll cycle and drives the lights, display and sink.
// Not safe for concurrent use.
type Machine struct {
	timing Timing
	menu   []MenuItem
	sched  *Scheduler
	rec    *Recorder
	gw     Gateways
	newID  func() uuid.UUID

	state    State
	selected int
	userID   int
	haltMsg  string

	countdownStart time.Time
	countdownStage int
	cancelStart    time.Time
	cancelPhase    int

	lastLatency time.Duration
	counts      Counts
	events      []Event
}

// NewMachine creates a machine in the Idle state. Every gateway in gw must
// be set. Call Start to render the menu.
func NewMachine(timing Timing, sched *Scheduler, gw Gateways, userID int) *Machine {
	capacity := timing.MaxRoundsNormal
	if timing.MaxRoundsPractice > capacity {
		capacity = timing.MaxRoundsPractice
	}
	return &Machine{
		timing: timing,
		menu:   DefaultMenu,
		sched:  sched,
		rec:    NewRecorder(capacity),
		gw:     gw,
		newID:  uuid.New,
		state:  StateIdle,
		userID: userID,
	}
}

// Start renders the idle menu.
func (m *Machine) Start(now time.Time) []Event {
	m.enterIdle(now)
	return m.flush()
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Phase tells the gesture classifier which holds apply.
func (m *Machine) Phase() input.Phase {
	switch m.state {
	case StateAwaiting:
		return input.PhaseAwaiting
	case StateCountdown, StateRoundTransition, StateChoiceToSimple, StateSummary:
		return input.PhaseActive
	default:
		return input.PhaseIdle
	}
}

// Step runs the state machine for one poll cycle. Gestures the current
// state does not handle are dropped.
func (m *Machine) Step(now time.Time, gestures []input.Gesture, stim StimulusEvent) []Event {
	switch m.state {
	case StateIdle:
		for _, g := range gestures {
			if m.state != StateIdle {
				break
			}
			m.handleMenu(now, g)
		}

	case StateCountdown:
		if cancelRequested(gestures) {
			m.cancel(now)
			break
		}
		m.advanceCountdown(now)

	case StateAwaiting:
		if cancelRequested(gestures) {
			m.cancel(now)
			break
		}
		m.handleAwaiting(now, gestures, stim)

	case StateSummary:
		if cancelRequested(gestures) {
			m.cancel(now)
			break
		}
		for _, g := range gestures {
			if g.Kind == input.HoldConfirmed && g.Button == input.Confirm {
				m.continueFromSummary(now)
				break
			}
		}

	case StateCancelling:
		m.advanceCancel(now)

	case StateHalted:
	}
	return m.flush()
}

// Cancel aborts a running session. It is a no-op unless a session is in
// Countdown, AwaitingResponse or Summary.
func (m *Machine) Cancel(now time.Time) []Event {
	switch m.state {
	case StateCountdown, StateAwaiting, StateSummary:
		m.cancel(now)
	}
	return m.flush()
}

// Halt stops the machine for good and shows msg on the display.
func (m *Machine) Halt(now time.Time, msg string) []Event {
	m.halt(now, msg)
	return m.flush()
}

// Snapshot returns a point-in-time view for status consumers.
func (m *Machine) Snapshot() Snapshot {
	cfg := m.rec.Config()
	target, armed := m.sched.Active()
	if !armed {
		target = NoLight
	}
	s := Snapshot{
		State:       m.state,
		Mode:        cfg.Mode,
		Practice:    cfg.Practice,
		Round:       m.rec.Round(),
		MaxRounds:   cfg.MaxRounds,
		UserID:      m.userID,
		Target:      target,
		Lit:         m.sched.Lit(),
		LastLatency: m.lastLatency,
		Best:        m.rec.Best(),
		Average:     m.rec.Average(),
		Accuracy:    m.rec.Accuracy(),
		Incorrect:   m.rec.Incorrect(),
		Error:       m.haltMsg,
		Counts:      m.counts,
	}
	if m.selected < len(m.menu) {
		s.MenuItem = m.menu[m.selected].Label
	}
	if m.state == StateIdle || m.state == StateCancelling || m.state == StateHalted {
		s.Mode, s.Practice, s.MaxRounds = "", false, 0
	}
	return s
}

func cancelRequested(gestures []input.Gesture) bool {
	for _, g := range gestures {
		if g.Kind == input.HoldConfirmed && g.Button == input.Void {
			return true
		}
	}
	return false
}

func (m *Machine) handleMenu(now time.Time, g input.Gesture) {
	if g.Kind != input.HoldConfirmed {
		return
	}
	n := len(m.menu)
	switch g.Button {
	case input.Left:
		m.selected = (m.selected - 1 + n) % n
		m.gw.Display.ShowMenu(m.menu, m.selected)
	case input.Right:
		m.selected = (m.selected + 1) % n
		m.gw.Display.ShowMenu(m.menu, m.selected)
	case input.Void:
		m.clearLast(now)
	case input.Confirm:
		switch m.menu[m.selected].Action {
		case ActionStartTest:
			m.startSession(now, false, m.timing.MaxRoundsNormal)
		case ActionStartPractice:
			m.startSession(now, true, m.timing.MaxRoundsPractice)
		case ActionAdvanceUser:
			m.userID++
			m.emit(Event{Timestamp: now, Type: EventUser, UserID: m.userID})
			m.gw.Display.ShowMenu(m.menu, m.selected)
		}
	}
}

// clearLast removes the last persisted record when the sink supports it.
func (m *Machine) clearLast(now time.Time) {
	if e, ok := m.gw.Sink.(Eraser); ok {
		if err := e.DeleteLast(); err != nil {
			m.halt(now, fmt.Sprintf("clear failed: %v", err))
			return
		}
		m.emit(Event{Timestamp: now, Type: EventCleared, UserID: m.userID})
	}
	m.gw.Display.ShowMenu(m.menu, m.selected)
}

func (m *Machine) startSession(now time.Time, practice bool, rounds int) {
	m.rec.Begin(SessionConfig{Mode: ModeChoice, Practice: practice, MaxRounds: rounds}, now)
	m.lastLatency = 0
	m.enterCountdown(now)
}

func (m *Machine) enterCountdown(now time.Time) {
	m.setState(now, StateCountdown)
	m.countdownStart = now
	m.countdownStage = 0
	m.advanceCountdown(now)
}

// advanceCountdown shows stages counting down with one fewer light lit each
// stage, then arms the first stimulus in the block's mode.
func (m *Machine) advanceCountdown(now time.Time) {
	stages := m.timing.CountdownStages
	stage := int(now.Sub(m.countdownStart)/m.timing.CountdownStage) + 1
	if stage > stages {
		m.allLights(false)
		m.sched.ScheduleNext(m.rec.Config().Mode, now)
		m.setState(now, StateAwaiting)
		return
	}
	if stage == m.countdownStage {
		return
	}
	m.countdownStage = stage
	for i := 0; i < NumLights; i++ {
		m.gw.Lights.SetLight(Light(i), i >= stage-1)
	}
	m.gw.Display.ShowCountdown(stages - stage + 1)
}

func (m *Machine) handleAwaiting(now time.Time, gestures []input.Gesture, stim StimulusEvent) {
	seq := m.sched.Seq()
	if stim.Seq == seq && stim.Illuminated {
		m.gw.Lights.SetLight(stim.Target, true)
	}

	for _, g := range gestures {
		if g.Kind != input.Tap || m.sched.Seq() != seq {
			continue
		}
		m.handlePress(now, g)
	}

	if m.state == StateAwaiting && m.sched.Seq() == seq && stim.Seq == seq && stim.TimedOut {
		target, _ := m.sched.Active()
		m.roundTransition(now, Attempt{
			Round:   m.rec.Round(),
			Kind:    AttemptTimeout,
			Target:  target,
			Pressed: NoLight,
			Latency: m.timing.ResponseTimeout,
			At:      now,
		})
	}
}

// handlePress scores one answer press against the active stimulus.
func (m *Machine) handlePress(now time.Time, g input.Gesture) {
	pressed, ok := LightFor(g.Button)
	if !ok {
		return
	}
	target, _ := m.sched.Active()
	a := Attempt{Round: m.rec.Round(), Target: target, Pressed: pressed, At: g.At}

	if !m.sched.Lit() || g.At.Before(m.sched.LitAt()) {
		a.Kind = AttemptEarly
		m.rec.Record(a)
		m.emitAttempt(now, a)
		return
	}
	if g.At.After(m.sched.Deadline()) {
		// Too late; the timeout for this stimulus handles it.
		return
	}

	a.Latency = g.At.Sub(m.sched.LitAt())
	mode := m.rec.Config().Mode
	switch {
	case a.Latency <= m.timing.TooFast:
		a.Kind = AttemptTooFast
	case mode == ModeSimple || pressed == target:
		a.Kind = AttemptCorrect
	default:
		a.Kind = AttemptIncorrect
		m.counts.Incorrect++
		m.rec.Record(a)
		m.emitAttempt(now, a)
		return
	}
	m.roundTransition(now, a)
}

// roundTransition scores the attempt that ended a stimulus and either arms
// the next one or finishes the block.
func (m *Machine) roundTransition(now time.Time, a Attempt) {
	m.setState(now, StateRoundTransition)
	m.allLights(false)

	completed := m.rec.Record(a)
	m.emitAttempt(now, a)
	switch a.Kind {
	case AttemptTooFast:
		m.counts.TooFast++
	case AttemptTimeout:
		m.counts.Timeouts++
	}
	if completed {
		m.counts.Rounds++
		m.lastLatency = a.Latency
		m.gw.Display.ShowLatency(a.Latency, m.rec.Average())
	}

	if m.rec.Complete() {
		m.enterSummary(now)
		return
	}
	m.sched.ScheduleNext(m.rec.Config().Mode, now)
	m.setState(now, StateAwaiting)
}

// enterSummary finalizes the block. Non-practice blocks are persisted; a
// failed append halts the machine instead of showing the summary.
func (m *Machine) enterSummary(now time.Time) {
	m.sched.Clear()
	m.allLights(false)

	cfg := m.rec.Config()
	rec := m.rec.Finalize(m.newID(), m.userID, now)
	if !cfg.Practice {
		if err := m.gw.Sink.Append(rec); err != nil {
			m.halt(now, fmt.Sprintf("save failed: %v", err))
			return
		}
	}
	m.counts.Sessions++
	m.emit(Event{Timestamp: now, Type: EventBlockComplete, UserID: m.userID, Record: &rec})
	m.gw.Display.ShowSummary(m.rec.Summary(m.userID))
	m.setState(now, StateSummary)
}

// continueFromSummary starts the Simple block after a Choice block, or
// returns to the menu after the Simple block.
func (m *Machine) continueFromSummary(now time.Time) {
	cfg := m.rec.Config()
	if cfg.Mode != ModeChoice {
		m.enterIdle(now)
		return
	}
	m.setState(now, StateChoiceToSimple)
	cfg.Mode = ModeSimple
	m.rec.Begin(cfg, now)
	m.enterCountdown(now)
}

func (m *Machine) cancel(now time.Time) {
	m.sched.Clear()
	m.rec.Discard()
	m.counts.Cancelled++
	m.emit(Event{Timestamp: now, Type: EventCancelled, UserID: m.userID})
	m.setState(now, StateCancelling)
	m.cancelStart = now
	m.cancelPhase = -1
	m.advanceCancel(now)
}

// advanceCancel plays the cancel flash on all lights: on, off, on, off.
func (m *Machine) advanceCancel(now time.Time) {
	elapsed := now.Sub(m.cancelStart)
	phase := cancelPhaseDone
	switch {
	case elapsed < cancelFirstOff:
		phase = 0
	case elapsed < cancelSecondOn:
		phase = 1
	case elapsed < CancelDuration:
		phase = 2
	}
	if phase == cancelPhaseDone {
		m.enterIdle(now)
		return
	}
	if phase != m.cancelPhase {
		m.cancelPhase = phase
		m.allLights(phase != 1)
	}
}

func (m *Machine) enterIdle(now time.Time) {
	m.sched.Clear()
	m.rec.Discard()
	m.allLights(false)
	m.setState(now, StateIdle)
	m.gw.Display.ShowMenu(m.menu, m.selected)
}

func (m *Machine) halt(now time.Time, msg string) {
	if m.state == StateHalted {
		return
	}
	m.sched.Clear()
	m.rec.Discard()
	m.allLights(false)
	m.haltMsg = msg
	m.gw.Display.ShowError(msg)
	m.emit(Event{Timestamp: now, Type: EventHalted, UserID: m.userID, Message: msg})
	m.setState(now, StateHalted)
}

func (m *Machine) allLights(on bool) {
	for i := 0; i < NumLights; i++ {
		m.gw.Lights.SetLight(Light(i), on)
	}
}

func (m *Machine) setState(now time.Time, to State) {
	if m.state == to {
		return
	}
	m.emit(Event{Timestamp: now, Type: EventState, From: m.state, To: to, UserID: m.userID})
	m.state = to
}

func (m *Machine) emitAttempt(now time.Time, a Attempt) {
	m.emit(Event{Timestamp: now, Type: EventAttempt, UserID: m.userID, Attempt: &a})
}

func (m *Machine) emit(e Event) {
	m.events = append(m.events, e)
}

func (m *Machine) flush() []Event {
	if len(m.events) == 0 {
		return nil
	}
	out := m.events
	m.events = nil
	return out
}
