package logic

import (
	"math/rand/v2"
	"time"
)

// StimulusEvent is what the scheduler observed during one poll.
type StimulusEvent struct {
	// Seq identifies the schedule the event belongs to.
	Seq         uint64
	Target      Light
	Illuminated bool
	TimedOut    bool
}

// Scheduler owns the active target, when it may light, and the response
// deadline.
type Scheduler struct {
	delayMin time.Duration
	delayMax time.Duration
	timeout  time.Duration
	rng      *rand.Rand

	armed      bool
	target     Light
	eligibleAt time.Time
	deadline   time.Time
	lit        bool
	litAt      time.Time
	seq        uint64
}

// NewScheduler creates a scheduler using the delay range and response
// timeout from t.
func NewScheduler(t Timing, rng *rand.Rand) *Scheduler {
	return &Scheduler{
		delayMin: t.DelayMin,
		delayMax: t.DelayMax,
		timeout:  t.ResponseTimeout,
		rng:      rng,
		target:   NoLight,
	}
}

// ScheduleNext arms a new stimulus. The delay before it may light is drawn
// uniformly (millisecond resolution) from the configured range. In Choice
// mode the target is picked now, before it is visible.
func (s *Scheduler) ScheduleNext(mode Mode, now time.Time) {
	delay := s.delayMin
	if span := (s.delayMax - s.delayMin).Milliseconds(); span > 0 {
		delay += time.Duration(s.rng.Int64N(span+1)) * time.Millisecond
	}

	s.target = SimpleLight
	if mode == ModeChoice {
		s.target = Light(s.rng.IntN(NumLights))
	}
	s.armed = true
	s.eligibleAt = now.Add(delay)
	s.deadline = s.eligibleAt.Add(s.timeout)
	s.lit = false
	s.litAt = time.Time{}
	s.seq++
}

// Clear disarms the scheduler.
func (s *Scheduler) Clear() {
	s.armed = false
	s.target = NoLight
	s.eligibleAt = time.Time{}
	s.deadline = time.Time{}
	s.lit = false
	s.litAt = time.Time{}
	s.seq++
}

// Poll lights the target once eligibleAt is reached and reports a timeout
// once the deadline has passed. Illumination is reported once per schedule.
func (s *Scheduler) Poll(now time.Time) StimulusEvent {
	ev := StimulusEvent{Seq: s.seq, Target: s.target}
	if !s.armed {
		return ev
	}
	if !s.lit && !now.Before(s.eligibleAt) {
		s.lit = true
		s.litAt = now
		ev.Illuminated = true
	}
	if now.After(s.deadline) {
		ev.TimedOut = true
	}
	return ev
}

// Active returns the armed target.
func (s *Scheduler) Active() (Light, bool) {
	return s.target, s.armed
}

// Lit reports whether the target has been switched on.
func (s *Scheduler) Lit() bool {
	return s.lit
}

// LitAt returns when the target was switched on.
func (s *Scheduler) LitAt() time.Time {
	return s.litAt
}

// EligibleAt returns the earliest time the target may light.
func (s *Scheduler) EligibleAt() time.Time {
	return s.eligibleAt
}

// Deadline returns eligibleAt plus the response timeout.
func (s *Scheduler) Deadline() time.Time {
	return s.deadline
}

// Seq changes on every ScheduleNext and Clear.
func (s *Scheduler) Seq() uint64 {
	return s.seq
}
