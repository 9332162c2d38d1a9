package logic

import (
	"time"

	"github.com/google/uuid"
)

// Recorder accumulates attempts and completed rounds for one block.
// Its buffers are allocated once and reused across blocks.
type Recorder struct {
	cfg       SessionConfig
	startedAt time.Time
	rounds    []RoundRecord
	attempts  []Attempt

	// per-round tallies, folded into the RoundRecord on completion
	incorrect int
	timeouts  int
	tooFast   int

	totalIncorrect int
	totalTimeouts  int
	totalTooFast   int
}

// NewRecorder creates a recorder able to hold capacity rounds without
// reallocating.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{
		rounds:   make([]RoundRecord, 0, capacity),
		attempts: make([]Attempt, 0, capacity*4),
	}
}

// Begin starts a new block.
func (r *Recorder) Begin(cfg SessionConfig, now time.Time) {
	r.Discard()
	r.cfg = cfg
	r.startedAt = now
}

// Discard drops everything recorded for the current block.
func (r *Recorder) Discard() {
	r.rounds = r.rounds[:0]
	r.attempts = r.attempts[:0]
	r.incorrect, r.timeouts, r.tooFast = 0, 0, 0
	r.totalIncorrect, r.totalTimeouts, r.totalTooFast = 0, 0, 0
}

// Record logs an attempt. A correct attempt completes the current round
// and returns true.
func (r *Recorder) Record(a Attempt) bool {
	a.Round = len(r.rounds)
	r.attempts = append(r.attempts, a)

	switch a.Kind {
	case AttemptIncorrect:
		r.incorrect++
		r.totalIncorrect++
	case AttemptTimeout:
		r.timeouts++
		r.totalTimeouts++
	case AttemptTooFast:
		r.tooFast++
		r.totalTooFast++
	case AttemptCorrect:
		r.rounds = append(r.rounds, RoundRecord{
			Index:     len(r.rounds),
			Latency:   a.Latency,
			Correct:   true,
			Incorrect: r.incorrect,
			Timeouts:  r.timeouts,
			TooFast:   r.tooFast,
		})
		r.incorrect, r.timeouts, r.tooFast = 0, 0, 0
		return true
	}
	return false
}

// Config returns the block's configuration.
func (r *Recorder) Config() SessionConfig {
	return r.cfg
}

// Round returns the index of the round in progress.
func (r *Recorder) Round() int {
	return len(r.rounds)
}

// Complete reports whether every round of the block has been answered.
func (r *Recorder) Complete() bool {
	return r.cfg.MaxRounds > 0 && len(r.rounds) >= r.cfg.MaxRounds
}

// Rounds returns the completed rounds. The slice is only valid until the
// next Begin or Discard.
func (r *Recorder) Rounds() []RoundRecord {
	return r.rounds
}

// Incorrect returns the block's incorrect-press count.
func (r *Recorder) Incorrect() int {
	return r.totalIncorrect
}

// Best returns the fastest completed round, seeded with the first round.
func (r *Recorder) Best() time.Duration {
	if len(r.rounds) == 0 {
		return 0
	}
	best := r.rounds[0].Latency
	for _, rr := range r.rounds[1:] {
		if rr.Latency < best {
			best = rr.Latency
		}
	}
	return best
}

// Average returns the mean latency of completed rounds.
func (r *Recorder) Average() time.Duration {
	if len(r.rounds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, rr := range r.rounds {
		sum += rr.Latency
	}
	return sum / time.Duration(len(r.rounds))
}

// Accuracy returns correct answers over scoring presses, where timeouts
// count as a press. Simple mode has no wrong answer and always reports 1.
func (r *Recorder) Accuracy() float64 {
	if r.cfg.Mode == ModeSimple {
		return 1
	}
	den := len(r.rounds) + r.totalIncorrect + r.totalTimeouts
	if den == 0 {
		return 0
	}
	return float64(len(r.rounds)) / float64(den)
}

// Summary builds the end-of-block display data.
func (r *Recorder) Summary(userID int) Summary {
	return Summary{
		UserID:   userID,
		Mode:     r.cfg.Mode,
		Practice: r.cfg.Practice,
		Rounds:   len(r.rounds),
		Best:     r.Best(),
		Average:  r.Average(),
		Accuracy: r.Accuracy(),
	}
}

// Finalize copies the block into a standalone SessionRecord.
func (r *Recorder) Finalize(id uuid.UUID, userID int, now time.Time) SessionRecord {
	rec := SessionRecord{
		ID:          id,
		UserID:      userID,
		Mode:        r.cfg.Mode,
		Practice:    r.cfg.Practice,
		Accuracy:    r.Accuracy(),
		Best:        r.Best(),
		Average:     r.Average(),
		Latencies:   make([]time.Duration, len(r.rounds)),
		Rounds:      make([]RoundRecord, len(r.rounds)),
		Attempts:    make([]Attempt, len(r.attempts)),
		Incorrect:   r.totalIncorrect,
		Timeouts:    r.totalTimeouts,
		TooFast:     r.totalTooFast,
		StartedAt:   r.startedAt,
		CompletedAt: now,
	}
	for i, rr := range r.rounds {
		rec.Latencies[i] = rr.Latency
	}
	copy(rec.Rounds, r.rounds)
	copy(rec.Attempts, r.attempts)
	return rec
}
