package input

import "time"

// trackState is the classifier's view of one button between poll cycles.
type trackState uint8

const (
	untracked trackState = iota
	// tracking: a press was taken and the hold threshold has not been reached.
	tracking
	// held: HoldConfirmed was emitted, waiting for release.
	held
	// combo: part of a confirmed Confirm+Void combo, waiting for release.
	combo
)

// Classifier turns EdgeCapture state plus sampled levels into gestures.
// It is driven once per poll cycle and is not safe for concurrent use.
type Classifier struct {
	th    Thresholds
	edges *EdgeCapture
	state [NumButtons]trackState
}

// NewClassifier creates a classifier reading from edges.
func NewClassifier(edges *EdgeCapture, th Thresholds) *Classifier {
	return &Classifier{th: th, edges: edges}
}

// Process runs one classification cycle and returns the gestures produced,
// in button order. phase selects which holds are armed.
func (c *Classifier) Process(now time.Time, levels Levels, phase Phase) []Gesture {
	var out []Gesture

	for _, b := range [...]Button{Left, Middle, Right} {
		if phase == PhaseAwaiting {
			// Answer presses carry no hold semantics.
			c.state[b] = untracked
			if at, ok := c.edges.Take(b); ok {
				out = append(out, Gesture{Kind: Tap, Button: b, At: at})
			}
			continue
		}
		out = c.step(now, b, levels, phase, out)
	}

	out = c.checkCombo(now, levels, out)
	out = c.step(now, Void, levels, phase, out)
	out = c.step(now, Confirm, levels, phase, out)
	return out
}

// Held reports whether b has a confirmed hold that has not been released.
func (c *Classifier) Held(b Button) bool {
	if !b.Valid() {
		return false
	}
	return c.state[b] == held
}

// threshold returns the hold duration for b in the given phase. ok is false
// when b has no hold gesture in that phase.
func (c *Classifier) threshold(b Button, phase Phase) (d time.Duration, ok bool) {
	switch b {
	case Left, Right:
		if phase == PhaseIdle {
			return c.th.NavHold, true
		}
	case Void:
		if phase == PhaseIdle {
			return c.th.ClearHold, true
		}
		return c.th.CancelHold, true
	case Confirm:
		return c.th.StartHold, true
	}
	return 0, false
}

func (c *Classifier) step(now time.Time, b Button, levels Levels, phase Phase, out []Gesture) []Gesture {
	if !b.Valid() {
		return out
	}
	limit, armed := c.threshold(b, phase)
	if !armed {
		c.edges.Take(b)
		c.state[b] = untracked
		return out
	}

	switch c.state[b] {
	case untracked:
		if _, ok := c.edges.Take(b); !ok {
			return out
		}
		c.state[b] = tracking

	case tracking:
		// A fresh edge restarts the hold from its own timestamp.
		c.edges.Take(b)

	case held:
		if _, ok := c.edges.Take(b); ok {
			// Released and pressed again between two cycles.
			out = append(out, Gesture{Kind: HoldReleased, Button: b, At: now})
			c.state[b] = tracking
			break
		}
		if c.confirmed(now, b) && !levels.Low(b) {
			out = append(out, Gesture{Kind: HoldReleased, Button: b, At: now})
			c.state[b] = untracked
		}
		return out

	case combo:
		c.edges.Take(b)
		if c.confirmed(now, b) && !levels.Low(b) {
			c.state[b] = untracked
		}
		return out
	}

	if !c.confirmed(now, b) {
		// Inside the confirmation window the level may still be bouncing.
		return out
	}
	if !levels.Low(b) {
		c.state[b] = untracked
		return out
	}
	if now.After(c.edges.Last(b).Add(limit)) {
		out = append(out, Gesture{Kind: HoldConfirmed, Button: b, At: now})
		c.state[b] = held
	}
	return out
}

// checkCombo reports Confirm+Void once both presses are individually past
// their confirmation windows and both pins read low. The individual holds
// are suppressed until each button is released.
func (c *Classifier) checkCombo(now time.Time, levels Levels, out []Gesture) []Gesture {
	if c.state[Confirm] != tracking || c.state[Void] != tracking {
		return out
	}
	// Pick up re-triggered edges so both timestamps are current.
	c.edges.Take(Confirm)
	c.edges.Take(Void)
	if !c.confirmed(now, Confirm) || !c.confirmed(now, Void) {
		return out
	}
	if !levels.Low(Confirm) || !levels.Low(Void) {
		return out
	}
	c.state[Confirm] = combo
	c.state[Void] = combo
	return append(out, Gesture{Kind: ComboConfirmed, Button: Confirm, Other: Void, At: now})
}

// confirmed reports whether the confirmation window after b's last edge has
// passed.
func (c *Classifier) confirmed(now time.Time, b Button) bool {
	return now.After(c.edges.Last(b).Add(c.th.Debounce))
}
