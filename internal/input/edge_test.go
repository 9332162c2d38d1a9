package input

import (
	"sync"
	"testing"
	"time"
)

func TestFallingFirstEdgeAccepted(t *testing.T) {
	c := NewEdgeCapture(20 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if !c.Falling(Confirm, now) {
		t.Fatal("first edge should be accepted")
	}
	if !c.Pending(Confirm) {
		t.Error("expected pending press after edge")
	}
	if !c.Last(Confirm).Equal(now) {
		t.Errorf("Last: got %v, want %v", c.Last(Confirm), now)
	}
}

func TestFallingBounceCollapses(t *testing.T) {
	c := NewEdgeCapture(20 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.Falling(Left, now)
	for _, d := range []time.Duration{1, 5, 12, 19} {
		if c.Falling(Left, now.Add(d*time.Millisecond)) {
			t.Errorf("edge at +%dms should be suppressed", d)
		}
	}
	if !c.Last(Left).Equal(now) {
		t.Errorf("bounce moved the timestamp: got %v", c.Last(Left))
	}

	at, ok := c.Take(Left)
	if !ok {
		t.Fatal("expected one pending press")
	}
	if !at.Equal(now) {
		t.Errorf("Take: got %v, want %v", at, now)
	}
	if _, ok := c.Take(Left); ok {
		t.Error("bounced edges must collapse into a single press")
	}
}

func TestFallingAfterDebounceAccepted(t *testing.T) {
	c := NewEdgeCapture(20 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.Falling(Void, now)
	c.Take(Void)

	if !c.Falling(Void, now.Add(20*time.Millisecond)) {
		t.Fatal("edge exactly at the debounce boundary should be accepted")
	}
	if !c.Pending(Void) {
		t.Error("expected pending after second accepted edge")
	}
	if !c.Last(Void).Equal(now.Add(20 * time.Millisecond)) {
		t.Errorf("Last: got %v", c.Last(Void))
	}
}

func TestTakeClearsOnlyFlag(t *testing.T) {
	c := NewEdgeCapture(20 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.Falling(Right, now)
	c.Take(Right)

	if c.Pending(Right) {
		t.Error("pending should be cleared")
	}
	if !c.Last(Right).Equal(now) {
		t.Error("timestamp should survive Take")
	}
}

func TestButtonsIndependent(t *testing.T) {
	c := NewEdgeCapture(20 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.Falling(Left, now)
	if !c.Falling(Right, now.Add(time.Millisecond)) {
		t.Error("edge on a different button must not be debounced")
	}
	if c.Pending(Middle) {
		t.Error("untouched button should not be pending")
	}
	if !c.Last(Middle).IsZero() {
		t.Error("untouched button should have zero timestamp")
	}
}

func TestUnknownButtonIsNoop(t *testing.T) {
	c := NewEdgeCapture(20 * time.Millisecond)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if c.Falling(Button(42), now) {
		t.Error("unknown button should not be accepted")
	}
	if c.Pending(Button(-1)) {
		t.Error("unknown button should never be pending")
	}
	if _, ok := c.Take(Button(42)); ok {
		t.Error("unknown button should never yield a press")
	}
	if !c.Last(Button(42)).IsZero() {
		t.Error("unknown button should have zero timestamp")
	}
}

func TestFallingConcurrentWithTake(t *testing.T) {
	c := NewEdgeCapture(20 * time.Millisecond)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	const edges = 500

	var wg sync.WaitGroup
	wg.Add(1)
	accepted := 0
	go func() {
		defer wg.Done()
		for i := 0; i < edges; i++ {
			if c.Falling(Confirm, start.Add(time.Duration(i)*25*time.Millisecond)) {
				accepted++
			}
		}
	}()

	taken := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		if _, ok := c.Take(Confirm); ok {
			taken++
		}
		select {
		case <-done:
			if _, ok := c.Take(Confirm); ok {
				taken++
			}
			if accepted != edges {
				t.Fatalf("accepted: got %d, want %d", accepted, edges)
			}
			if taken < 1 || taken > edges {
				t.Fatalf("taken out of range: %d", taken)
			}
			want := start.Add((edges - 1) * 25 * time.Millisecond)
			if !c.Last(Confirm).Equal(want) {
				t.Errorf("Last: got %v, want %v", c.Last(Confirm), want)
			}
			return
		default:
		}
	}
}
