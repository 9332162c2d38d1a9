package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/reaction-timer/internal/logic"
)

func TestFormatPayloadStateChange(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:      logic.EventState,
		From:      logic.StateIdle,
		To:        logic.StateCountdown,
		UserID:    4,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Session.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Session.Timestamp)
	}
	if parsed.Session.Event != "STATE" {
		t.Errorf("unexpected event: %s", parsed.Session.Event)
	}
	if parsed.Session.From != "IDLE" || parsed.Session.To != "COUNTDOWN" {
		t.Errorf("unexpected transition: %s -> %s", parsed.Session.From, parsed.Session.To)
	}
	if parsed.Session.UserID != 4 {
		t.Errorf("unexpected user: %d", parsed.Session.UserID)
	}
	if parsed.Session.Attempt != nil {
		t.Error("state event should carry no attempt")
	}
}

func TestFormatPayloadAttempts(t *testing.T) {
	at := time.Date(2026, 2, 2, 22, 18, 12, 500_000_000, time.UTC)
	tests := []struct {
		kind        logic.AttemptKind
		target      logic.Light
		pressed     logic.Light
		latency     time.Duration
		wantPressed string
	}{
		{logic.AttemptCorrect, logic.LightLeft, logic.LightLeft, 215 * time.Millisecond, "LEFT"},
		{logic.AttemptIncorrect, logic.LightLeft, logic.LightRight, 300 * time.Millisecond, "RIGHT"},
		{logic.AttemptTooFast, logic.LightMiddle, logic.LightMiddle, 80 * time.Millisecond, "MIDDLE"},
		{logic.AttemptTimeout, logic.LightRight, logic.NoLight, time.Second, "NONE"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			a := logic.Attempt{Round: 2, Kind: tt.kind, Target: tt.target, Pressed: tt.pressed, Latency: tt.latency, At: at}
			payload, err := FormatPayload(logic.Event{Timestamp: at, Type: logic.EventAttempt, Attempt: &a})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			got := parsed.Session.Attempt
			if got == nil {
				t.Fatal("expected attempt")
			}
			if got.Kind != string(tt.kind) {
				t.Errorf("kind: got %s, want %s", got.Kind, tt.kind)
			}
			if got.Pressed != tt.wantPressed {
				t.Errorf("pressed: got %s, want %s", got.Pressed, tt.wantPressed)
			}
			if got.LatencyMs != tt.latency.Milliseconds() {
				t.Errorf("latency: got %d, want %d", got.LatencyMs, tt.latency.Milliseconds())
			}
			if got.Round != 2 {
				t.Errorf("round: got %d", got.Round)
			}
			if got.At != "2026-02-02T22:18:12.5Z" {
				t.Errorf("at: got %s", got.At)
			}
		})
	}
}

func TestFormatSessionPayload(t *testing.T) {
	start := time.Date(2026, 2, 2, 22, 0, 0, 0, time.UTC)
	rec := logic.SessionRecord{
		ID:          uuid.MustParse("6f1c2a2e-3f3e-4f6b-9a55-0c6d8c3e9b11"),
		UserID:      3,
		Mode:        logic.ModeChoice,
		Accuracy:    0.8,
		Best:        198 * time.Millisecond,
		Average:     215 * time.Millisecond,
		Latencies:   []time.Duration{232 * time.Millisecond, 198 * time.Millisecond},
		Incorrect:   1,
		Timeouts:    0,
		TooFast:     1,
		StartedAt:   start,
		CompletedAt: start.Add(time.Minute),
		Attempts: []logic.Attempt{
			{Round: 0, Kind: logic.AttemptCorrect, Target: logic.LightLeft, Pressed: logic.LightLeft, Latency: 232 * time.Millisecond, At: start},
		},
	}

	payload, err := FormatSessionPayload(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed RecordPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	r := parsed.Record
	if r.ID != "6f1c2a2e-3f3e-4f6b-9a55-0c6d8c3e9b11" {
		t.Errorf("id: got %s", r.ID)
	}
	if r.Mode != "CHOICE" || r.UserID != 3 || r.Accuracy != 0.8 {
		t.Errorf("unexpected header: %+v", r)
	}
	if len(r.LatenciesMs) != 2 || r.LatenciesMs[0] != 232 || r.LatenciesMs[1] != 198 {
		t.Errorf("latencies: %v", r.LatenciesMs)
	}
	if r.BestMs != 198 || r.AverageMs != 215 {
		t.Errorf("best/average: %d/%d", r.BestMs, r.AverageMs)
	}
	if r.CompletedAt != "2026-02-02T22:01:00Z" {
		t.Errorf("completed_at: %s", r.CompletedAt)
	}
	if len(r.Attempts) != 1 || r.Attempts[0].Target != "LEFT" {
		t.Errorf("attempts: %+v", r.Attempts)
	}
}

func TestFormatSessionPayloadEmptySlices(t *testing.T) {
	payload, err := FormatSessionPayload(logic.SessionRecord{Mode: logic.ModeSimple})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["record"]["latencies_ms"].([]any); !ok {
		t.Errorf("latencies_ms should be an empty array, got %v", raw["record"]["latencies_ms"])
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-03T10:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("payload:\ngot  %s\nwant %s", payload, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["system"]["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":"ok"}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload not passed through: %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(logic.Event{Timestamp: time.Now(), Type: logic.EventCancelled}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSession(logic.SessionRecord{ID: uuid.New(), Mode: logic.ModeChoice}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.Events))
	}
	if types := f.EventTypes(); types[0] != logic.EventCancelled {
		t.Errorf("unexpected event type: %s", types[0])
	}
	if len(f.Sessions) != 1 || len(f.SessionPayloads) != 1 {
		t.Errorf("expected 1 session, got %d", len(f.Sessions))
	}
	if len(f.SystemEvents) != 1 || len(f.SystemPayloads) != 1 {
		t.Errorf("expected 1 system event, got %d", len(f.SystemEvents))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	if err := f.Publish(logic.Event{Type: logic.EventState}); err == nil {
		t.Error("expected error")
	}
	if err := f.PublishSession(logic.SessionRecord{}); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 || len(f.Sessions) != 0 {
		t.Error("nothing should be recorded on error")
	}
}

func TestFakePublisherCloseAndConnected(t *testing.T) {
	f := NewFakePublisher()

	if f.Closed || f.IsConnected() {
		t.Error("should start closed=false, connected=false")
	}
	f.Connected = true
	if !f.IsConnected() {
		t.Error("expected connected")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

var (
	_ Publisher        = (*FakePublisher)(nil)
	_ ConnectionStatus = (*FakePublisher)(nil)
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
)
