// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/reaction-timer/internal/logic"
)

// TopicEvents is the MQTT topic for session transitions and attempts.
const TopicEvents = "reaction/timer/events"

// TopicSessions is the MQTT topic for completed session records.
const TopicSessions = "reaction/timer/sessions"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "reaction/timer/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a session event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSession sends a completed session record.
	PublishSession(rec logic.SessionRecord) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a session event.
type Payload struct {
	Session SessionEventPayload `json:"session"`
}

// SessionEventPayload contains the session event details.
type SessionEventPayload struct {
	Timestamp string          `json:"timestamp"`
	Event     string          `json:"event"`
	UserID    int             `json:"user_id"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Attempt   *AttemptPayload `json:"attempt,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// AttemptPayload is one classified response.
type AttemptPayload struct {
	Round     int    `json:"round"`
	Kind      string `json:"kind"`
	Target    string `json:"target"`
	Pressed   string `json:"pressed"`
	LatencyMs int64  `json:"latency_ms"`
	At        string `json:"at"`
}

func attemptPayload(a logic.Attempt) AttemptPayload {
	return AttemptPayload{
		Round:     a.Round,
		Kind:      string(a.Kind),
		Target:    a.Target.String(),
		Pressed:   a.Pressed.String(),
		LatencyMs: a.Latency.Milliseconds(),
		At:        a.At.UTC().Format(time.RFC3339Nano),
	}
}

// FormatPayload creates the JSON payload for a session event. The record
// of a BLOCK_COMPLETE event is published separately on TopicSessions.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := SessionEventPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		UserID:    event.UserID,
		From:      string(event.From),
		To:        string(event.To),
		Message:   event.Message,
	}
	if event.Attempt != nil {
		a := attemptPayload(*event.Attempt)
		p.Attempt = &a
	}
	return json.Marshal(Payload{Session: p})
}

// RecordPayload represents the MQTT message payload for a completed block.
type RecordPayload struct {
	Record RecordPayloadInner `json:"record"`
}

// RecordPayloadInner contains the session record.
type RecordPayloadInner struct {
	ID          string           `json:"id"`
	UserID      int              `json:"user_id"`
	Mode        string           `json:"mode"`
	Practice    bool             `json:"practice"`
	Accuracy    float64          `json:"accuracy"`
	BestMs      int64            `json:"best_ms"`
	AverageMs   int64            `json:"average_ms"`
	LatenciesMs []int64          `json:"latencies_ms"`
	Incorrect   int              `json:"incorrect"`
	Timeouts    int              `json:"timeouts"`
	TooFast     int              `json:"too_fast"`
	StartedAt   string           `json:"started_at"`
	CompletedAt string           `json:"completed_at"`
	Attempts    []AttemptPayload `json:"attempts"`
}

// FormatSessionPayload creates the JSON payload for a session record.
func FormatSessionPayload(rec logic.SessionRecord) ([]byte, error) {
	inner := RecordPayloadInner{
		ID:          rec.ID.String(),
		UserID:      rec.UserID,
		Mode:        string(rec.Mode),
		Practice:    rec.Practice,
		Accuracy:    rec.Accuracy,
		BestMs:      rec.Best.Milliseconds(),
		AverageMs:   rec.Average.Milliseconds(),
		LatenciesMs: make([]int64, len(rec.Latencies)),
		Incorrect:   rec.Incorrect,
		Timeouts:    rec.Timeouts,
		TooFast:     rec.TooFast,
		StartedAt:   rec.StartedAt.UTC().Format(time.RFC3339),
		CompletedAt: rec.CompletedAt.UTC().Format(time.RFC3339),
		Attempts:    make([]AttemptPayload, len(rec.Attempts)),
	}
	for i, l := range rec.Latencies {
		inner.LatenciesMs[i] = l.Milliseconds()
	}
	for i, a := range rec.Attempts {
		inner.Attempts[i] = attemptPayload(a)
	}
	return json.Marshal(RecordPayload{Record: inner})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
