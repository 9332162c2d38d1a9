package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/reaction-timer/internal/logic"
)

// SessionsJSON is the JSON envelope for /sessions.json.
type SessionsJSON struct {
	Sessions []SessionJSON `json:"sessions"`
}

// SessionJSON is one stored block.
type SessionJSON struct {
	ID          string  `json:"id"`
	UserID      int     `json:"user_id"`
	Mode        string  `json:"mode"`
	Practice    bool    `json:"practice"`
	Accuracy    float64 `json:"accuracy"`
	BestMs      int64   `json:"best_ms"`
	AverageMs   int64   `json:"average_ms"`
	LatenciesMs []int64 `json:"latencies_ms"`
	Incorrect   int     `json:"incorrect"`
	Timeouts    int     `json:"timeouts"`
	TooFast     int     `json:"too_fast"`
	StartedAt   string  `json:"started_at,omitempty"`
	CompletedAt string  `json:"completed_at,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatSessions(recs []logic.SessionRecord) []byte {
	out := SessionsJSON{Sessions: make([]SessionJSON, 0, len(recs))}
	for _, r := range recs {
		lat := make([]int64, len(r.Latencies))
		for i, l := range r.Latencies {
			lat[i] = l.Milliseconds()
		}
		out.Sessions = append(out.Sessions, SessionJSON{
			ID:          r.ID.String(),
			UserID:      r.UserID,
			Mode:        string(r.Mode),
			Practice:    r.Practice,
			Accuracy:    r.Accuracy,
			BestMs:      r.Best.Milliseconds(),
			AverageMs:   r.Average.Milliseconds(),
			LatenciesMs: lat,
			Incorrect:   r.Incorrect,
			Timeouts:    r.Timeouts,
			TooFast:     r.TooFast,
			StartedAt:   formatTime(r.StartedAt),
			CompletedAt: formatTime(r.CompletedAt),
		})
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	return data
}
