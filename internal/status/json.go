package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Ready         bool         `json:"ready"`
	Error         string       `json:"error,omitempty"`
	Session       SessionJSON  `json:"session"`
	Display       []string     `json:"display,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SessionJSON describes the block in progress.
type SessionJSON struct {
	UserID        int     `json:"user_id"`
	MenuItem      string  `json:"menu_item,omitempty"`
	Mode          string  `json:"mode,omitempty"`
	Practice      bool    `json:"practice"`
	Round         int     `json:"round"`
	MaxRounds     int     `json:"max_rounds"`
	Target        string  `json:"target"`
	Lit           bool    `json:"lit"`
	LastLatencyMs int64   `json:"last_latency_ms"`
	BestMs        int64   `json:"best_ms"`
	AverageMs     int64   `json:"average_ms"`
	Accuracy      float64 `json:"accuracy"`
	Incorrect     int     `json:"incorrect"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of totals since startup.
type CountsJSON struct {
	Sessions  int `json:"sessions"`
	Cancelled int `json:"cancelled"`
	Rounds    int `json:"rounds"`
	Incorrect int `json:"incorrect"`
	TooFast   int `json:"too_fast"`
	Timeouts  int `json:"timeouts"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs         int64  `json:"poll_ms"`
	DebounceMs     int64  `json:"debounce_ms"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	RoundsNormal   int    `json:"rounds_normal"`
	RoundsPractice int    `json:"rounds_practice"`
	TimeoutMs      int64  `json:"response_timeout_ms"`
	DelayMinMs     int64  `json:"delay_min_ms"`
	DelayMaxMs     int64  `json:"delay_max_ms"`
	TooFastMs      int64  `json:"too_fast_ms"`
	Broker         string `json:"broker"`
	HTTPAddr       string `json:"http_addr"`
	ResultsPath    string `json:"results_path,omitempty"`
	HistoryPath    string `json:"history_path,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	s := snap.Session
	state := string(s.State)
	if state == "" {
		state = "UNKNOWN"
	}

	return StatusInner{
		State: state,
		Ready: snap.Ready(),
		Error: s.Error,
		Session: SessionJSON{
			UserID:        s.UserID,
			MenuItem:      s.MenuItem,
			Mode:          string(s.Mode),
			Practice:      s.Practice,
			Round:         s.Round,
			MaxRounds:     s.MaxRounds,
			Target:        s.Target.String(),
			Lit:           s.Lit,
			LastLatencyMs: s.LastLatency.Milliseconds(),
			BestMs:        s.Best.Milliseconds(),
			AverageMs:     s.Average.Milliseconds(),
			Accuracy:      s.Accuracy,
			Incorrect:     s.Incorrect,
		},
		Display:       snap.Display,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Sessions:  s.Counts.Sessions,
			Cancelled: s.Counts.Cancelled,
			Rounds:    s.Counts.Rounds,
			Incorrect: s.Counts.Incorrect,
			TooFast:   s.Counts.TooFast,
			Timeouts:  s.Counts.Timeouts,
		},
		Config: ConfigJSON{
			PollMs:         snap.Config.PollMs,
			DebounceMs:     snap.Config.DebounceMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			RoundsNormal:   snap.Config.RoundsNormal,
			RoundsPractice: snap.Config.RoundsPractice,
			TimeoutMs:      snap.Config.TimeoutMs,
			DelayMinMs:     snap.Config.DelayMinMs,
			DelayMaxMs:     snap.Config.DelayMaxMs,
			TooFastMs:      snap.Config.TooFastMs,
			Broker:         snap.Config.Broker,
			HTTPAddr:       snap.Config.HTTPAddr,
			ResultsPath:    snap.Config.ResultsPath,
			HistoryPath:    snap.Config.HistoryPath,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
