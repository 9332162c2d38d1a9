// Package status provides a thread-safe status tracker for the reaction-timer daemon.
// It is written by the poll loop and read by HTTP handlers and heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/reaction-timer/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs         int64
	DebounceMs     int64
	HeartbeatMs    int64
	RoundsNormal   int
	RoundsPractice int
	TimeoutMs      int64
	DelayMinMs     int64
	DelayMaxMs     int64
	TooFastMs      int64
	Broker         string
	HTTPAddr       string
	ResultsPath    string
	HistoryPath    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Session       logic.Snapshot
	Display       []string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether the device can run sessions.
func (s Snapshot) Ready() bool {
	return s.Session.State != "" && s.Session.State != logic.StateHalted
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the state machine snapshot.
// Called from runLoop on every cycle that changed something.
func (t *Tracker) Update(s logic.Snapshot) {
	t.mu.Lock()
	t.snap.Session = s
	t.mu.Unlock()
}

// SetDisplay stores the text currently shown on the display.
func (t *Tracker) SetDisplay(lines []string) {
	cp := make([]string, len(lines))
	copy(cp, lines)
	t.mu.Lock()
	t.snap.Display = cp
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
