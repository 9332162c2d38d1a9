package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/reaction-timer/internal/logic"
	"github.com/sweeney/reaction-timer/internal/status"
	"github.com/sweeney/reaction-timer/internal/store"
)

type failingHistory struct{}

func (failingHistory) Recent(context.Context, int) ([]logic.SessionRecord, error) {
	return nil, errors.New("database is locked")
}

func newTestServer(t *testing.T, history History) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:         5,
		DebounceMs:     20,
		HeartbeatMs:    900000,
		RoundsNormal:   10,
		RoundsPractice: 5,
		TimeoutMs:      1000,
		DelayMinMs:     1000,
		DelayMaxMs:     3000,
		TooFastMs:      100,
		Broker:         "tcp://192.168.1.200:1883",
		HTTPAddr:       ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, history)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
	}
	return resp
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(logic.Snapshot{
		State:  logic.StateIdle,
		UserID: 2,
		Counts: logic.Counts{Sessions: 5, Cancelled: 2},
	})
	tr.SetMQTTConnected(true)

	var sj status.StatusJSON
	resp := getJSON(t, ts.URL+"/index.json", &sj)

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	if sj.Status.State != "IDLE" {
		t.Errorf("State: got %q, want IDLE", sj.Status.State)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if sj.Status.Session.UserID != 2 {
		t.Errorf("UserID: got %d, want 2", sj.Status.Session.UserID)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Sessions != 5 || sj.Status.Counts.Cancelled != 2 {
		t.Errorf("Counts: %+v", sj.Status.Counts)
	}
	if sj.Status.Config.RoundsNormal != 10 || sj.Status.Config.TooFastMs != 100 {
		t.Errorf("Config: %+v", sj.Status.Config)
	}
}

func TestJSONUnknownStateBeforeStart(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	var sj status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj)

	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before start: got %q, want UNKNOWN", sj.Status.State)
	}
	if sj.Status.Ready {
		t.Error("expected Ready=false before start")
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	var sj status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj)

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(logic.Snapshot{
		State:    logic.StateAwaiting,
		Mode:     logic.ModeChoice,
		Round:    4,
		Best:     198 * time.Millisecond,
		Accuracy: 0.75,
	})
	tr.SetDisplay([]string{"Time    215 ms", "Avg     230 ms"})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"AWAITING_RESPONSE", "CHOICE", "198 ms", "75%", "Time    215 ms"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLShowsHaltError(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(logic.Snapshot{State: logic.StateHalted, Error: "save failed"})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "save failed") {
		t.Error("page should show the halt error")
	}
	if !strings.Contains(string(body), `class="halted">HALTED`) {
		t.Error("state should be marked halted")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, nil)

	var sj1 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj1)
	if sj1.Status.Ready {
		t.Error("expected Ready=false initially")
	}

	tr.Update(logic.Snapshot{State: logic.StateCountdown, Mode: logic.ModeSimple, Practice: true})
	tr.SetMQTTConnected(true)

	var sj2 status.StatusJSON
	getJSON(t, ts.URL+"/index.json", &sj2)

	if !sj2.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if sj2.Status.State != "COUNTDOWN" {
		t.Errorf("State: got %q, want COUNTDOWN", sj2.Status.State)
	}
	if !sj2.Status.Session.Practice {
		t.Error("expected practice block")
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func seedHistory(t *testing.T, n int) *store.MemorySink {
	t.Helper()
	mem := store.NewMemorySink()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		rec := logic.SessionRecord{
			ID:          uuid.New(),
			UserID:      i + 1,
			Mode:        logic.ModeChoice,
			Accuracy:    1,
			Best:        200 * time.Millisecond,
			Average:     250 * time.Millisecond,
			Latencies:   []time.Duration{200 * time.Millisecond, 300 * time.Millisecond},
			StartedAt:   start.Add(time.Duration(i) * time.Minute),
			CompletedAt: start.Add(time.Duration(i)*time.Minute + 30*time.Second),
		}
		if err := mem.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return mem
}

func TestSessionsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, seedHistory(t, 3))

	var sj SessionsJSON
	resp := getJSON(t, ts.URL+"/sessions.json", &sj)

	if resp.StatusCode != 200 {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	if len(sj.Sessions) != 3 {
		t.Fatalf("sessions: got %d, want 3", len(sj.Sessions))
	}
	// newest first
	if sj.Sessions[0].UserID != 3 || sj.Sessions[2].UserID != 1 {
		t.Errorf("order: got users %d..%d", sj.Sessions[0].UserID, sj.Sessions[2].UserID)
	}
	got := sj.Sessions[0]
	if got.Mode != "CHOICE" || got.BestMs != 200 || got.AverageMs != 250 {
		t.Errorf("session: %+v", got)
	}
	if len(got.LatenciesMs) != 2 || got.LatenciesMs[1] != 300 {
		t.Errorf("latencies: %v", got.LatenciesMs)
	}
	if got.CompletedAt != "2026-01-01T09:02:30Z" {
		t.Errorf("completed_at: %s", got.CompletedAt)
	}
}

func TestSessionsEndpointLimit(t *testing.T) {
	ts, _ := newTestServer(t, seedHistory(t, 5))

	var sj SessionsJSON
	getJSON(t, ts.URL+"/sessions.json?limit=2", &sj)

	if len(sj.Sessions) != 2 {
		t.Errorf("sessions: got %d, want 2", len(sj.Sessions))
	}
}

func TestSessionsEndpointBadLimit(t *testing.T) {
	ts, _ := newTestServer(t, seedHistory(t, 1))

	for _, q := range []string{"abc", "0", "-3"} {
		resp := getJSON(t, ts.URL+"/sessions.json?limit="+q, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("limit=%s: got %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestSessionsEndpointEmpty(t *testing.T) {
	ts, _ := newTestServer(t, store.NewMemorySink())

	resp, err := http.Get(ts.URL + "/sessions.json")
	if err != nil {
		t.Fatalf("GET /sessions.json: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"sessions": []`) {
		t.Errorf("expected an empty array, got %s", body)
	}
}

func TestSessionsEndpointWithoutHistory(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := getJSON(t, ts.URL+"/sessions.json", nil)
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestSessionsEndpointHistoryError(t *testing.T) {
	ts, _ := newTestServer(t, failingHistory{})

	resp := getJSON(t, ts.URL+"/sessions.json", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", resp.StatusCode)
	}
}
