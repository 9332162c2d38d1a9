package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/sweeney/reaction-timer/internal/config"
	"github.com/sweeney/reaction-timer/internal/display"
	"github.com/sweeney/reaction-timer/internal/gpio"
	"github.com/sweeney/reaction-timer/internal/input"
	"github.com/sweeney/reaction-timer/internal/logic"
	"github.com/sweeney/reaction-timer/internal/mqtt"
	"github.com/sweeney/reaction-timer/internal/status"
	"github.com/sweeney/reaction-timer/internal/store"
	"github.com/sweeney/reaction-timer/internal/web"
)

// stores holds the persistence backends opened for the daemon.
type stores struct {
	csv *store.FileSink
	db  *store.SQLite
	tee *store.Tee
	err error
}

// openStores opens every configured backend. A failure is kept in err so
// the device can start halted and show it.
func openStores(cfg config.Config) *stores {
	s := &stores{}
	if cfg.CSVPath != "" {
		csv, err := store.OpenFile(cfg.CSVPath)
		if err != nil {
			s.err = fmt.Errorf("open results file: %w", err)
		} else {
			s.csv = csv
		}
	}
	if cfg.DBPath != "" && s.err == nil {
		db, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			s.err = fmt.Errorf("open history: %w", err)
		} else {
			s.db = db
		}
	}

	var sinks []logic.Sink
	if s.csv != nil {
		sinks = append(sinks, s.csv)
	}
	if s.db != nil {
		sinks = append(sinks, s.db)
	}
	s.tee = store.NewTee(sinks...)
	return s
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// history returns the session history for the web server, or nil.
func (s *stores) history() web.History {
	if s.db == nil {
		return nil
	}
	return s.db
}

func run(cfg config.Config) error {
	th := cfg.Thresholds()
	timing := cfg.Timing()
	edges := input.NewEdgeCapture(th.Debounce)

	dev, err := gpio.NewRealDevice(cfg.Pins(), func(i int, at time.Time) {
		edges.Falling(input.Button(i), at)
	})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if cerr := dev.Close(); cerr != nil {
			log.Printf("gpio close error: %v", cerr)
		}
	}()

	st := openStores(cfg)
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Printf("store close error: %v", cerr)
		}
	}()

	userID := cfg.UserID
	if st.db != nil {
		next, err := st.db.NextUserID(context.Background())
		if err != nil {
			log.Printf("store: next user id: %v", err)
		} else if next > userID {
			userID = next
		}
	}

	var publisher mqtt.Publisher = offlinePublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID)
		if err != nil {
			log.Printf("mqtt: %v, publishing disabled", err)
		} else {
			publisher, mqttStatus = p, p
		}
	}
	defer publisher.Close()

	console := display.NewConsole(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	dc := logic.NewDeviceContext(edges, th, timing, rng, logic.Gateways{
		Lights:  deviceLights{dev: dev},
		Display: console,
		Sink:    st.tee,
	}, userID)

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:         cfg.PollMs,
		DebounceMs:     cfg.DebounceMs,
		HeartbeatMs:    cfg.HeartbeatMs,
		RoundsNormal:   cfg.RoundsNormal,
		RoundsPractice: cfg.RoundsPractice,
		TimeoutMs:      cfg.ResponseTimeoutMs,
		DelayMinMs:     cfg.DelayMinMs,
		DelayMaxMs:     cfg.DelayMaxMs,
		TooFastMs:      cfg.TooFastMs,
		Broker:         cfg.Broker,
		HTTPAddr:       cfg.HTTPAddr,
		ResultsPath:    cfg.CSVPath,
		HistoryPath:    cfg.DBPath,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, st.history())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: user=%d poll=%dms debounce=%dms delay=%d-%dms timeout=%dms too_fast=%dms rounds=%d/%d broker=%q",
		userID, cfg.PollMs, cfg.DebounceMs, cfg.DelayMinMs, cfg.DelayMaxMs,
		cfg.ResponseTimeoutMs, cfg.TooFastMs, cfg.RoundsNormal, cfg.RoundsPractice, cfg.Broker)

	ticker := time.NewTicker(ms(cfg.PollMs))
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, append([]os.Signal{syscall.SIGINT, syscall.SIGTERM}, cancelSignals...)...)

	l := &loop{
		dev:        dev,
		dc:         dc,
		console:    console,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		heartbeat:  ms(cfg.HeartbeatMs),
		startErr:   st.err,
	}
	return runLoop(l, time.Now, ticker.C, sigCh)
}

// loop is everything the poll loop touches.
type loop struct {
	dev        gpio.Device
	dc         *logic.DeviceContext
	console    *display.Console
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker
	heartbeat  time.Duration
	// startErr halts the device right after startup.
	startErr error
}

func runLoop(l *loop, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	lastHeartbeat := startTime

	l.handle(l.dc.Machine.Start(startTime))
	if l.startErr != nil {
		log.Printf("store error: %v", l.startErr)
		l.handle(l.dc.Machine.Halt(startTime, l.startErr.Error()))
	}
	l.refresh()
	l.publishSystem(startTime, "STARTUP", "")

	for {
		select {
		case s := <-sig:
			if isCancelSignal(s) {
				log.Printf("received %v, cancelling session", s)
				l.handle(l.dc.Machine.Cancel(now()))
				l.refresh()
				continue
			}

			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			l.refresh()
			l.publishSystem(now(), "SHUTDOWN", signalName)
			return nil

		case t := <-tick:
			levels, err := sampleLevels(l.dev)
			if err != nil {
				log.Printf("gpio read error: %v", err)
				continue
			}

			_, events := l.dc.Cycle(t, levels)
			l.handle(events)

			if l.heartbeat > 0 && t.Sub(lastHeartbeat) >= l.heartbeat {
				lastHeartbeat = t
				snap := l.dc.Machine.Snapshot()
				log.Printf("heartbeat: uptime=%v state=%s sessions=%d cancelled=%d rounds=%d",
					t.Sub(startTime).Truncate(time.Second), snap.State, snap.Counts.Sessions, snap.Counts.Cancelled, snap.Counts.Rounds)
				if net := readNetworkInfo(); net != nil {
					l.tracker.SetNetwork(net)
				}
				l.refresh()
				l.publishSystem(t, "HEARTBEAT", "")
			}

			l.refresh()
		}
	}
}

// handle logs and publishes state machine events.
func (l *loop) handle(events []logic.Event) {
	for _, e := range events {
		logEvent(e)
		if err := l.publisher.Publish(e); err != nil {
			log.Printf("publish error: %v", err)
		}
		if e.Type == logic.EventBlockComplete && e.Record != nil {
			if err := l.publisher.PublishSession(*e.Record); err != nil {
				log.Printf("publish session error: %v", err)
			}
		}
	}
}

// refresh copies machine, display and broker state into the tracker.
func (l *loop) refresh() {
	l.tracker.Update(l.dc.Machine.Snapshot())
	frame := l.console.Frame()
	l.tracker.SetDisplay(frame[:])
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func (l *loop) publishSystem(at time.Time, event, reason string) {
	snap := l.tracker.Snapshot()
	e := mqtt.SystemEvent{
		Timestamp:  at,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := l.publisher.PublishSystem(e); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	}
}

func logEvent(e logic.Event) {
	switch e.Type {
	case logic.EventState:
		log.Printf("session: %s -> %s (user %d)", e.From, e.To, e.UserID)
	case logic.EventAttempt:
		a := e.Attempt
		log.Printf("session: round %d %s target=%s pressed=%s latency=%dms",
			a.Round+1, a.Kind, a.Target, a.Pressed, a.Latency.Milliseconds())
	case logic.EventBlockComplete:
		r := e.Record
		log.Printf("session: %s block complete (user %d, practice=%v) best=%dms avg=%dms accuracy=%.3f",
			r.Mode, r.UserID, r.Practice, r.Best.Milliseconds(), r.Average.Milliseconds(), r.Accuracy)
	case logic.EventHalted:
		log.Printf("session: halted: %s", e.Message)
	default:
		log.Printf("session: %s (user %d)", e.Type, e.UserID)
	}
}

// offlinePublisher stands in when no broker is configured.
type offlinePublisher struct{}

func (offlinePublisher) Publish(logic.Event) error { return nil }

func (offlinePublisher) PublishSession(logic.SessionRecord) error { return nil }

func (offlinePublisher) PublishSystem(mqtt.SystemEvent) error { return nil }

func (offlinePublisher) Close() error { return nil }
