// Package web provides an HTTP status server for the reaction-timer daemon.
package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/sweeney/reaction-timer/internal/logic"
	"github.com/sweeney/reaction-timer/internal/status"
)

// DefaultHistoryLimit is how many sessions /sessions.json returns
// when no limit is given.
const DefaultHistoryLimit = 20

// MaxHistoryLimit caps the limit query parameter.
const MaxHistoryLimit = 500

// History lists stored sessions, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]logic.SessionRecord, error)
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	history    History
}

// New creates a Server that reads state from the given tracker.
// history may be nil, in which case /sessions.json returns 404.
func New(addr string, tracker *status.Tracker, history History) *Server {
	s := &Server{tracker: tracker, history: history}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/sessions.json", s.handleSessions)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, MaxHistoryLimit)
	}

	recs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("web: load history: %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(formatSessions(recs))
}
