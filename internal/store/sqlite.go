package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/reaction-timer/internal/logic"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLite keeps the full session history: one row per block plus its
// rounds and attempts.
type SQLite struct {
	db *sql.DB
}

var (
	_ logic.Sink   = (*SQLite)(nil)
	_ logic.Eraser = (*SQLite)(nil)
)

// OpenSQLite opens or creates the database at path and applies migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			uuid TEXT NOT NULL UNIQUE,
			user_id INTEGER NOT NULL,
			mode TEXT NOT NULL,
			practice INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			best_ms INTEGER NOT NULL,
			average_ms INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			timeouts INTEGER NOT NULL,
			too_fast INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_rounds (
			session_id INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			timeouts INTEGER NOT NULL,
			too_fast INTEGER NOT NULL,
			PRIMARY KEY (session_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS session_attempts (
			session_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			round INTEGER NOT NULL,
			kind TEXT NOT NULL,
			target INTEGER NOT NULL,
			pressed INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			at TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append stores rec.
func (s *SQLite) Append(rec logic.SessionRecord) error {
	_, err := s.AppendContext(context.Background(), rec)
	return err
}

// AppendContext stores rec with its rounds and attempts in one
// transaction and returns the row id.
func (s *SQLite) AppendContext(ctx context.Context, rec logic.SessionRecord) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (uuid, user_id, mode, practice, accuracy, best_ms, average_ms, incorrect, timeouts, too_fast, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(),
		rec.UserID,
		string(rec.Mode),
		boolInt(rec.Practice),
		rec.Accuracy,
		rec.Best.Milliseconds(),
		rec.Average.Milliseconds(),
		rec.Incorrect,
		rec.Timeouts,
		rec.TooFast,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.CompletedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session id: %w", err)
	}

	for _, rr := range rec.RoundRecords() {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO session_rounds (session_id, idx, latency_ms, incorrect, timeouts, too_fast)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, rr.Index, rr.Latency.Milliseconds(), rr.Incorrect, rr.Timeouts, rr.TooFast); err != nil {
			return 0, fmt.Errorf("insert round: %w", err)
		}
	}
	for i, a := range rec.Attempts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO session_attempts (session_id, seq, round, kind, target, pressed, latency_ms, at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, a.Round, string(a.Kind), int(a.Target), int(a.Pressed), a.Latency.Milliseconds(),
			a.At.Format(time.RFC3339Nano)); err != nil {
			return 0, fmt.Errorf("insert attempt: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// DeleteLast removes the most recent session. An empty history is left
// as is.
func (s *SQLite) DeleteLast() (err error) {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var id sql.NullInt64
	if err = tx.QueryRowContext(ctx, `SELECT MAX(id) FROM sessions`).Scan(&id); err != nil {
		return fmt.Errorf("find last session: %w", err)
	}
	if !id.Valid {
		return tx.Rollback()
	}
	for _, stmt := range []string{
		`DELETE FROM session_attempts WHERE session_id = ?`,
		`DELETE FROM session_rounds WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, stmt, id.Int64); err != nil {
			return fmt.Errorf("delete session %d: %w", id.Int64, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// NextUserID returns one more than the highest stored user id, or 1 for an
// empty history.
func (s *SQLite) NextUserID(ctx context.Context) (int, error) {
	var highest int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(user_id), 0) FROM sessions`).Scan(&highest); err != nil {
		return 0, fmt.Errorf("query user id: %w", err)
	}
	return highest + 1, nil
}

// Recent returns up to limit sessions, newest first, with their rounds.
// Attempts are not loaded.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]logic.SessionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, uuid, user_id, mode, practice, accuracy, best_ms, average_ms, incorrect, timeouts, too_fast, started_at, completed_at
		 FROM sessions
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var (
		ids     []int64
		records []logic.SessionRecord
	)
	for rows.Next() {
		var (
			id                    int64
			rawID, mode           string
			practice              int
			bestMs, avgMs         int64
			startedAt, completeAt string
			rec                   logic.SessionRecord
		)
		if err := rows.Scan(&id, &rawID, &rec.UserID, &mode, &practice, &rec.Accuracy,
			&bestMs, &avgMs, &rec.Incorrect, &rec.Timeouts, &rec.TooFast, &startedAt, &completeAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if rec.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("session %d id: %w", id, err)
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("session %d start: %w", id, err)
		}
		if rec.CompletedAt, err = time.Parse(time.RFC3339Nano, completeAt); err != nil {
			return nil, fmt.Errorf("session %d end: %w", id, err)
		}
		rec.Mode = logic.Mode(mode)
		rec.Practice = practice != 0
		rec.Best = time.Duration(bestMs) * time.Millisecond
		rec.Average = time.Duration(avgMs) * time.Millisecond
		ids = append(ids, id)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close rows: %w", err)
	}

	for i, id := range ids {
		rounds, err := s.rounds(ctx, id)
		if err != nil {
			return nil, err
		}
		records[i].Rounds = rounds
		records[i].Latencies = make([]time.Duration, len(rounds))
		for j, rr := range rounds {
			records[i].Latencies[j] = rr.Latency
		}
	}
	return records, nil
}

func (s *SQLite) rounds(ctx context.Context, sessionID int64) ([]logic.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, latency_ms, incorrect, timeouts, too_fast
		 FROM session_rounds
		 WHERE session_id = ?
		 ORDER BY idx ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []logic.RoundRecord
	for rows.Next() {
		var (
			rr        logic.RoundRecord
			latencyMs int64
		)
		if err := rows.Scan(&rr.Index, &latencyMs, &rr.Incorrect, &rr.Timeouts, &rr.TooFast); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rr.Latency = time.Duration(latencyMs) * time.Millisecond
		rr.Correct = true
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	return out, nil
}

// Attempts returns the attempt log of the session with the given uuid.
func (s *SQLite) Attempts(ctx context.Context, id uuid.UUID) ([]logic.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.round, a.kind, a.target, a.pressed, a.latency_ms, a.at
		 FROM session_attempts a
		 JOIN sessions s ON s.id = a.session_id
		 WHERE s.uuid = ?
		 ORDER BY a.seq ASC`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []logic.Attempt
	for rows.Next() {
		var (
			a               logic.Attempt
			kind, at        string
			target, pressed int
			latencyMs       int64
		)
		if err := rows.Scan(&a.Round, &kind, &target, &pressed, &latencyMs, &at); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if a.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("attempt time: %w", err)
		}
		a.Kind = logic.AttemptKind(kind)
		a.Target = logic.Light(target)
		a.Pressed = logic.Light(pressed)
		a.Latency = time.Duration(latencyMs) * time.Millisecond
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
