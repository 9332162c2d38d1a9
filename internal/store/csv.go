// Package store persists completed session records.
package store

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sweeney/reaction-timer/internal/logic"
)

// FileSink appends one comma-separated line per session record to a
// results file: user id, mode, accuracy, then latencies in milliseconds.
type FileSink struct {
	mu   sync.Mutex
	path string
}

var (
	_ logic.Sink   = (*FileSink)(nil)
	_ logic.Eraser = (*FileSink)(nil)
)

// OpenFile prepares a results file at path, creating its directory and
// the file itself if needed.
func OpenFile(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close results file: %w", err)
	}
	return &FileSink{path: path}, nil
}

// Path returns the results file path.
func (s *FileSink) Path() string {
	return s.path
}

// Append writes rec as one line and syncs the file.
func (s *FileSink) Append(rec logic.SessionRecord) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close results file: %w", cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(rec.Fields()); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync results file: %w", err)
	}
	return nil
}

// DeleteLast removes the final line of the results file. An empty file
// is left as is.
func (s *FileSink) DeleteLast() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readAll()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	rows = rows[:len(rows)-1]

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace results file: %w", err)
	}
	return nil
}

// Lines returns every stored row.
func (s *FileSink) Lines() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *FileSink) readAll() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	// Rows differ in length with the block's round count.
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}
	return rows, nil
}
