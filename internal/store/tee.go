package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sweeney/reaction-timer/internal/logic"
)

// Tee writes every record to each member sink in order. If a member fails,
// the record is deleted again from the members that already took it, so
// the stores never disagree about the last session.
type Tee struct {
	sinks []logic.Sink
}

var (
	_ logic.Sink   = (*Tee)(nil)
	_ logic.Eraser = (*Tee)(nil)
)

// NewTee creates a tee over sinks. Nil sinks are skipped.
func NewTee(sinks ...logic.Sink) *Tee {
	t := &Tee{}
	for _, s := range sinks {
		if s != nil {
			t.sinks = append(t.sinks, s)
		}
	}
	return t
}

// Len returns the number of member sinks.
func (t *Tee) Len() int {
	return len(t.sinks)
}

// Append writes rec to every member. On the first failure it undoes the
// earlier members and stops.
func (t *Tee) Append(rec logic.SessionRecord) error {
	for i, s := range t.sinks {
		if err := s.Append(rec); err != nil {
			errs := []error{fmt.Errorf("sink %d: %w", i, err)}
			for j := i - 1; j >= 0; j-- {
				e, ok := t.sinks[j].(logic.Eraser)
				if !ok {
					errs = append(errs, fmt.Errorf("sink %d: cannot undo append", j))
					continue
				}
				if uerr := e.DeleteLast(); uerr != nil {
					errs = append(errs, fmt.Errorf("undo sink %d: %w", j, uerr))
				}
			}
			return errors.Join(errs...)
		}
	}
	return nil
}

// DeleteLast deletes from every member that supports deletion.
func (t *Tee) DeleteLast() error {
	var errs []error
	for i, s := range t.sinks {
		e, ok := s.(logic.Eraser)
		if !ok {
			continue
		}
		if err := e.DeleteLast(); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// MemorySink keeps records in memory. It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	records []logic.SessionRecord

	// AppendError, if set, will be returned by Append.
	AppendError error
}

var (
	_ logic.Sink   = (*MemorySink)(nil)
	_ logic.Eraser = (*MemorySink)(nil)
)

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores rec.
func (m *MemorySink) Append(rec logic.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendError != nil {
		return m.AppendError
	}
	m.records = append(m.records, rec)
	return nil
}

// DeleteLast drops the newest record.
func (m *MemorySink) DeleteLast() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) > 0 {
		m.records = m.records[:len(m.records)-1]
	}
	return nil
}

// Records returns a copy of the stored records, oldest first.
func (m *MemorySink) Records() []logic.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]logic.SessionRecord, len(m.records))
	copy(out, m.records)
	return out
}

// Recent returns up to limit records, newest first.
func (m *MemorySink) Recent(_ context.Context, limit int) ([]logic.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []logic.SessionRecord
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}
