package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/reaction-timer/internal/logic"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func sampleRecord(userID int, latenciesMs ...int) logic.SessionRecord {
	rec := logic.SessionRecord{
		ID:          uuid.New(),
		UserID:      userID,
		Mode:        logic.ModeChoice,
		Accuracy:    10.0 / 12.0,
		Incorrect:   2,
		StartedAt:   t0,
		CompletedAt: t0.Add(time.Minute),
	}
	var sum time.Duration
	for i, ms := range latenciesMs {
		l := time.Duration(ms) * time.Millisecond
		rec.Latencies = append(rec.Latencies, l)
		rec.Rounds = append(rec.Rounds, logic.RoundRecord{Index: i, Latency: l, Correct: true})
		if rec.Best == 0 || l < rec.Best {
			rec.Best = l
		}
		sum += l
	}
	if len(latenciesMs) > 0 {
		rec.Average = sum / time.Duration(len(latenciesMs))
	}
	rec.Attempts = []logic.Attempt{
		{Round: 0, Kind: logic.AttemptIncorrect, Target: logic.LightLeft, Pressed: logic.LightRight, Latency: 300 * time.Millisecond, At: t0.Add(5 * time.Second)},
		{Round: 0, Kind: logic.AttemptCorrect, Target: logic.LightLeft, Pressed: logic.LightLeft, Latency: 420 * time.Millisecond, At: t0.Add(6 * time.Second)},
	}
	return rec
}

func TestFileSinkAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.csv")
	s, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	require.NoError(t, s.Append(sampleRecord(3, 215, 198)))
	require.NoError(t, s.Append(sampleRecord(4, 250)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3,CHOICE,0.833,215,198\n4,CHOICE,0.833,250\n", string(data))

	lines, err := s.Lines()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"4", "CHOICE", "0.833", "250"}, lines[1])
}

func TestFileSinkDeleteLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	s, err := OpenFile(path)
	require.NoError(t, err)

	require.NoError(t, s.DeleteLast(), "empty file")

	require.NoError(t, s.Append(sampleRecord(1, 200)))
	require.NoError(t, s.Append(sampleRecord(2, 300)))
	require.NoError(t, s.DeleteLast())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1,CHOICE,0.833,200\n", string(data))

	require.NoError(t, s.DeleteLast())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestOpenFileFailsOnDirectory(t *testing.T) {
	_, err := OpenFile(t.TempDir())
	require.Error(t, err)
}

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteAppendAndRecent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := sampleRecord(1, 215, 198, 240)
	second := sampleRecord(2, 300)
	second.Mode = logic.ModeSimple
	second.Accuracy = 1

	id, err := db.AppendContext(ctx, first)
	require.NoError(t, err)
	assert.Positive(t, id)
	require.NoError(t, db.Append(second))

	recent, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, second.ID, recent[0].ID, "newest first")
	assert.Equal(t, logic.ModeSimple, recent[0].Mode)

	got := recent[1]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 1, got.UserID)
	assert.InDelta(t, first.Accuracy, got.Accuracy, 1e-9)
	assert.Equal(t, first.Latencies, got.Latencies)
	assert.Equal(t, 198*time.Millisecond, got.Best)
	assert.Equal(t, 2, got.Incorrect)
	assert.False(t, got.Practice)
	assert.True(t, got.StartedAt.Equal(first.StartedAt))
	assert.True(t, got.CompletedAt.Equal(first.CompletedAt))
	require.Len(t, got.Rounds, 3)
	assert.Equal(t, 2, got.Rounds[2].Index)

	limited, err := db.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := db.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteLatenciesWithoutRounds(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rec := sampleRecord(4, 180, 200)
	rec.Rounds = nil
	require.NoError(t, db.Append(rec))

	recent, err := db.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, rec.Latencies, recent[0].Latencies)
	require.Len(t, recent[0].Rounds, 2)
	assert.Equal(t, 1, recent[0].Rounds[1].Index)
}

func TestSQLiteAttempts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rec := sampleRecord(1, 420)
	require.NoError(t, db.Append(rec))

	attempts, err := db.Attempts(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, logic.AttemptIncorrect, attempts[0].Kind)
	assert.Equal(t, logic.LightRight, attempts[0].Pressed)
	assert.Equal(t, 420*time.Millisecond, attempts[1].Latency)
	assert.True(t, attempts[1].At.Equal(t0.Add(6*time.Second)))

	missing, err := db.Attempts(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSQLiteDeleteLast(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.DeleteLast(), "empty history")

	keep := sampleRecord(1, 200)
	drop := sampleRecord(2, 300)
	require.NoError(t, db.Append(keep))
	require.NoError(t, db.Append(drop))
	require.NoError(t, db.DeleteLast())

	recent, err := db.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, keep.ID, recent[0].ID)

	attempts, err := db.Attempts(ctx, drop.ID)
	require.NoError(t, err)
	assert.Empty(t, attempts, "attempts deleted with the session")
}

func TestSQLiteNextUserID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	next, err := db.NextUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.NoError(t, db.Append(sampleRecord(4, 200)))
	require.NoError(t, db.Append(sampleRecord(2, 200)))

	next, err = db.NextUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, next)
}

func TestSQLiteDuplicateIDRejected(t *testing.T) {
	db := openTestDB(t)
	rec := sampleRecord(1, 200)
	require.NoError(t, db.Append(rec))
	require.Error(t, db.Append(rec))

	recent, err := db.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1, "failed append rolled back")
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Append(sampleRecord(7, 200)))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	next, err := db.NextUserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, next)
}

func TestTee(t *testing.T) {
	a, b := NewMemorySink(), NewMemorySink()
	tee := NewTee(a, nil, b)
	assert.Equal(t, 2, tee.Len())

	require.NoError(t, tee.Append(sampleRecord(1, 200)))
	assert.Len(t, a.Records(), 1)
	assert.Len(t, b.Records(), 1)

	require.NoError(t, tee.DeleteLast())
	assert.Empty(t, a.Records())
	assert.Empty(t, b.Records())
}

func TestTeeUndoesEarlierMembersOnFailure(t *testing.T) {
	a, b, c := NewMemorySink(), NewMemorySink(), NewMemorySink()
	tee := NewTee(a, b, c)
	require.NoError(t, tee.Append(sampleRecord(1, 200)))

	b.AppendError = errors.New("disk full")
	err := tee.Append(sampleRecord(2, 200))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "disk full"))

	require.Len(t, a.Records(), 1, "earlier member rolled back")
	assert.Equal(t, 1, a.Records()[0].UserID)
	assert.Len(t, b.Records(), 1)
	assert.Len(t, c.Records(), 1, "later member not written")
}

func TestTeeFileUndoneWhenSQLiteFails(t *testing.T) {
	file, err := OpenFile(filepath.Join(t.TempDir(), "results.csv"))
	require.NoError(t, err)
	db := openTestDB(t)

	tee := NewTee(file, db)
	first := sampleRecord(1, 200)
	require.NoError(t, tee.Append(first))
	require.Error(t, tee.Append(first), "duplicate uuid rejected by SQLite")

	lines, err := file.Lines()
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestTeeWithFileAndSQLite(t *testing.T) {
	dir := t.TempDir()
	file, err := OpenFile(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	db := openTestDB(t)

	tee := NewTee(file, db)
	require.NoError(t, tee.Append(sampleRecord(1, 200, 210)))

	lines, err := file.Lines()
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	recent, err := db.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestMemorySinkRecent(t *testing.T) {
	m := NewMemorySink()
	for i := 1; i <= 3; i++ {
		require.NoError(t, m.Append(sampleRecord(i, 200)))
	}

	recent, err := m.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].UserID)
	assert.Equal(t, 2, recent[1].UserID)
}
