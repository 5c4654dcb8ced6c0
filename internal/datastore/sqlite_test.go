package datastore

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/evaluation"
	"github.com/framegrade/framegrade/internal/tally"
)

type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (o *opLog) RecordStoreOperation(operation string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.ops = append(o.ops, operation+":"+status)
}

func testReport(runID, source string, started time.Time, counts ...int) *evaluation.Report {
	classes := []string{"Good", "Underexposed", "Overexposed"}
	total := 0
	for _, c := range counts {
		total += c
	}
	pct := make([]float64, len(counts))
	for i, c := range counts {
		pct[i] = 100 * float64(c) / float64(total)
	}
	return &evaluation.Report{
		RunID:        runID,
		Source:       source,
		Classes:      classes,
		Counts:       counts,
		Distribution: tally.Distribution{Classes: classes, Percent: pct, Total: total},
		Frames:       total,
		Batches:      3,
		BatchSize:    4,
		Started:      started,
		Elapsed:      1500 * time.Millisecond,
	}
}

func openStore(t *testing.T, observer Observer) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "framegrade.db"), observer)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestSaveAndGet(t *testing.T) {
	t.Parallel()

	ops := &opLog{}
	store := openStore(t, ops)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(testReport("run-1", "a.mp4", started, 7, 2, 1)))

	got, err := store.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "a.mp4", got.Source)
	assert.Equal(t, 10, got.Frames)
	assert.Equal(t, "Good", got.Dominant)
	assert.Equal(t, int64(1500), got.ElapsedMs)
	require.Len(t, got.Shares, 3)
	assert.Equal(t, "Underexposed", got.Shares[1].Class)
	assert.Equal(t, 2, got.Shares[1].Count)
	assert.InDelta(t, 70.0, got.Distribution()["Good"], 1e-9)

	_, err = store.Get("missing")
	assert.True(t, errors.IsNotFound(err))

	assert.Equal(t, []string{"save:ok", "get:ok", "get:error"}, ops.ops)
}

func TestSaveDuplicateRunID(t *testing.T) {
	t.Parallel()

	store := openStore(t, nil)
	r := testReport("dup", "a.mp4", time.Now(), 1, 1, 1)
	require.NoError(t, store.Save(r))

	err := store.Save(r)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestList(t *testing.T) {
	t.Parallel()

	store := openStore(t, nil)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		source := "a.mp4"
		if i%2 == 1 {
			source = "b.mp4"
		}
		require.NoError(t, store.Save(testReport(fmt.Sprintf("run-%d", i), source, base.Add(time.Duration(i)*time.Hour), 1, 0, 0)))
	}

	all, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "run-4", all[0].RunID, "newest first")
	assert.Len(t, all[0].Shares, 3)

	onlyA, err := store.List("a.mp4", 0)
	require.NoError(t, err)
	assert.Len(t, onlyA, 3)

	limited, err := store.List("", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStoreNotOpen(t *testing.T) {
	t.Parallel()

	store := NewSQLiteStore("unused.db", nil)
	assert.True(t, errors.IsCategory(store.Save(testReport("x", "x", time.Now(), 1)), errors.CategoryDatabase))
	_, err := store.List("", 0)
	assert.Error(t, err)
	assert.NoError(t, store.Close())

	assert.Error(t, NewSQLiteStore("", nil).Open())
}
