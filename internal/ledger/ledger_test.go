// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// Deterministic, strictly increasing clock.
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func record(t *testing.T, r *Run, sts ...types.Status) {
	t.Helper()
	for _, st := range sts {
		require.NoError(t, r.Record(context.Background(), st))
	}
}

// --- tests ---

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.BeginRun(context.Background(), RunInfo{Source: "a.bib", OutputDir: "out"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestBeginRunAndFinish(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	r, err := s.BeginRun(ctx, RunInfo{Source: "refs.bib", OutputDir: "papers", Overwrite: true})
	require.NoError(t, err)
	assert.Len(t, r.ID, 36, "run ID is a UUID")

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].FinishedAt)

	require.NoError(t, r.Finish(ctx, 2, 1, 3))

	runs, err = s.Runs(ctx, 10)
	require.NoError(t, err)
	got := runs[0]
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "refs.bib", got.Source)
	assert.Equal(t, "papers", got.OutputDir)
	assert.True(t, got.Overwrite)
	assert.Equal(t, 2, got.Written)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, 3, got.Failed)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.After(got.StartedAt))
}

func TestRecordAndHistory(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	r, err := s.BeginRun(ctx, RunInfo{Source: "refs.bib", OutputDir: "out"})
	require.NoError(t, err)

	record(t, r,
		types.Status{Key: "smith", State: types.StateWritten, Source: types.SourceArxiv,
			URL: "https://arxiv.org/pdf/2101.00001", Path: "out/Smith_2021.pdf"},
		types.Status{Key: "jones", State: types.StateFailed, Reason: "all candidates failed"},
		types.Status{Key: "lee", State: types.StateSkipped, Source: types.SourceArxiv, Path: "out/Lee_2020.pdf"},
	)

	all, err := s.History(ctx, HistoryOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "lee", all[0].Key, "newest first")
	assert.Empty(t, all[0].Source, "source only recorded for written entries")

	smith, err := s.History(ctx, HistoryOptions{Key: "smith"})
	require.NoError(t, err)
	require.Len(t, smith, 1)
	assert.Equal(t, r.ID, smith[0].RunID)
	assert.Equal(t, "written", smith[0].State)
	assert.Equal(t, "arxiv", smith[0].Source)
	assert.Equal(t, "https://arxiv.org/pdf/2101.00001", smith[0].URL)
	assert.Equal(t, "out/Smith_2021.pdf", smith[0].Path)
	assert.False(t, smith[0].RecordedAt.IsZero())

	failed, err := s.History(ctx, HistoryOptions{State: "failed"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "jones", failed[0].Key)
	assert.Equal(t, "all candidates failed", failed[0].Reason)

	limited, err := s.History(ctx, HistoryOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	first, err := s.BeginRun(ctx, RunInfo{Source: "a.bib", OutputDir: "."})
	require.NoError(t, err)
	second, err := s.BeginRun(ctx, RunInfo{Source: "b.bib", OutputDir: "."})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	one, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestFailedKeys_LatestOutcomeWins(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	r1, err := s.BeginRun(ctx, RunInfo{Source: "refs.bib", OutputDir: "out"})
	require.NoError(t, err)
	record(t, r1,
		types.Status{Key: "a", State: types.StateFailed, Reason: "x"},
		types.Status{Key: "b", State: types.StateFailed, Reason: "x"},
		types.Status{Key: "c", State: types.StateWritten},
	)

	r2, err := s.BeginRun(ctx, RunInfo{Source: "refs.bib", OutputDir: "out"})
	require.NoError(t, err)
	record(t, r2,
		types.Status{Key: "a", State: types.StateWritten},
		types.Status{Key: "c", State: types.StateFailed, Reason: "y"},
	)

	keys, err := s.FailedKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keys)
}

func TestFailedKeys_Empty(t *testing.T) {
	keys, err := testStore(t).FailedKeys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}
