package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testRun(id string, started time.Time) (*model.TrainingRun, *model.Evaluation) {
	run := &model.TrainingRun{
		ID:             id,
		StartedAt:      started,
		Duration:       1500 * time.Millisecond,
		DatasetPath:    "expenses.csv",
		ArtifactDir:    "/tmp/model",
		Seed:           42,
		TrainRows:      80,
		TestRows:       20,
		DroppedRows:    3,
		VocabularySize: 120,
		Trees:          200,
		Accuracy:       0.85,
		MacroF1:        0.7,
	}
	eval := &model.Evaluation{
		Samples:        20,
		Accuracy:       0.85,
		MacroPrecision: 0.75,
		MacroRecall:    0.7,
		MacroF1:        0.7,
		Classes: []model.ClassMetrics{
			{Category: "Food", Precision: 0.9, Recall: 0.9, F1: 0.9, Support: 12},
			{Category: "Transport", Precision: 0.6, Recall: 0.5, F1: 0.5, Support: 8},
		},
	}
	return run, eval
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestMigrate_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	run, eval := testRun("mem", time.Now())
	require.NoError(t, store.SaveRun(ctx, run, eval))
	got, err := store.GetRun(ctx, "mem")
	require.NoError(t, err)
	assert.Equal(t, "mem", got.Run.ID)
}

func TestSaveAndGetRun(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run, eval := testRun("run-1", started)
	require.NoError(t, store.SaveRun(ctx, run, eval))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.True(t, started.Equal(got.Run.StartedAt))
	assert.Equal(t, run.Duration, got.Run.Duration)
	assert.Equal(t, run.Seed, got.Run.Seed)
	assert.Equal(t, run.TrainRows, got.Run.TrainRows)
	assert.Equal(t, run.TestRows, got.Run.TestRows)
	assert.Equal(t, run.DroppedRows, got.Run.DroppedRows)
	assert.Equal(t, run.VocabularySize, got.Run.VocabularySize)
	assert.Equal(t, run.Trees, got.Run.Trees)
	assert.Equal(t, run.ArtifactDir, got.Run.ArtifactDir)
	assert.InDelta(t, 0.85, got.Run.Accuracy, 1e-12)
	assert.InDelta(t, 0.7, got.Run.MacroF1, 1e-12)
	assert.Equal(t, eval.Classes, got.Evaluation.Classes)
	assert.Equal(t, 20, got.Evaluation.Samples)

	// Duplicate IDs are rejected and leave no partial metrics.
	assert.Error(t, store.SaveRun(ctx, run, eval))
}

func TestSaveRun_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	run, eval := testRun("", time.Now())
	assert.ErrorIs(t, store.SaveRun(ctx, run, eval), ErrInvalidRun)

	run, _ = testRun("x", time.Now())
	run.TrainRows = 0
	assert.ErrorIs(t, store.SaveRun(ctx, run, nil), ErrInvalidRun)

	run, eval = testRun("y", time.Now())
	eval.Accuracy = 1.5
	assert.ErrorIs(t, store.SaveRun(ctx, run, eval), ErrInvalidMetrics)

	assert.ErrorIs(t, store.SaveRun(ctx, nil, nil), ErrNilParameter)

	// A run without evaluation is fine.
	run, _ = testRun("no-eval", time.Now())
	require.NoError(t, store.SaveRun(ctx, run, nil))
}

func TestListRuns(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "middle", "new"} {
		run, eval := testRun(id, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.SaveRun(ctx, run, eval))
	}

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].Run.ID)
	assert.Equal(t, "old", runs[2].Run.ID)
	assert.Empty(t, runs[0].Evaluation.Classes)

	runs, err = store.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.Run.ID)
	assert.Len(t, latest.Evaluation.Classes, 2)
}

func TestGetRun_NotFound(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.LatestRun(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetRun(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestDeleteRun(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	run, eval := testRun("doomed", time.Now())
	require.NoError(t, store.SaveRun(ctx, run, eval))
	require.NoError(t, store.DeleteRun(ctx, "doomed"))

	_, err := store.GetRun(ctx, "doomed")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, store.DeleteRun(ctx, "doomed"), common.ErrNotFound)

	var orphans int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_class_metrics`).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.ErrorIs(t, err, ErrEmptyString)
}
