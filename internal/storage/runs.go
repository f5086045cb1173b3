package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// RunRecord is a stored training run with its evaluation.
type RunRecord struct {
	Evaluation model.Evaluation
	Run        model.TrainingRun
}

// SaveRun stores a training run and its per-class metrics atomically.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.TrainingRun, eval *model.Evaluation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	if err := validateEvaluation(eval); err != nil {
		return err
	}
	if eval == nil {
		eval = &model.Evaluation{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO training_runs (
			id, started_at, duration_ms, dataset_path, artifact_dir, seed,
			train_rows, test_rows, dropped_rows, vocabulary_size, trees,
			accuracy, macro_precision, macro_recall, macro_f1
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.Duration.Milliseconds(), run.DatasetPath, run.ArtifactDir, run.Seed,
		run.TrainRows, run.TestRows, run.DroppedRows, run.VocabularySize, run.Trees,
		eval.Accuracy, eval.MacroPrecision, eval.MacroRecall, eval.MacroF1,
	)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_class_metrics (run_id, category, precision, recall, f1, support)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare metrics insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range eval.Classes {
		if _, err := stmt.ExecContext(ctx, run.ID, c.Category, c.Precision, c.Recall, c.F1, c.Support); err != nil {
			return fmt.Errorf("failed to save metrics for %s: %w", c.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit training run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, duration_ms, dataset_path, artifact_dir, seed,
	train_rows, test_rows, dropped_rows, vocabulary_size, trees,
	accuracy, macro_precision, macro_recall, macro_f1`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var durationMS int64
	err := row.Scan(
		&rec.Run.ID, &rec.Run.StartedAt, &durationMS, &rec.Run.DatasetPath, &rec.Run.ArtifactDir, &rec.Run.Seed,
		&rec.Run.TrainRows, &rec.Run.TestRows, &rec.Run.DroppedRows, &rec.Run.VocabularySize, &rec.Run.Trees,
		&rec.Evaluation.Accuracy, &rec.Evaluation.MacroPrecision, &rec.Evaluation.MacroRecall, &rec.Evaluation.MacroF1,
	)
	if err != nil {
		return rec, err
	}
	rec.Run.Duration = time.Duration(durationMS) * time.Millisecond
	rec.Run.Accuracy = rec.Evaluation.Accuracy
	rec.Run.MacroF1 = rec.Evaluation.MacroF1
	rec.Evaluation.Samples = rec.Run.TestRows
	return rec, nil
}

// ListRuns returns the most recent runs first, without per-class metrics.
// A limit below 1 returns every run.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM training_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate training runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its per-class metrics.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	rec, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM training_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("training run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get training run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, precision, recall, f1, support
		FROM run_class_metrics WHERE run_id = ? ORDER BY category`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var c model.ClassMetrics
		if err := rows.Scan(&c.Category, &c.Precision, &c.Recall, &c.F1, &c.Support); err != nil {
			return nil, fmt.Errorf("failed to scan run metrics: %w", err)
		}
		rec.Evaluation.Classes = append(rec.Evaluation.Classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run metrics: %w", err)
	}
	return &rec, nil
}

// LatestRun returns the most recently started run.
func (s *SQLiteStorage) LatestRun(ctx context.Context) (*RunRecord, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no training runs: %w", common.ErrNotFound)
	}
	return s.GetRun(ctx, runs[0].Run.ID)
}

// DeleteRun removes a run and its metrics.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM training_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete training run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("training run %s: %w", id, common.ErrNotFound)
	}
	return nil
}
