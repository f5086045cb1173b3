// Package storage keeps training run history and the expense ledger in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidRun     = errors.New("invalid training run")
	ErrInvalidMetrics = errors.New("invalid evaluation metrics")
	ErrInvalidExpense = errors.New("invalid expense")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks a run before it is written.
func validateRun(run *model.TrainingRun) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	if run.TrainRows < 1 || run.TestRows < 0 || run.Trees < 1 {
		return fmt.Errorf("%w: train=%d test=%d trees=%d", ErrInvalidRun, run.TrainRows, run.TestRows, run.Trees)
	}
	return nil
}

// validateEvaluation checks scores are proportions.
func validateEvaluation(eval *model.Evaluation) error {
	if eval == nil {
		return nil
	}
	scores := []float64{eval.Accuracy, eval.MacroPrecision, eval.MacroRecall, eval.MacroF1}
	for _, c := range eval.Classes {
		if strings.TrimSpace(c.Category) == "" {
			return fmt.Errorf("%w: empty category", ErrInvalidMetrics)
		}
		scores = append(scores, c.Precision, c.Recall, c.F1)
	}
	for _, v := range scores {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: score %v outside [0,1]", ErrInvalidMetrics, v)
		}
	}
	return nil
}

// validateExpense checks the fields every stored expense must have.
func validateExpense(e *model.Expense) error {
	if e == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidExpense)
	}
	if strings.TrimSpace(e.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidExpense)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidExpense)
	}
	if e.Type != model.TypeExpense && e.Type != model.TypeIncome {
		return fmt.Errorf("%w: type %q", ErrInvalidExpense, e.Type)
	}
	return nil
}
