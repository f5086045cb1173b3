// Package ledger records expenses and fills in missing categories with the
// trained model.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/dataset"
	"github.com/Veraticus/spice-categorizer/internal/feature"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/storage"
)

// Ledger errors.
var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInvalidType          = errors.New("type must be EXPENSE or INCOME")
	ErrPredictorUnavailable = errors.New("no model loaded to predict a category")
)

// Predictor assigns a category to a normalized title.
type Predictor interface {
	Predict(title string, amount float64) (string, error)
}

// Store persists expenses.
type Store interface {
	AddExpense(ctx context.Context, e *model.Expense) error
	GetExpense(ctx context.Context, id int64) (*model.Expense, error)
	ListExpenses(ctx context.Context, filter storage.ExpenseFilter) ([]model.Expense, error)
	UpdateExpense(ctx context.Context, e *model.Expense) error
	DeleteExpense(ctx context.Context, id int64) error
}

// Entry is a new expense as entered by the user. A blank Category is
// predicted; a zero Date means today.
type Entry struct {
	Date        time.Time
	Title       string
	Description string
	Category    string
	Type        model.TransactionType
	Amount      float64
}

// Changes lists the fields an update replaces. Nil fields are kept.
type Changes struct {
	Date        *time.Time
	Title       *string
	Description *string
	Category    *string
	Type        *model.TransactionType
	Amount      *float64
}

// Ledger adds, lists, updates and deletes expenses.
type Ledger struct {
	store     Store
	predictor Predictor
	now       func() time.Time
}

// New creates a ledger. predictor may be nil when every entry carries its
// own category.
func New(store Store, predictor Predictor) *Ledger {
	return &Ledger{store: store, predictor: predictor, now: time.Now}
}

// ParseType reads a transaction type, defaulting to EXPENSE when blank.
func ParseType(s string) (model.TransactionType, error) {
	t := dataset.NormalizeType(s)
	if t != model.TypeExpense && t != model.TypeIncome {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Add validates and stores an entry, predicting its category when none was
// given.
func (l *Ledger) Add(ctx context.Context, entry Entry) (*model.Expense, error) {
	e := &model.Expense{
		Date:        entry.Date,
		Title:       strings.TrimSpace(entry.Title),
		Description: strings.TrimSpace(entry.Description),
		Category:    dataset.TitleCase(strings.TrimSpace(entry.Category)),
		Type:        entry.Type,
		Amount:      entry.Amount,
	}
	if e.Date.IsZero() {
		y, m, d := l.now().Date()
		e.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	if e.Type == "" {
		e.Type = model.TypeExpense
	}
	if err := validate(e); err != nil {
		return nil, err
	}

	if e.Category == "" {
		if err := l.predict(e); err != nil {
			return nil, err
		}
	}

	if err := l.store.AddExpense(ctx, e); err != nil {
		return nil, err
	}
	slog.Info("Expense added", "id", e.ID, "category", e.Category, "predicted", e.Predicted)
	return e, nil
}

// List returns expenses matching filter.
func (l *Ledger) List(ctx context.Context, filter storage.ExpenseFilter) ([]model.Expense, error) {
	return l.store.ListExpenses(ctx, filter)
}

// Update applies changes to a stored expense. An explicit category is kept
// as given; a predicted one is predicted again when the title or amount
// changed and a model is loaded.
func (l *Ledger) Update(ctx context.Context, id int64, c Changes) (*model.Expense, error) {
	e, err := l.store.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	repredict := false
	if c.Title != nil {
		e.Title = strings.TrimSpace(*c.Title)
		repredict = true
	}
	if c.Amount != nil {
		e.Amount = *c.Amount
		repredict = true
	}
	if c.Description != nil {
		e.Description = strings.TrimSpace(*c.Description)
	}
	if c.Date != nil {
		e.Date = *c.Date
	}
	if c.Type != nil {
		e.Type = *c.Type
	}
	if err := validate(e); err != nil {
		return nil, err
	}

	switch {
	case c.Category != nil && strings.TrimSpace(*c.Category) != "":
		e.Category = dataset.TitleCase(strings.TrimSpace(*c.Category))
		e.Predicted = false
	case c.Category != nil:
		if err := l.predict(e); err != nil {
			return nil, err
		}
	case repredict && e.Predicted && l.predictor != nil:
		if err := l.predict(e); err != nil {
			return nil, err
		}
	}

	if err := l.store.UpdateExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes an expense.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	return l.store.DeleteExpense(ctx, id)
}

func (l *Ledger) predict(e *model.Expense) error {
	if l.predictor == nil {
		return ErrPredictorUnavailable
	}
	category, err := l.predictor.Predict(feature.Normalize(e.Title), e.Amount)
	if err != nil {
		return fmt.Errorf("failed to predict category: %w", err)
	}
	e.Category = category
	e.Predicted = true
	return nil
}

func validate(e *model.Expense) error {
	if feature.Normalize(e.Title) == "" {
		return common.ErrEmptyTitle
	}
	if e.Amount <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, e.Amount)
	}
	if e.Type != model.TypeExpense && e.Type != model.TypeIncome {
		return fmt.Errorf("%w: %q", ErrInvalidType, e.Type)
	}
	return nil
}
