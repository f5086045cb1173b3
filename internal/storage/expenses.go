package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// ExpenseFilter narrows ListExpenses. Zero fields do not filter.
type ExpenseFilter struct {
	Since *time.Time
	Until *time.Time
	Type  model.TransactionType
	Limit int
}

const expenseColumns = `id, title, description, amount, date, transaction_type,
	category, predicted, created_at, updated_at`

func scanExpense(row scanner) (model.Expense, error) {
	var e model.Expense
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Amount, &e.Date, &e.Type,
		&e.Category, &e.Predicted, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// AddExpense inserts an expense and sets its ID and timestamps.
func (s *SQLiteStorage) AddExpense(ctx context.Context, e *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(e); err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (
			title, description, amount, date, transaction_type,
			category, predicted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.Amount, e.Date.UTC(), string(e.Type),
		e.Category, e.Predicted, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read expense id: %w", err)
	}

	e.ID = id
	e.Date = e.Date.UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

// GetExpense returns one expense.
func (s *SQLiteStorage) GetExpense(ctx context.Context, id int64) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	e, err := scanExpense(s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return &e, nil
}

// ListExpenses returns matching expenses, newest date first.
func (s *SQLiteStorage) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var where []string
	var args []any
	if filter.Type != "" {
		where = append(where, "transaction_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Since != nil {
		where = append(where, "date >= ?")
		args = append(args, filter.Since.UTC())
	}
	if filter.Until != nil {
		where = append(where, "date <= ?")
		args = append(args, filter.Until.UTC())
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := filter.Limit
	if limit < 1 {
		limit = -1
	}
	query += ` ORDER BY date DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var expenses []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense overwrites every field of an existing expense.
func (s *SQLiteStorage) UpdateExpense(ctx context.Context, e *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(e); err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses SET
			title = ?, description = ?, amount = ?, date = ?, transaction_type = ?,
			category = ?, predicted = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.Description, e.Amount, e.Date.UTC(), string(e.Type),
		e.Category, e.Predicted, now, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if err := expectOneRow(res, fmt.Sprintf("expense %d", e.ID)); err != nil {
		return err
	}
	e.Date = e.Date.UTC()
	e.UpdatedAt = now
	return nil
}

// DeleteExpense removes an expense.
func (s *SQLiteStorage) DeleteExpense(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("expense %d", id))
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}
