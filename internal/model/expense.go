package model

import "time"

// Expense is a ledger entry. Predicted is set when Category came from the
// model rather than from the user.
type Expense struct {
	Date        time.Time       `yaml:"date"`
	CreatedAt   time.Time       `yaml:"created_at"`
	UpdatedAt   time.Time       `yaml:"updated_at"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description,omitempty"`
	Category    string          `yaml:"category"`
	Type        TransactionType `yaml:"type"`
	ID          int64           `yaml:"id"`
	Amount      float64         `yaml:"amount"`
	Predicted   bool            `yaml:"predicted"`
}
