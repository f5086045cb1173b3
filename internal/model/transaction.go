package model

import (
	"strings"
	"time"
)

// Transaction is a single statement line imported from a bank file.
// It carries no category; one is predicted for it.
type Transaction struct {
	Date      time.Time
	ID        string
	Name      string // Raw description from the statement
	Payee     string // Cleaned merchant name, when available
	AccountID string
	Type      TransactionType
	Amount    float64 // Always positive; Type carries the direction
}

// Title returns the text used to categorize the transaction.
func (t Transaction) Title() string {
	if strings.TrimSpace(t.Payee) != "" {
		return t.Payee
	}
	return t.Name
}
