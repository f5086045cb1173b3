// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"strings"
)

// TransactionType indicates whether a record is money going out or coming in.
type TransactionType string

const (
	// TypeExpense is the default type for training records.
	TypeExpense TransactionType = "EXPENSE"
	// TypeIncome marks money coming in.
	TypeIncome TransactionType = "INCOME"
)

// Record validation errors.
var (
	ErrEmptyTitle    = errors.New("record title is empty")
	ErrEmptyCategory = errors.New("record category is empty")
)

// Record is a cleaned, labeled expense used for training and evaluation.
type Record struct {
	Title    string
	Type     TransactionType
	Category string
	Amount   float64
}

// Validate checks the invariants a cleaned record must hold.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Titles returns the title of every record, in order.
func Titles(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Title
	}
	return out
}

// Amounts returns the amount of every record, in order.
func Amounts(records []Record) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Amount
	}
	return out
}

// Categories returns the label of every record, in order.
func Categories(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Category
	}
	return out
}
