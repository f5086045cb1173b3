// Package testutil provides shared fixtures for tests across the module.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/spice-categorizer/internal/feature"
	"github.com/Veraticus/spice-categorizer/internal/forest"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// ExpensesCSV is a small labeled dataset with a skewed category mix.
const ExpensesCSV = `title,amount,type,category
starbucks coffee,4.5,expense,food
coffee beans,12,expense,food
morning coffee,3.75,expense,food
pizza dinner,22,expense,food
grocery store,85,expense,food
lunch sandwich,9,expense,food
coffee and bagel,7,expense,food
sushi dinner,40,expense,food
uber ride,25,expense,transport
uber to airport,48,expense,transport
train ticket,15,expense,transport
bus pass,60,expense,transport
monthly rent,1200,expense,housing
rent payment,1150,expense,housing
movie tickets,30,expense,entertainment
concert tickets,90,expense,entertainment
,10,expense,food
gas station,,expense,transport
`

// Records returns the cleaned form of ExpensesCSV.
func Records() []model.Record {
	rows := []struct {
		title    string
		category string
		amount   float64
	}{
		{"starbucks coffee", "Food", 4.5},
		{"coffee beans", "Food", 12},
		{"morning coffee", "Food", 3.75},
		{"pizza dinner", "Food", 22},
		{"grocery store", "Food", 85},
		{"lunch sandwich", "Food", 9},
		{"coffee and bagel", "Food", 7},
		{"sushi dinner", "Food", 40},
		{"uber ride", "Transport", 25},
		{"uber to airport", "Transport", 48},
		{"train ticket", "Transport", 15},
		{"bus pass", "Transport", 60},
		{"monthly rent", "Housing", 1200},
		{"rent payment", "Housing", 1150},
		{"movie tickets", "Entertainment", 30},
		{"concert tickets", "Entertainment", 90},
	}
	out := make([]model.Record, len(rows))
	for i, r := range rows {
		out[i] = model.Record{Title: r.title, Amount: r.amount, Type: model.TypeExpense, Category: r.category}
	}
	return out
}

// Categories is the sorted label set of Records.
func Categories() []string {
	return []string{"Entertainment", "Food", "Housing", "Transport"}
}

// WriteDataset writes ExpensesCSV into a temp dir and returns its path.
func WriteDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "expenses.csv")
	if err := os.WriteFile(path, []byte(strings.TrimLeft(ExpensesCSV, "\n")), 0o600); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}
	return path
}

// FitModel fits an encoder and a small forest on every record.
func FitModel(t *testing.T, records []model.Record) (*feature.Encoder, *forest.Forest) {
	t.Helper()

	enc := feature.NewEncoder(feature.NewTfidfVectorizer())
	if err := enc.Fit(model.Titles(records)); err != nil {
		t.Fatalf("failed to fit encoder: %v", err)
	}
	X, err := enc.Encode(model.Titles(records), model.Amounts(records))
	if err != nil {
		t.Fatalf("failed to encode records: %v", err)
	}
	f := forest.New(forest.WithTrees(30), forest.WithSeed(42))
	if err := f.Fit(context.Background(), X, model.Categories(records)); err != nil {
		t.Fatalf("failed to fit forest: %v", err)
	}
	return enc, f
}
