package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

func TestLoadCSV(t *testing.T) {
	input := "Category,Title,extra,AMOUNT,type\n" +
		"transport,uber ride,x,25,expense\n" +
		"food,\"Starbucks, Coffee\",y,4.50,\n" +
		"short,row\n"

	rows, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, RawRecord{Title: "uber ride", Amount: "25", Type: "expense", Category: "transport", Line: 2}, rows[0])
	assert.Equal(t, "Starbucks, Coffee", rows[1].Title)
	assert.Empty(t, rows[1].Type)
	assert.Equal(t, "row", rows[2].Title)
	assert.Empty(t, rows[2].Amount)
}

func TestLoadCSV_Errors(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = LoadCSV(strings.NewReader("title,amount,category\nx,1,y\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column: type")
}

func TestLoadCSV_BOM(t *testing.T) {
	rows, err := LoadCSV(strings.NewReader("\ufefftitle,amount,type,category\ncoffee,3,expense,food\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "coffee", rows[0].Title)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,amount,type,category\nrent,1200,expense,housing\n"), 0o600))

	rows, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	raw := []RawRecord{
		{Title: "uber ride", Amount: "25", Type: "expense", Category: "transport"},
		{Title: "  Starbucks COFFEE ", Amount: "abc", Type: "Expense", Category: "FOOD and drink"},
		{Title: "   ", Amount: "3", Type: "expense", Category: "food"},
		{Title: "", Amount: "3", Type: "expense", Category: "food"},
		{Title: "salary", Amount: "3000", Type: "NaN", Category: "income"},
		{Title: "gift", Amount: "20", Type: "income", Category: ""},
		{Title: "bus", Amount: "2", Type: " ", Category: "transport"},
	}

	records, stats := Clean(raw)

	assert.Equal(t, []model.Record{
		{Title: "uber ride", Amount: 25.0, Type: model.TypeExpense, Category: "Transport"},
		{Title: "starbucks coffee", Amount: 0, Type: model.TypeExpense, Category: "Food And Drink"},
		{Title: "bus", Amount: 2, Type: model.TypeExpense, Category: "Transport"},
	}, records)
	assert.Equal(t, CleanStats{Kept: 3, DroppedMissing: 3, DroppedBlank: 1, AmountCoerced: 1}, stats)
	assert.Equal(t, 4, stats.Dropped())

	for _, r := range records {
		assert.NoError(t, r.Validate())
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"transport":      "Transport",
		"FOOD":           "Food",
		"bills & utils":  "Bills & Utils",
		"health-care":    "Health-Care",
		"kids' stuff":    "Kids' Stuff",
		"e2e":            "E2E",
		"":               "",
		"élan vital":     "Élan Vital",
		"already Titled": "Already Titled",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, TitleCase(in))
		})
	}
}

func TestParseAmount(t *testing.T) {
	v, ok := ParseAmount(" 12.5 ")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	for _, bad := range []string{"", "$3", "Inf", "1,000"} {
		v, ok = ParseAmount(bad)
		assert.False(t, ok, bad)
		assert.Zero(t, v, bad)
	}
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, model.TypeExpense, NormalizeType(""))
	assert.Equal(t, model.TypeIncome, NormalizeType(" income "))
	assert.Equal(t, model.TransactionType("TRANSFER"), NormalizeType("transfer"))
}

func records(n int) []model.Record {
	out := make([]model.Record, n)
	for i := range out {
		out[i] = model.Record{Title: fmt.Sprintf("item %d", i), Category: "Misc"}
	}
	return out
}

func TestSplit(t *testing.T) {
	data := records(10)

	train, test := Split(data, DefaultTestSize, 42)
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)

	seen := make(map[string]bool)
	for _, r := range append(append([]model.Record{}, train...), test...) {
		assert.False(t, seen[r.Title], "duplicate %s", r.Title)
		seen[r.Title] = true
	}
	assert.Len(t, seen, 10)

	train2, test2 := Split(data, DefaultTestSize, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestSplit_Sizes(t *testing.T) {
	tests := []struct {
		n         int
		testSize  float64
		wantTrain int
		wantTest  int
	}{
		{n: 11, testSize: 0.2, wantTrain: 8, wantTest: 3},
		{n: 1, testSize: 0.2, wantTrain: 0, wantTest: 1},
		{n: 2, testSize: 0.9, wantTrain: 1, wantTest: 1},
		{n: 5, testSize: 0, wantTrain: 5, wantTest: 0},
		{n: 0, testSize: 0.2, wantTrain: 0, wantTest: 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%.1f", tt.n, tt.testSize), func(t *testing.T) {
			train, test := Split(records(tt.n), tt.testSize, 1)
			assert.Len(t, train, tt.wantTrain)
			assert.Len(t, test, tt.wantTest)
		})
	}
}
