package ofx

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/testutil"
)

func TestParse_Statement(t *testing.T) {
	txns, err := NewParser().Parse(context.Background(), strings.NewReader(testutil.StatementOFX))
	require.NoError(t, err)
	require.Len(t, txns, 4)

	coffee := txns[0]
	assert.Equal(t, "B001", coffee.ID)
	assert.Equal(t, "POS PURCHASE STARBUCKS COFFEE", coffee.Name)
	assert.Equal(t, "STARBUCKS COFFEE", coffee.Payee)
	assert.Equal(t, "STARBUCKS COFFEE", coffee.Title())
	assert.InDelta(t, 4.75, coffee.Amount, 1e-9)
	assert.Equal(t, model.TypeExpense, coffee.Type)
	assert.Equal(t, "9876543210", coffee.AccountID)
	assert.Equal(t, 2026, coffee.Date.Year())
	assert.Equal(t, time.February, coffee.Date.Month())
	assert.Equal(t, 3, coffee.Date.Day())

	payroll := txns[1]
	assert.Equal(t, model.TypeIncome, payroll.Type)
	assert.InDelta(t, 2500, payroll.Amount, 1e-9)

	rent := txns[2]
	assert.Equal(t, "DEBIT", rent.Name)
	assert.Equal(t, "MONTHLY RENT", rent.Payee)

	uber := txns[3]
	assert.Equal(t, "4111111111111111", uber.AccountID)
	assert.Equal(t, "UBER TRIP", uber.Title())
	assert.InDelta(t, 23.40, uber.Amount, 1e-9)
}

func TestParse_Invalid(t *testing.T) {
	for name, data := range map[string]string{
		"garbage": "not valid OFX",
		"empty":   "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewParser().Parse(context.Background(), strings.NewReader(data))
			assert.Error(t, err)
		})
	}
}

func TestParse_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewParser().Parse(ctx, strings.NewReader(testutil.StatementOFX))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.ofx")
	require.NoError(t, os.WriteFile(path, []byte("\n\n"+testutil.StatementOFX), 0o600))

	txns, err := NewParser().ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, txns, 4)

	_, err = NewParser().ParseFile(context.Background(), filepath.Join(t.TempDir(), "missing.ofx"))
	assert.Error(t, err)
}

func TestPreprocess(t *testing.T) {
	in := "\n  <OFX>\n<SEVERITY>Warn</SEVERITY>\n<CODE\n"
	out := preprocess(in)
	assert.True(t, strings.HasPrefix(out, "<OFX>"))
	assert.Contains(t, out, "<SEVERITY>WARN</SEVERITY>")
	assert.Contains(t, out, "<CODE>")
}

func TestPayeeName(t *testing.T) {
	tests := []struct {
		name string
		tx   ofxgo.Transaction
		want string
	}{
		{name: "pos prefix", tx: ofxgo.Transaction{Name: "POS PURCHASE STARBUCKS"}, want: "STARBUCKS"},
		{name: "debit card prefix", tx: ofxgo.Transaction{Name: "DEBIT CARD PURCHASE WHOLE FOODS"}, want: "WHOLE FOODS"},
		{name: "clean name", tx: ofxgo.Transaction{Name: "NETFLIX.COM"}, want: "NETFLIX.COM"},
		{name: "whitespace", tx: ofxgo.Transaction{Name: "  AMAZON.COM  "}, want: "AMAZON.COM"},
		{name: "date stamp", tx: ofxgo.Transaction{Name: "01/15 SHELL OIL"}, want: "SHELL OIL"},
		{name: "generic uses memo", tx: ofxgo.Transaction{Name: "PURCHASE", Memo: "TARGET STORE"}, want: "TARGET STORE"},
		{name: "payee wins", tx: ofxgo.Transaction{Name: "SQ *CAFE", Payee: &ofxgo.Payee{Name: "Corner Cafe"}}, want: "Corner Cafe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, payeeName(tt.tx))
		})
	}
}
