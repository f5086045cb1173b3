// Package ofx reads bank and credit card statements so their transactions
// can be categorized.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags that lost their closing bracket, alone on a line.
	unclosedTagRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	// Leading "MM/DD " date stamps some banks prepend to descriptions.
	datePrefixRegex = regexp.MustCompile(`^\d{2}/\d{2}\s+`)
)

var purchasePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

var genericNames = map[string]bool{
	"DEBIT":           true,
	"CREDIT":          true,
	"PURCHASE":        true,
	"PAYMENT":         true,
	"POS TRANSACTION": true,
	"CARD PURCHASE":   true,
}

// Parser reads OFX/QFX statements.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens path and parses it.
func (p *Parser) ParseFile(ctx context.Context, path string) ([]model.Transaction, error) {
	f, err := os.Open(path) //nolint:gosec // statement path is chosen by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open OFX file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Failed to close OFX file", "path", path, "error", cerr)
		}
	}()
	return p.Parse(ctx, f)
}

// Parse returns every bank and credit card transaction in the statement.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.Transaction
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		transactions = appendTransactions(transactions, stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID))
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmts++
		transactions = appendTransactions(transactions, stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID))
	}

	slog.Info("Parsed OFX file",
		"transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

// preprocess fixes formatting issues that ofxgo rejects.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagRegex.ReplaceAllString(content, "$1>")
}

func appendTransactions(dst []model.Transaction, src []ofxgo.Transaction, accountID string) []model.Transaction {
	for _, tx := range src {
		dst = append(dst, convert(tx, accountID))
	}
	return dst
}

// convert maps a statement line onto a Transaction. OFX signs debits
// negative; the sign becomes the transaction type.
func convert(tx ofxgo.Transaction, accountID string) model.Transaction {
	amount, _ := tx.TrnAmt.Float64()
	typ := model.TypeExpense
	if amount > 0 {
		typ = model.TypeIncome
	}
	if amount < 0 {
		amount = -amount
	}

	return model.Transaction{
		ID:        string(tx.FiTID),
		Date:      tx.DtPosted.Time,
		Name:      strings.TrimSpace(string(tx.Name)),
		Payee:     payeeName(tx),
		AccountID: accountID,
		Type:      typ,
		Amount:    amount,
	}
}

// payeeName extracts the cleanest merchant name the statement offers.
func payeeName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && genericNames[strings.ToUpper(name)] {
		name = strings.TrimSpace(string(tx.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range purchasePrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	return strings.TrimSpace(datePrefixRegex.ReplaceAllString(name, ""))
}
