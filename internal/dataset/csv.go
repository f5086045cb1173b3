// Package dataset loads, cleans and splits labeled expense records.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column names the training CSV must provide.
const (
	ColumnTitle    = "title"
	ColumnAmount   = "amount"
	ColumnType     = "type"
	ColumnCategory = "category"
)

var requiredColumns = []string{ColumnTitle, ColumnAmount, ColumnType, ColumnCategory}

// RawRecord is a CSV row before cleaning. Values are kept verbatim.
type RawRecord struct {
	Title    string
	Amount   string
	Type     string
	Category string
	Line     int
}

// LoadCSV reads labeled rows from r. The header must contain title, amount,
// type and category in any order and case; other columns are ignored.
func LoadCSV(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read header: file is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := col[name]; !dup {
			col[name] = i
		}
	}
	for _, k := range requiredColumns {
		if _, ok := col[k]; !ok {
			return nil, fmt.Errorf("missing column: %s", k)
		}
	}

	field := func(rec []string, name string) string {
		i := col[name]
		if i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var out []RawRecord
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		out = append(out, RawRecord{
			Title:    field(rec, ColumnTitle),
			Amount:   field(rec, ColumnAmount),
			Type:     field(rec, ColumnType),
			Category: field(rec, ColumnCategory),
			Line:     line,
		})
	}
	return out, nil
}

// LoadFile opens path and reads it with LoadCSV.
func LoadFile(path string) ([]RawRecord, error) {
	f, err := os.Open(path) //nolint:gosec // dataset path is user supplied on purpose
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	return records, nil
}
