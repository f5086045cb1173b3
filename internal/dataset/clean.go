package dataset

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/Veraticus/spice-categorizer/internal/feature"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// CleanStats counts what cleaning did to a dataset.
type CleanStats struct {
	Kept           int
	DroppedMissing int
	DroppedBlank   int
	AmountCoerced  int
}

// Dropped is the total number of discarded rows.
func (s CleanStats) Dropped() int {
	return s.DroppedMissing + s.DroppedBlank
}

// Clean drops rows missing any required value and normalizes the rest:
// lower-cased trimmed title, numeric amount (0 when unparseable), upper-cased
// type (EXPENSE when blank) and title-cased category.
func Clean(raw []RawRecord) ([]model.Record, CleanStats) {
	var stats CleanStats
	out := make([]model.Record, 0, len(raw))

	for _, r := range raw {
		if isMissing(r.Title) || isMissing(r.Amount) || isMissing(r.Type) || isMissing(r.Category) {
			stats.DroppedMissing++
			slog.Debug("Dropping row with missing values", "line", r.Line)
			continue
		}

		rec := model.Record{
			Title:    feature.Normalize(r.Title),
			Type:     NormalizeType(r.Type),
			Category: TitleCase(strings.TrimSpace(r.Category)),
		}
		if err := rec.Validate(); err != nil {
			stats.DroppedBlank++
			slog.Debug("Dropping blank row", "line", r.Line, "error", err)
			continue
		}

		amount, ok := ParseAmount(r.Amount)
		if !ok {
			stats.AmountCoerced++
		}
		rec.Amount = amount

		out = append(out, rec)
	}

	stats.Kept = len(out)
	return out, stats
}

// nullMarkers are cell values read as null rather than as text.
var nullMarkers = map[string]bool{
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

func isMissing(s string) bool {
	return s == "" || nullMarkers[strings.ToLower(strings.TrimSpace(s))]
}

// ParseAmount parses a numeric amount. Unparseable input yields 0 and false.
func ParseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NormalizeType upper-cases a transaction type, defaulting to EXPENSE.
func NormalizeType(s string) model.TransactionType {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return model.TypeExpense
	}
	return model.TransactionType(s)
}

// TitleCase upper-cases the first letter of every word and lower-cases the
// rest. Any non-letter starts a new word.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			b.WriteRune(unicode.ToTitle(r))
		case isLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}
