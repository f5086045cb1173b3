package feature

import "fmt"

// AppendAmount concatenates one amount column to every row. A nil amounts
// slice means the amounts are unknown and every row gets 0.
func AppendAmount(rows []SparseVector, amounts []float64) ([]SparseVector, error) {
	if amounts != nil && len(amounts) != len(rows) {
		return nil, fmt.Errorf("got %d amounts for %d rows", len(amounts), len(rows))
	}
	out := make([]SparseVector, len(rows))
	for i, row := range rows {
		var amount float64
		if amounts != nil {
			amount = amounts[i]
		}
		out[i] = appendColumn(row, amount)
	}
	return out, nil
}

func appendColumn(row SparseVector, value float64) SparseVector {
	next := SparseVector{
		Dim:     row.Dim + 1,
		Indices: append(make([]int, 0, len(row.Indices)+1), row.Indices...),
		Values:  append(make([]float64, 0, len(row.Values)+1), row.Values...),
	}
	if value != 0 {
		next.Indices = append(next.Indices, row.Dim)
		next.Values = append(next.Values, value)
	}
	return next
}

// Encoder owns the full feature row contract: TF-IDF text columns followed
// by a single amount column.
type Encoder struct {
	vectorizer *TfidfVectorizer
}

// NewEncoder wraps a vectorizer. The vectorizer may be fitted later through
// Fit, or already fitted when restored from disk.
func NewEncoder(v *TfidfVectorizer) *Encoder {
	return &Encoder{vectorizer: v}
}

// Fit learns the vocabulary from training titles.
func (e *Encoder) Fit(titles []string) error {
	return e.vectorizer.Fit(titles)
}

// FitEncode fits on titles and encodes the same rows.
func (e *Encoder) FitEncode(titles []string, amounts []float64) ([]SparseVector, error) {
	rows, err := e.vectorizer.FitTransform(titles)
	if err != nil {
		return nil, err
	}
	return AppendAmount(rows, amounts)
}

// Encode turns titles and their amounts into feature rows.
func (e *Encoder) Encode(titles []string, amounts []float64) ([]SparseVector, error) {
	rows, err := e.vectorizer.Transform(titles)
	if err != nil {
		return nil, err
	}
	return AppendAmount(rows, amounts)
}

// EncodeOne encodes a single title.
func (e *Encoder) EncodeOne(title string, amount float64) (SparseVector, error) {
	rows, err := e.Encode([]string{title}, []float64{amount})
	if err != nil {
		return SparseVector{}, err
	}
	return rows[0], nil
}

// Width is the length of every encoded row.
func (e *Encoder) Width() int {
	return e.vectorizer.VocabularySize() + 1
}

// Vectorizer exposes the text vectorizer.
func (e *Encoder) Vectorizer() *TfidfVectorizer {
	return e.vectorizer
}
