package feature

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DefaultMaxFeatures caps the vocabulary when no option overrides it.
const DefaultMaxFeatures = 1000

// Vectorizer errors.
var (
	ErrNotFitted       = errors.New("vectorizer is not fitted")
	ErrAlreadyFitted   = errors.New("vectorizer is already fitted")
	ErrEmptyCorpus     = errors.New("no documents to fit")
	ErrEmptyVocabulary = errors.New("empty vocabulary; documents contain only stop words")
)

// TfidfVectorizer converts titles into L2-normalized TF-IDF rows over a
// vocabulary learned once by Fit.
type TfidfVectorizer struct {
	vocabulary  map[string]int
	terms       []string
	idf         []float64
	maxFeatures int
	stopWords   bool
	fitted      bool
}

// Option configures a TfidfVectorizer.
type Option func(*TfidfVectorizer)

// WithMaxFeatures caps the vocabulary at the n most frequent terms.
// Values below 1 disable the cap.
func WithMaxFeatures(n int) Option {
	return func(v *TfidfVectorizer) {
		v.maxFeatures = n
	}
}

// WithStopWords toggles removal of English stop words.
func WithStopWords(enabled bool) Option {
	return func(v *TfidfVectorizer) {
		v.stopWords = enabled
	}
}

// NewTfidfVectorizer creates an unfitted vectorizer.
func NewTfidfVectorizer(opts ...Option) *TfidfVectorizer {
	v := &TfidfVectorizer{
		maxFeatures: DefaultMaxFeatures,
		stopWords:   true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *TfidfVectorizer) analyze(doc string) []string {
	tokens := Tokenize(doc)
	if !v.stopWords {
		return tokens
	}
	kept := tokens[:0]
	for _, tok := range tokens {
		if !IsStopWord(tok) {
			kept = append(kept, tok)
		}
	}
	return kept
}

// Fit learns the vocabulary and IDF weights from titles.
func (v *TfidfVectorizer) Fit(titles []string) error {
	if v.fitted {
		return ErrAlreadyFitted
	}
	if len(titles) == 0 {
		return ErrEmptyCorpus
	}

	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for _, title := range titles {
		seen := make(map[string]bool)
		for _, tok := range v.analyze(title) {
			termFreq[tok]++
			if !seen[tok] {
				seen[tok] = true
				docFreq[tok]++
			}
		}
	}
	if len(termFreq) == 0 {
		return ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}

	if v.maxFeatures > 0 && len(terms) > v.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termFreq[terms[i]] != termFreq[terms[j]] {
				return termFreq[terms[i]] > termFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(titles))
	v.terms = terms
	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}
	v.fitted = true
	return nil
}

// Transform encodes titles with the fitted vocabulary. Terms outside the
// vocabulary are dropped. Transform never changes the vectorizer.
func (v *TfidfVectorizer) Transform(titles []string) ([]SparseVector, error) {
	if !v.fitted {
		return nil, ErrNotFitted
	}
	rows := make([]SparseVector, len(titles))
	for i, title := range titles {
		rows[i] = v.transformOne(title)
	}
	return rows, nil
}

func (v *TfidfVectorizer) transformOne(title string) SparseVector {
	counts := make(map[int]float64)
	for _, tok := range v.analyze(title) {
		if col, ok := v.vocabulary[tok]; ok {
			counts[col]++
		}
	}

	row := SparseVector{Dim: len(v.terms)}
	if len(counts) == 0 {
		return row
	}

	row.Indices = make([]int, 0, len(counts))
	for col := range counts {
		row.Indices = append(row.Indices, col)
	}
	sort.Ints(row.Indices)

	row.Values = make([]float64, len(row.Indices))
	var norm float64
	for k, col := range row.Indices {
		w := counts[col] * v.idf[col]
		row.Values[k] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for k := range row.Values {
		row.Values[k] /= norm
	}
	return row
}

// FitTransform fits on titles and encodes them.
func (v *TfidfVectorizer) FitTransform(titles []string) ([]SparseVector, error) {
	if err := v.Fit(titles); err != nil {
		return nil, err
	}
	return v.Transform(titles)
}

// Fitted reports whether Fit has completed.
func (v *TfidfVectorizer) Fitted() bool {
	return v.fitted
}

// VocabularySize is the number of text columns.
func (v *TfidfVectorizer) VocabularySize() int {
	return len(v.terms)
}

// Vocabulary returns a copy of the term to column mapping.
func (v *TfidfVectorizer) Vocabulary() map[string]int {
	out := make(map[string]int, len(v.vocabulary))
	for k, col := range v.vocabulary {
		out[k] = col
	}
	return out
}

// Terms returns the vocabulary ordered by column.
func (v *TfidfVectorizer) Terms() []string {
	return append([]string(nil), v.terms...)
}

// IDF returns a copy of the per-column inverse document frequencies.
func (v *TfidfVectorizer) IDF() []float64 {
	return append([]float64(nil), v.idf...)
}

// MaxFeatures returns the configured vocabulary cap.
func (v *TfidfVectorizer) MaxFeatures() int {
	return v.maxFeatures
}

// StopWords reports whether stop words are removed.
func (v *TfidfVectorizer) StopWords() bool {
	return v.stopWords
}

// Restore rebuilds a fitted vectorizer from persisted state.
func Restore(terms []string, idf []float64, opts ...Option) (*TfidfVectorizer, error) {
	if len(terms) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("vocabulary has %d terms but %d idf weights", len(terms), len(idf))
	}
	v := NewTfidfVectorizer(opts...)
	v.terms = append([]string(nil), terms...)
	v.idf = append([]float64(nil), idf...)
	v.vocabulary = make(map[string]int, len(terms))
	for i, term := range v.terms {
		if _, dup := v.vocabulary[term]; dup {
			return nil, fmt.Errorf("duplicate vocabulary term %q", term)
		}
		v.vocabulary[term] = i
	}
	v.fitted = true
	return v, nil
}
