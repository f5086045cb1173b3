// Package predict answers category questions with a loaded model.
package predict

import (
	"fmt"

	"github.com/Veraticus/spice-categorizer/internal/artifact"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/feature"
	"github.com/Veraticus/spice-categorizer/internal/forest"
)

// Predictor pairs a fitted encoder with a fitted forest. Neither is mutated
// after construction, so a Predictor can serve concurrent requests.
type Predictor struct {
	encoder *feature.Encoder
	forest  *forest.Forest
	runID   string
}

// New builds a predictor, checking both parts are fitted and agree on width.
func New(enc *feature.Encoder, f *forest.Forest, runID string) (*Predictor, error) {
	if enc == nil || !enc.Vectorizer().Fitted() {
		return nil, feature.ErrNotFitted
	}
	if f == nil || !f.Fitted() {
		return nil, forest.ErrNotFitted
	}
	if enc.Width() != f.NumFeatures() {
		return nil, fmt.Errorf("%w: encoder width %d, classifier width %d", forest.ErrWidthMismatch, enc.Width(), f.NumFeatures())
	}
	return &Predictor{encoder: enc, forest: f, runID: runID}, nil
}

// Load reads the artifacts in dir.
func Load(dir string) (*Predictor, error) {
	bundle, err := artifact.Load(dir)
	if err != nil {
		return nil, err
	}
	return New(bundle.Encoder, bundle.Forest, bundle.RunID)
}

// Predict normalizes title and returns its category. The amount should be
// 0 when it is unknown.
func (p *Predictor) Predict(title string, amount float64) (string, error) {
	normalized := feature.Normalize(title)
	if normalized == "" {
		return "", common.ErrEmptyTitle
	}
	row, err := p.encoder.EncodeOne(normalized, amount)
	if err != nil {
		return "", fmt.Errorf("failed to encode title: %w", err)
	}
	return p.forest.PredictOne(row)
}

// PredictBatch predicts every title. amounts may be nil when unknown.
func (p *Predictor) PredictBatch(titles []string, amounts []float64) ([]string, error) {
	if amounts != nil && len(amounts) != len(titles) {
		return nil, fmt.Errorf("got %d amounts for %d titles", len(amounts), len(titles))
	}
	normalized := make([]string, len(titles))
	for i, title := range titles {
		normalized[i] = feature.Normalize(title)
		if normalized[i] == "" {
			return nil, fmt.Errorf("title %d: %w", i, common.ErrEmptyTitle)
		}
	}
	rows, err := p.encoder.Encode(normalized, amounts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode titles: %w", err)
	}
	return p.forest.Predict(rows)
}

// Categories lists the labels the model can return.
func (p *Predictor) Categories() []string {
	return p.forest.Classes()
}

// RunID identifies the training run that produced the model.
func (p *Predictor) RunID() string {
	return p.runID
}

// VocabularySize is the number of text features.
func (p *Predictor) VocabularySize() int {
	return p.encoder.Vectorizer().VocabularySize()
}

// Trees is the ensemble size.
func (p *Predictor) Trees() int {
	return p.forest.NumTrees()
}
