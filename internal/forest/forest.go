// Package forest implements a random forest classifier over sparse feature rows.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-categorizer/internal/feature"
)

// Classifier errors.
var (
	ErrNotFitted     = errors.New("classifier is not fitted")
	ErrAlreadyFitted = errors.New("classifier is already fitted")
	ErrNoSamples     = errors.New("no training samples")
	ErrWidthMismatch = errors.New("feature width mismatch")
)

// Forest is a bagged ensemble of CART trees. It is immutable once fitted and
// safe for concurrent prediction.
type Forest struct {
	classes      []string
	classWeights []float64
	trees        []Tree
	cfg          config
	nFeatures    int
	fitted       bool
}

// New creates an unfitted forest.
func New(opts ...Option) *Forest {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Forest{cfg: cfg}
}

// Fit grows the ensemble on rows X labeled y.
func (f *Forest) Fit(ctx context.Context, X []feature.SparseVector, y []string) error {
	if f.fitted {
		return ErrAlreadyFitted
	}
	if len(X) == 0 {
		return ErrNoSamples
	}
	if len(X) != len(y) {
		return fmt.Errorf("got %d rows and %d labels", len(X), len(y))
	}
	width := X[0].Dim
	for i, row := range X {
		if row.Dim != width {
			return fmt.Errorf("%w: row %d has width %d, want %d", ErrWidthMismatch, i, row.Dim, width)
		}
	}
	if width == 0 {
		return fmt.Errorf("%w: rows have no columns", ErrWidthMismatch)
	}

	classes, labels := encodeLabels(y)
	weights := f.classWeightsFor(labels, len(classes))

	// Per-tree seeds are drawn up front so results do not depend on
	// scheduling or worker count.
	master := rand.New(rand.NewSource(f.cfg.seed)) //nolint:gosec // reproducible model, not security
	seeds := make([]int64, f.cfg.trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]Tree, f.cfg.trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i])) //nolint:gosec // reproducible model, not security
			samples := bootstrap(rng, labels, weights)
			trees[i] = growTree(X, samples, len(classes), width, &f.cfg, rng)
			if f.cfg.progress != nil {
				f.cfg.progress()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to grow trees: %w", err)
	}

	f.classes = classes
	f.classWeights = weights
	f.trees = trees
	f.nFeatures = width
	f.fitted = true
	return nil
}

func encodeLabels(y []string) ([]string, []int) {
	index := make(map[string]int)
	for _, label := range y {
		index[label] = 0
	}
	classes := make([]string, 0, len(index))
	for label := range index {
		classes = append(classes, label)
	}
	sort.Strings(classes)
	for i, c := range classes {
		index[c] = i
	}
	labels := make([]int, len(y))
	for i, label := range y {
		labels[i] = index[label]
	}
	return classes, labels
}

func (f *Forest) classWeightsFor(labels []int, k int) []float64 {
	weights := make([]float64, k)
	if f.cfg.classWeight != Balanced {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	n := float64(len(labels))
	for c, count := range counts {
		weights[c] = n / (float64(k) * float64(count))
	}
	return weights
}

// bootstrap draws n rows with replacement; each distinct row is kept once
// with its multiplicity folded into the weight.
func bootstrap(rng *rand.Rand, labels []int, classWeights []float64) []sample {
	n := len(labels)
	counts := make([]int, n)
	for i := 0; i < n; i++ {
		counts[rng.Intn(n)]++
	}
	samples := make([]sample, 0, n)
	for row, c := range counts {
		if c == 0 {
			continue
		}
		samples = append(samples, sample{
			row:    row,
			class:  labels[row],
			weight: float64(c) * classWeights[labels[row]],
		})
	}
	return samples
}

// Predict returns one label per row.
func (f *Forest) Predict(X []feature.SparseVector) ([]string, error) {
	out := make([]string, len(X))
	for i, row := range X {
		label, err := f.PredictOne(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = label
	}
	return out, nil
}

// PredictOne averages the trees' leaf distributions and returns the most
// probable class. Ties go to the class that sorts first.
func (f *Forest) PredictOne(x feature.SparseVector) (string, error) {
	if !f.fitted {
		return "", ErrNotFitted
	}
	if x.Dim != f.nFeatures {
		return "", fmt.Errorf("%w: got %d, want %d", ErrWidthMismatch, x.Dim, f.nFeatures)
	}
	votes := make([]float64, len(f.classes))
	for i := range f.trees {
		for c, p := range f.trees[i].leaf(x) {
			votes[c] += p
		}
	}
	best := 0
	for c := 1; c < len(votes); c++ {
		if votes[c] > votes[best] {
			best = c
		}
	}
	return f.classes[best], nil
}

// Classes returns the sorted label set seen during training.
func (f *Forest) Classes() []string {
	return append([]string(nil), f.classes...)
}

// NumTrees is the ensemble size.
func (f *Forest) NumTrees() int {
	return len(f.trees)
}

// NumFeatures is the row width the forest was fitted on.
func (f *Forest) NumFeatures() int {
	return f.nFeatures
}

// Fitted reports whether the forest can predict.
func (f *Forest) Fitted() bool {
	return f.fitted
}

// State is the serializable form of a fitted forest.
type State struct {
	Classes      []string  `json:"classes"`
	ClassWeights []float64 `json:"class_weights"`
	Trees        []Tree    `json:"trees"`
	Features     int       `json:"features"`
	Seed         int64     `json:"seed"`
}

// State exports the fitted model.
func (f *Forest) State() (State, error) {
	if !f.fitted {
		return State{}, ErrNotFitted
	}
	return State{
		Classes:      f.Classes(),
		ClassWeights: append([]float64(nil), f.classWeights...),
		Trees:        f.trees,
		Features:     f.nFeatures,
		Seed:         f.cfg.seed,
	}, nil
}

// FromState rebuilds a fitted forest, checking the trees are well formed.
func FromState(s State) (*Forest, error) {
	if len(s.Classes) == 0 {
		return nil, errors.New("forest has no classes")
	}
	if len(s.Trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	if s.Features < 1 {
		return nil, fmt.Errorf("%w: forest has %d features", ErrWidthMismatch, s.Features)
	}
	for ti, t := range s.Trees {
		if err := validateTree(t, len(s.Classes), s.Features); err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
	}
	f := New(WithSeed(s.Seed), WithTrees(len(s.Trees)))
	f.classes = append([]string(nil), s.Classes...)
	f.classWeights = append([]float64(nil), s.ClassWeights...)
	f.trees = s.Trees
	f.nFeatures = s.Features
	f.fitted = true
	return f, nil
}

func validateTree(t Tree, nClasses, nFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Feature == leafFeature {
			if len(n.Value) != nClasses {
				return fmt.Errorf("leaf %d has %d class weights, want %d", i, len(n.Value), nClasses)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d outside [0,%d)", i, n.Feature, nFeatures)
		}
		// Children always follow their parent, which also rules out cycles.
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}
