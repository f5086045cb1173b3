// Package training builds the encoder and classifier from a labeled dataset.
package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-categorizer/internal/artifact"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/dataset"
	"github.com/Veraticus/spice-categorizer/internal/feature"
	"github.com/Veraticus/spice-categorizer/internal/forest"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/predict"
)

// Options controls a training run.
type Options struct {
	// Progress is called once per fitted tree, possibly concurrently.
	Progress    func()
	DatasetPath string
	// ArtifactDir receives encoder.json and classifier.json. Empty skips saving.
	ArtifactDir string
	Seed        int64
	TestSize    float64
	Trees       int
	MaxFeatures int
	Workers     int
}

// DefaultOptions returns the settings the model was designed around.
func DefaultOptions() Options {
	return Options{
		Seed:        forest.DefaultSeed,
		TestSize:    dataset.DefaultTestSize,
		Trees:       forest.DefaultTrees,
		MaxFeatures: feature.DefaultMaxFeatures,
		Workers:     runtime.GOMAXPROCS(0),
	}
}

// Result is everything a training run produced.
type Result struct {
	Encoder    *feature.Encoder
	Forest     *forest.Forest
	Predictor  *predict.Predictor
	Run        model.TrainingRun
	Evaluation model.Evaluation
	Clean      dataset.CleanStats
}

// Run loads the dataset at opts.DatasetPath and trains on it.
func Run(ctx context.Context, opts Options) (*Result, error) {
	raw, err := dataset.LoadFile(opts.DatasetPath)
	if err != nil {
		return nil, err
	}
	return RunRecords(ctx, raw, opts)
}

// RunRecords cleans raw rows, splits them, fits the encoder on the training
// titles only, fits the forest, scores the held-out rows and saves the
// artifacts.
func RunRecords(ctx context.Context, raw []dataset.RawRecord, opts Options) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()

	records, stats := dataset.Clean(raw)
	slog.Info("Cleaned dataset",
		"kept", stats.Kept,
		"dropped_missing", stats.DroppedMissing,
		"dropped_blank", stats.DroppedBlank,
		"amounts_coerced", stats.AmountCoerced)

	train, test := dataset.Split(records, opts.TestSize, opts.Seed)
	if len(train) == 0 {
		return nil, fmt.Errorf("%w: %d usable rows", common.ErrNoTrainingData, len(records))
	}

	enc := feature.NewEncoder(feature.NewTfidfVectorizer(feature.WithMaxFeatures(opts.MaxFeatures)))
	X, err := enc.FitEncode(model.Titles(train), model.Amounts(train))
	if err != nil {
		if errors.Is(err, feature.ErrEmptyVocabulary) {
			return nil, fmt.Errorf("%w: %w", common.ErrNoTrainingData, err)
		}
		return nil, fmt.Errorf("failed to fit encoder: %w", err)
	}

	forestOpts := []forest.Option{
		forest.WithTrees(opts.Trees),
		forest.WithSeed(opts.Seed),
		forest.WithClassWeight(forest.Balanced),
	}
	if opts.Workers > 0 {
		forestOpts = append(forestOpts, forest.WithWorkers(opts.Workers))
	}
	if opts.Progress != nil {
		forestOpts = append(forestOpts, forest.WithProgress(opts.Progress))
	}

	slog.Info("Fitting classifier",
		"run_id", runID,
		"train_rows", len(train),
		"test_rows", len(test),
		"vocabulary", enc.Vectorizer().VocabularySize(),
		"trees", opts.Trees)

	clf := forest.New(forestOpts...)
	if err := clf.Fit(ctx, X, model.Categories(train)); err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}

	p, err := predict.New(enc, clf, runID)
	if err != nil {
		return nil, err
	}

	eval, err := Evaluate(p, test)
	if err != nil {
		return nil, err
	}
	if eval.Samples > 0 {
		slog.Info("Evaluated held-out split",
			"samples", eval.Samples,
			"accuracy", eval.Accuracy,
			"macro_f1", eval.MacroF1)
	}

	if opts.ArtifactDir != "" {
		if err := artifact.Save(opts.ArtifactDir, enc, clf, runID); err != nil {
			return nil, err
		}
		slog.Info("Saved model artifacts", "dir", opts.ArtifactDir)
	}

	return &Result{
		Encoder:    enc,
		Forest:     clf,
		Predictor:  p,
		Evaluation: eval,
		Clean:      stats,
		Run: model.TrainingRun{
			ID:             runID,
			StartedAt:      started,
			Duration:       time.Since(started),
			DatasetPath:    opts.DatasetPath,
			ArtifactDir:    opts.ArtifactDir,
			Seed:           opts.Seed,
			TrainRows:      len(train),
			TestRows:       len(test),
			DroppedRows:    stats.Dropped(),
			VocabularySize: enc.Vectorizer().VocabularySize(),
			Trees:          clf.NumTrees(),
			Accuracy:       eval.Accuracy,
			MacroF1:        eval.MacroF1,
		},
	}, nil
}
