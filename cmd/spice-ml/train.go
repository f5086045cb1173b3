package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/config"
	"github.com/Veraticus/spice-categorizer/internal/events"
	"github.com/Veraticus/spice-categorizer/internal/storage"
	"github.com/Veraticus/spice-categorizer/internal/training"
)

func (a *app) trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train [dataset.csv]",
		Short: "Train the category model from a labeled CSV",
		Long: `Train loads a CSV with title, amount, type and category columns, cleans it,
holds out a test split, fits the TF-IDF encoder and the random forest, scores
the held-out rows and writes encoder.json and classifier.json.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runTrain,
	}

	cmd.Flags().String("dataset", "", "labeled CSV (default from training.dataset)")
	cmd.Flags().Int64("seed", 42, "random seed for the split and the forest")
	cmd.Flags().Float64("test-size", 0.2, "fraction of rows held out for evaluation")
	cmd.Flags().Int("trees", 200, "number of trees in the forest")
	cmd.Flags().Int("max-features", 1000, "vocabulary size limit")
	cmd.Flags().Int("workers", 0, "trees fitted in parallel (default GOMAXPROCS)")
	cmd.Flags().String("database", "", "run history database")
	cmd.Flags().String("amqp-url", "", "broker to announce the trained model on")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")
	cmd.Flags().Bool("no-history", false, "do not record the run in the database")

	return cmd
}

func (a *app) runTrain(cmd *cobra.Command, args []string) error {
	s := a.settings
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	opts := training.Options{
		DatasetPath: s.Training.Dataset,
		ArtifactDir: s.ArtifactDir,
		Seed:        s.Training.Seed,
		TestSize:    s.Training.TestSize,
		Trees:       s.Training.Trees,
		MaxFeatures: s.Training.MaxFeatures,
		Workers:     s.Training.Workers,
	}
	if len(args) == 1 {
		opts.DatasetPath = config.ExpandPath(args[0])
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Training interrupted!")
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	var progress *cli.TreeProgress
	if !noProgress {
		progress = cli.NewTreeProgress(cmd.ErrOrStderr(), opts.Trees)
		opts.Progress = progress.Tick
	}

	result, err := training.Run(ctx, opts)
	if progress != nil && err == nil {
		progress.Finish()
	}
	if err != nil {
		switch {
		case handler.WasInterrupted() || errors.Is(err, context.Canceled):
			return common.NewUserError("Training interrupted", err)
		case errors.Is(err, common.ErrNoTrainingData):
			return common.NewUserError(fmt.Sprintf("%s has no usable rows", opts.DatasetPath), err)
		}
		return fmt.Errorf("training failed: %w", err)
	}

	if s.DatabasePath != "" && !noHistory {
		if err := recordRun(ctx, s.DatabasePath, result); err != nil {
			slog.Warn("Failed to record training run", "run_id", result.Run.ID, "error", err)
		}
	}

	pub := newPublisher(s.AMQP)
	defer func() { _ = pub.Close() }()
	announce(ctx, pub, result)

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, cli.RenderRunSummary(result.Run)); err != nil {
		return err
	}
	return cli.RenderEvaluation(out, result.Evaluation)
}

func recordRun(ctx context.Context, dbPath string, result *training.Result) error {
	store, err := openStore(ctx, dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return store.SaveRun(ctx, &result.Run, &result.Evaluation)
}

func openStore(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// newPublisher connects to the configured broker. Without one, or when the
// broker is unreachable, runs are not announced.
func newPublisher(settings config.AMQPSettings) events.Publisher {
	if settings.URL == "" {
		return events.NopPublisher{}
	}
	pub, err := events.Dial(settings.URL, settings.Exchange)
	if err != nil {
		slog.Warn("Failed to connect to broker", "error", err)
		return events.NopPublisher{}
	}
	return pub
}

// announce publishes the run. Broker failures never fail training.
func announce(ctx context.Context, pub events.Publisher, result *training.Result) {
	msg := events.NewModelTrained(result.Run, result.Predictor.Categories())
	if err := pub.PublishModelTrained(ctx, msg); err != nil {
		slog.Warn("Failed to announce trained model", "run_id", result.Run.ID, "error", err)
	}
}
