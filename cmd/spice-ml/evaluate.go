package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/config"
	"github.com/Veraticus/spice-categorizer/internal/dataset"
	"github.com/Veraticus/spice-categorizer/internal/predict"
	"github.com/Veraticus/spice-categorizer/internal/training"
)

func (a *app) evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <labeled.csv>",
		Short: "Score the trained model on a labeled CSV",
		Long: `Evaluate cleans a labeled CSV the same way training does, predicts every row
with its real amount and reports accuracy with per-category precision,
recall and F1.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runEvaluate,
	}

	cmd.Flags().StringP("format", "f", formatTable, "output format (table, yaml)")

	return cmd
}

func (a *app) runEvaluate(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	p, err := predict.Load(a.settings.ArtifactDir)
	if err != nil {
		return artifactError(a.settings.ArtifactDir, err)
	}

	path := config.ExpandPath(args[0])
	raw, err := dataset.LoadFile(path)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read %s", path), err)
	}
	records, stats := dataset.Clean(raw)
	slog.Info("Loaded evaluation set", "path", path, "kept", stats.Kept, "dropped", stats.Dropped())
	if len(records) == 0 {
		return common.NewUserError(fmt.Sprintf("%s has no usable rows", path), common.ErrNoTrainingData)
	}

	eval, err := training.Evaluate(p, records)
	if err != nil {
		return err
	}

	if format == formatYAML {
		return writeYAML(cmd.OutOrStdout(), eval)
	}
	return cli.RenderEvaluation(cmd.OutOrStdout(), eval)
}
