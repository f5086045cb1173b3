package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/config"
	"github.com/Veraticus/spice-categorizer/internal/ofx"
	"github.com/Veraticus/spice-categorizer/internal/predict"
	"github.com/Veraticus/spice-categorizer/internal/tui"
)

func (a *app) predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict [title]",
		Short: "Predict the category of an expense",
		Long: `Predict classifies a single title, every transaction in an OFX/QFX
statement, or titles typed into an interactive prompt.`,
		Example: `  spice-ml predict "starbucks coffee"
  spice-ml predict "uber ride" --amount 25
  spice-ml predict --ofx statement.qfx
  spice-ml predict --interactive`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runPredict,
	}

	cmd.Flags().Float64("amount", 0, "expense amount")
	cmd.Flags().String("ofx", "", "OFX/QFX statement to categorize")
	cmd.Flags().BoolP("interactive", "i", false, "predict as you type")
	cmd.MarkFlagsMutuallyExclusive("ofx", "interactive")

	return cmd
}

func (a *app) runPredict(cmd *cobra.Command, args []string) error {
	amount, _ := cmd.Flags().GetFloat64("amount")
	statement, _ := cmd.Flags().GetString("ofx")
	interactive, _ := cmd.Flags().GetBool("interactive")

	if len(args) == 0 && statement == "" && !interactive {
		return common.NewUserError("Give a title, --ofx or --interactive", nil)
	}
	if len(args) == 1 && (statement != "" || interactive) {
		return common.NewUserError("A title cannot be combined with --ofx or --interactive", nil)
	}

	p, err := predict.Load(a.settings.ArtifactDir)
	if err != nil {
		return artifactError(a.settings.ArtifactDir, err)
	}

	out := cmd.OutOrStdout()
	switch {
	case interactive:
		kept, err := tui.Run(cmd.Context(), p, cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
		if len(kept) == 0 {
			return nil
		}
		rows := make([]cli.PredictionRow, len(kept))
		for i, e := range kept {
			rows[i] = cli.PredictionRow{Title: e.Title, Amount: e.Amount, Category: e.Category}
		}
		return cli.RenderPredictions(out, rows)

	case statement != "":
		return predictStatement(cmd, p, config.ExpandPath(statement))

	default:
		category, err := p.Predict(args[0], amount)
		if err != nil {
			if errors.Is(err, common.ErrEmptyTitle) {
				return common.NewUserError("Title is required", err)
			}
			return err
		}
		_, err = fmt.Fprintln(out, category)
		return err
	}
}

func predictStatement(cmd *cobra.Command, p *predict.Predictor, path string) error {
	txns, err := ofx.NewParser().ParseFile(cmd.Context(), path)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("Could not read statement %s", path), err)
	}
	if len(txns) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("The statement has no transactions."))
		return err
	}

	titles := make([]string, 0, len(txns))
	amounts := make([]float64, 0, len(txns))
	kept := txns[:0]
	for _, tx := range txns {
		if strings.TrimSpace(tx.Title()) == "" {
			continue
		}
		kept = append(kept, tx)
		titles = append(titles, tx.Title())
		amounts = append(amounts, tx.Amount)
	}

	categories, err := p.PredictBatch(titles, amounts)
	if err != nil {
		return err
	}

	rows := make([]cli.PredictionRow, len(kept))
	for i, tx := range kept {
		rows[i] = cli.PredictionRow{
			Date:     tx.Date,
			Title:    tx.Title(),
			Amount:   tx.Amount,
			Category: categories[i],
		}
	}
	return cli.RenderPredictions(cmd.OutOrStdout(), rows)
}
