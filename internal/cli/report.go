package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// PredictionRow is one line of a batch prediction table.
type PredictionRow struct {
	Date     time.Time
	Title    string
	Category string
	Amount   float64
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeHeader(tw *tabwriter.Writer, cols ...string) error {
	styled := make([]string, len(cols))
	rules := make([]string, len(cols))
	for i, c := range cols {
		styled[i] = TableHeaderStyle.Render(c)
		rules[i] = strings.Repeat("─", max(len(c), 4))
	}
	if _, err := fmt.Fprintln(tw, strings.Join(styled, "\t")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(rules, "\t")); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}
	return nil
}

// RenderRunSummary returns a boxed summary of a finished training run.
func RenderRunSummary(run model.TrainingRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:         %s\n", run.ID)
	fmt.Fprintf(&b, "Rows:        %d train, %d test, %d dropped\n", run.TrainRows, run.TestRows, run.DroppedRows)
	fmt.Fprintf(&b, "Vocabulary:  %d terms\n", run.VocabularySize)
	fmt.Fprintf(&b, "Trees:       %d (seed %d)\n", run.Trees, run.Seed)
	if run.TestRows > 0 {
		fmt.Fprintf(&b, "Accuracy:    %.3f\n", run.Accuracy)
		fmt.Fprintf(&b, "Macro F1:    %.3f\n", run.MacroF1)
	}
	fmt.Fprintf(&b, "Duration:    %s", run.Duration.Round(time.Millisecond))
	if run.ArtifactDir != "" {
		fmt.Fprintf(&b, "\nArtifacts:   %s", run.ArtifactDir)
	}
	return RenderBox(TreeIcon+" Training Complete", b.String())
}

// RenderEvaluation writes the per-category report followed by the macro
// averages.
func RenderEvaluation(w io.Writer, eval model.Evaluation) error {
	if eval.Samples == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("No held-out rows to evaluate."))
		return err
	}

	tw := newTable(w)
	if err := writeHeader(tw, "Category", "Precision", "Recall", "F1", "Support"); err != nil {
		return err
	}
	for _, c := range eval.Classes {
		if _, err := fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%d\n",
			c.Category, c.Precision, c.Recall, c.F1, c.Support); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if _, err := fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%d\n",
		BoldStyle.Render("macro avg"), eval.MacroPrecision, eval.MacroRecall, eval.MacroF1, eval.Samples); err != nil {
		return fmt.Errorf("failed to write averages: %w", err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	_, err := fmt.Fprintf(w, "\n%s %s\n", ChartIcon, BoldStyle.Render(fmt.Sprintf("Accuracy %.3f on %d rows", eval.Accuracy, eval.Samples)))
	return err
}

// RenderRuns writes a table of past training runs, newest first.
func RenderRuns(w io.Writer, runs []model.TrainingRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, InfoStyle.Render("No training runs recorded. Use 'spice-ml train' to create one."))
		return err
	}

	tw := newTable(w)
	if err := writeHeader(tw, "ID", "Started", "Train", "Test", "Trees", "Accuracy", "Macro F1"); err != nil {
		return err
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.3f\t%.3f\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.TrainRows, r.TestRows, r.Trees, r.Accuracy, r.MacroF1); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}
	return nil
}

// RenderPredictions writes a table of titles with their predicted category.
func RenderPredictions(w io.Writer, rows []PredictionRow) error {
	tw := newTable(w)
	if err := writeHeader(tw, "Date", "Title", "Amount", "Category"); err != nil {
		return err
	}
	for _, r := range rows {
		date := ""
		if !r.Date.IsZero() {
			date = r.Date.Format("2006-01-02")
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", date, r.Title, r.Amount, FormatCategory(r.Category)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}
	return nil
}

// RenderExpenses writes a ledger table. Predicted categories are marked
// with an asterisk.
func RenderExpenses(w io.Writer, expenses []model.Expense) error {
	if len(expenses) == 0 {
		_, err := fmt.Fprintln(w, InfoStyle.Render("No expenses recorded. Use 'spice-ml expenses add' to create one."))
		return err
	}

	tw := newTable(w)
	if err := writeHeader(tw, "ID", "Date", "Title", "Type", "Amount", "Category"); err != nil {
		return err
	}
	var spent, earned float64
	for _, e := range expenses {
		category := FormatCategory(e.Category)
		if e.Predicted {
			category += SubtleStyle.Render("*")
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\t%s\n",
			e.ID, e.Date.Format("2006-01-02"), e.Title, e.Type, e.Amount, category); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		if e.Type == model.TypeIncome {
			earned += e.Amount
		} else {
			spent += e.Amount
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}

	_, err := fmt.Fprintf(w, "\n%s %s\n", ChartIcon,
		BoldStyle.Render(fmt.Sprintf("%d entries, %.2f spent, %.2f earned", len(expenses), spent, earned)))
	return err
}
