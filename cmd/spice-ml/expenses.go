package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/ledger"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/predict"
	"github.com/Veraticus/spice-categorizer/internal/storage"
)

const dateLayout = "2006-01-02"

func (a *app) expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"exp"},
		Short:   "Keep a ledger of expenses with predicted categories",
	}
	cmd.PersistentFlags().String("database", "", "ledger database")

	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Record an expense, predicting its category unless one is given",
		Example: `  spice-ml expenses add "starbucks coffee" --amount 4.75
  spice-ml expenses add "acme payroll" --amount 2500 --type income --category salary`,
		Args: cobra.ExactArgs(1),
		RunE: a.runExpensesAdd,
	}
	add.Flags().Float64("amount", 0, "amount, always positive")
	add.Flags().String("date", "", "date as YYYY-MM-DD (default today)")
	add.Flags().String("type", "expense", "expense or income")
	add.Flags().String("category", "", "category (predicted when empty)")
	add.Flags().String("description", "", "free-form note")
	_ = add.MarkFlagRequired("amount")

	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE:  a.runExpensesList,
	}
	list.Flags().String("type", "all", "all, expense or income")
	list.Flags().Int("days", 0, "only the last N days (0 for no limit)")
	list.Flags().String("from", "", "first date, YYYY-MM-DD")
	list.Flags().String("to", "", "last date, YYYY-MM-DD")
	list.Flags().IntP("limit", "n", 0, "maximum expenses to show (0 for all)")
	list.Flags().StringP("format", "f", formatTable, "output format (table, yaml)")
	list.MarkFlagsMutuallyExclusive("days", "from")
	list.MarkFlagsMutuallyExclusive("days", "to")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an expense",
		Long: `Update changes only the fields given. A predicted category is predicted
again when the title or amount changes; --category "" asks for a new prediction.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runExpensesUpdate,
	}
	update.Flags().String("title", "", "new title")
	update.Flags().Float64("amount", 0, "new amount")
	update.Flags().String("date", "", "new date, YYYY-MM-DD")
	update.Flags().String("type", "", "expense or income")
	update.Flags().String("category", "", "new category")
	update.Flags().String("description", "", "new note")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an expense",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runExpensesDelete,
	}

	cmd.AddCommand(add, list, update, del)
	return cmd
}

// loadPredictor loads the model. When required is false a missing model
// yields a nil Predictor instead of an error.
func (a *app) loadPredictor(required bool) (ledger.Predictor, error) {
	p, err := predict.Load(a.settings.ArtifactDir)
	if err == nil {
		return p, nil
	}
	if !required && errors.Is(err, common.ErrArtifactNotFound) {
		return nil, nil
	}
	return nil, artifactError(a.settings.ArtifactDir, err)
}

func (a *app) runExpensesAdd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	amount, _ := flags.GetFloat64("amount")
	rawDate, _ := flags.GetString("date")
	rawType, _ := flags.GetString("type")
	category, _ := flags.GetString("category")
	description, _ := flags.GetString("description")

	entry := ledger.Entry{Title: args[0], Amount: amount, Category: category, Description: description}
	var err error
	if entry.Date, err = parseDate(rawDate); err != nil {
		return err
	}
	if entry.Type, err = ledger.ParseType(rawType); err != nil {
		return common.NewUserError("Type must be expense or income", err)
	}

	var p ledger.Predictor
	if strings.TrimSpace(category) == "" {
		if p, err = a.loadPredictor(true); err != nil {
			return err
		}
	}

	return a.withStore(cmd, func(store *storage.SQLiteStorage) error {
		e, err := ledger.New(store, p).Add(cmd.Context(), entry)
		if err != nil {
			return ledgerError(err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(describeExpense("Added", e)))
		return err
	})
}

func (a *app) runExpensesList(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	format, _ := flags.GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	filter, err := listFilter(cmd, time.Now())
	if err != nil {
		return err
	}

	return a.withStore(cmd, func(store *storage.SQLiteStorage) error {
		expenses, err := ledger.New(store, nil).List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if format == formatYAML {
			if expenses == nil {
				expenses = []model.Expense{}
			}
			return writeYAML(cmd.OutOrStdout(), expenses)
		}
		return cli.RenderExpenses(cmd.OutOrStdout(), expenses)
	})
}

func listFilter(cmd *cobra.Command, now time.Time) (storage.ExpenseFilter, error) {
	flags := cmd.Flags()
	rawType, _ := flags.GetString("type")
	days, _ := flags.GetInt("days")
	from, _ := flags.GetString("from")
	to, _ := flags.GetString("to")
	limit, _ := flags.GetInt("limit")

	filter := storage.ExpenseFilter{Limit: limit}
	if !strings.EqualFold(strings.TrimSpace(rawType), "all") {
		t, err := ledger.ParseType(rawType)
		if err != nil {
			return filter, common.NewUserError("Type must be all, expense or income", err)
		}
		filter.Type = t
	}

	if days < 0 {
		return filter, common.NewUserError("--days cannot be negative", nil)
	}
	if days > 0 {
		y, m, d := now.Date()
		since := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
		filter.Since = &since
	}
	if from != "" {
		since, err := parseDate(from)
		if err != nil {
			return filter, err
		}
		filter.Since = &since
	}
	if to != "" {
		until, err := parseDate(to)
		if err != nil {
			return filter, err
		}
		filter.Until = &until
	}
	if filter.Since != nil && filter.Until != nil && filter.Until.Before(*filter.Since) {
		return filter, common.NewUserError("--to is before --from", nil)
	}
	return filter, nil
}

func (a *app) runExpensesUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseExpenseID(args[0])
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	var changes ledger.Changes
	if flags.Changed("title") {
		v, _ := flags.GetString("title")
		changes.Title = &v
	}
	if flags.Changed("amount") {
		v, _ := flags.GetFloat64("amount")
		changes.Amount = &v
	}
	if flags.Changed("description") {
		v, _ := flags.GetString("description")
		changes.Description = &v
	}
	if flags.Changed("category") {
		v, _ := flags.GetString("category")
		changes.Category = &v
	}
	if flags.Changed("date") {
		raw, _ := flags.GetString("date")
		v, err := parseDate(raw)
		if err != nil {
			return err
		}
		changes.Date = &v
	}
	if flags.Changed("type") {
		raw, _ := flags.GetString("type")
		v, err := ledger.ParseType(raw)
		if err != nil {
			return common.NewUserError("Type must be expense or income", err)
		}
		changes.Type = &v
	}

	explicitPrediction := changes.Category != nil && strings.TrimSpace(*changes.Category) == ""
	p, err := a.loadPredictor(explicitPrediction)
	if err != nil {
		return err
	}

	return a.withStore(cmd, func(store *storage.SQLiteStorage) error {
		e, err := ledger.New(store, p).Update(cmd.Context(), id, changes)
		if err != nil {
			return ledgerError(err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(describeExpense("Updated", e)))
		return err
	})
}

func (a *app) runExpensesDelete(cmd *cobra.Command, args []string) error {
	id, err := parseExpenseID(args[0])
	if err != nil {
		return err
	}
	return a.withStore(cmd, func(store *storage.SQLiteStorage) error {
		if err := ledger.New(store, nil).Delete(cmd.Context(), id); err != nil {
			return ledgerError(err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted expense %d", id)))
		return err
	})
}

func describeExpense(verb string, e *model.Expense) string {
	how := ""
	if e.Predicted {
		how = ", predicted"
	}
	return fmt.Sprintf("%s expense %d: %s (%s%s)", verb, e.ID, e.Title, e.Category, how)
}

// ledgerError turns ledger validation failures into messages for the user.
func ledgerError(err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.NewUserError("No such expense", err)
	case errors.Is(err, common.ErrEmptyTitle):
		return common.NewUserError("Title is required", err)
	case errors.Is(err, ledger.ErrInvalidAmount):
		return common.NewUserError("Amount must be positive", err)
	case errors.Is(err, ledger.ErrInvalidType):
		return common.NewUserError("Type must be expense or income", err)
	case errors.Is(err, ledger.ErrPredictorUnavailable):
		return common.NewUserError("No trained model to predict a category. Run 'spice-ml train' first", err)
	default:
		return err
	}
}

func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("Invalid date %q (use YYYY-MM-DD)", s), err)
	}
	return t, nil
}

func parseExpenseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, common.NewUserError(fmt.Sprintf("Invalid expense id %q", s), err)
	}
	return id, nil
}
