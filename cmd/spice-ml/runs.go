package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/storage"
)

func (a *app) runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded training runs",
	}
	cmd.PersistentFlags().String("database", "", "run history database")

	list := &cobra.Command{
		Use:   "list",
		Short: "List training runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  a.runRunsList,
	}
	list.Flags().IntP("limit", "n", 20, "maximum runs to show (0 for all)")

	show := &cobra.Command{
		Use:   "show <run-id|latest>",
		Short: "Show a run with its per-category report",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runRunsShow,
	}
	show.Flags().StringP("format", "f", formatTable, "output format (table, yaml)")

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Forget a training run",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runRunsDelete,
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func (a *app) withStore(cmd *cobra.Command, fn func(*storage.SQLiteStorage) error) error {
	if a.settings.DatabasePath == "" {
		return common.NewUserError("No database configured (database.path)", common.ErrMissingConfig)
	}
	store, err := openStore(cmd.Context(), a.settings.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func (a *app) runRunsList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	return a.withStore(cmd, func(store *storage.SQLiteStorage) error {
		records, err := store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		runs := make([]model.TrainingRun, len(records))
		for i, r := range records {
			runs[i] = r.Run
		}
		return cli.RenderRuns(cmd.OutOrStdout(), runs)
	})
}

// runReport is the yaml shape of a stored run.
type runReport struct {
	Run        model.TrainingRun `yaml:"run"`
	Evaluation model.Evaluation  `yaml:"evaluation"`
}

func (a *app) runRunsShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	return a.withStore(cmd, func(store *storage.SQLiteStorage) error {
		var rec *storage.RunRecord
		var err error
		if args[0] == "latest" {
			rec, err = store.LatestRun(cmd.Context())
		} else {
			rec, err = store.GetRun(cmd.Context(), args[0])
		}
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("No training run %q", args[0]), err)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format == formatYAML {
			return writeYAML(out, runReport{Run: rec.Run, Evaluation: rec.Evaluation})
		}
		if _, err := fmt.Fprintln(out, cli.RenderRunSummary(rec.Run)); err != nil {
			return err
		}
		return cli.RenderEvaluation(out, rec.Evaluation)
	})
}

func (a *app) runRunsDelete(cmd *cobra.Command, args []string) error {
	return a.withStore(cmd, func(store *storage.SQLiteStorage) error {
		err := store.DeleteRun(cmd.Context(), args[0])
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError(fmt.Sprintf("No training run %q", args[0]), err)
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted run "+args[0]))
		return err
	})
}
