package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/artifact"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/ledger"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/testutil"
)

type env struct {
	artifacts string
	database  string
	dataset   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	return env{
		artifacts: filepath.Join(dir, "model"),
		database:  filepath.Join(dir, "runs.db"),
		dataset:   testutil.WriteDataset(t),
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func train(t *testing.T, e env) string {
	t.Helper()
	out, err := execute(t, "train", e.dataset,
		"--artifacts", e.artifacts,
		"--database", e.database,
		"--trees", "15",
		"--no-progress")
	require.NoError(t, err, out)
	return out
}

func TestTrainPredictEvaluate(t *testing.T) {
	e := newEnv(t)

	out := train(t, e)
	assert.Contains(t, out, "Training Complete")
	assert.Contains(t, out, "macro avg")
	assert.FileExists(t, filepath.Join(e.artifacts, artifact.EncoderFile))
	assert.FileExists(t, filepath.Join(e.artifacts, artifact.ClassifierFile))

	out, err := execute(t, "predict", "starbucks coffee", "--artifacts", e.artifacts)
	require.NoError(t, err)
	assert.Contains(t, testutil.Categories(), strings.TrimSpace(out))

	out, err = execute(t, "predict", "uber ride", "--amount", "25", "--artifacts", e.artifacts)
	require.NoError(t, err)
	assert.Contains(t, testutil.Categories(), strings.TrimSpace(out))

	out, err = execute(t, "evaluate", e.dataset, "--artifacts", e.artifacts, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "accuracy:")
	assert.Contains(t, out, "classes:")
}

func TestPredict_Statement(t *testing.T) {
	e := newEnv(t)
	train(t, e)

	path := filepath.Join(t.TempDir(), "statement.ofx")
	require.NoError(t, os.WriteFile(path, []byte(testutil.StatementOFX), 0o600))

	out, err := execute(t, "predict", "--ofx", path, "--artifacts", e.artifacts)
	require.NoError(t, err)
	assert.Contains(t, out, "STARBUCKS COFFEE")
	assert.Contains(t, out, "UBER TRIP")
	assert.Contains(t, out, "2026-02-03")
}

func TestPredict_Errors(t *testing.T) {
	e := newEnv(t)

	_, err := execute(t, "predict", "coffee", "--artifacts", e.artifacts)
	require.ErrorIs(t, err, common.ErrArtifactNotFound)
	assert.Contains(t, err.Error(), "spice-ml train")

	_, err = execute(t, "predict", "--artifacts", e.artifacts)
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)

	train(t, e)
	_, err = execute(t, "predict", "   ", "--artifacts", e.artifacts)
	require.ErrorIs(t, err, common.ErrEmptyTitle)
}

func TestRuns(t *testing.T) {
	e := newEnv(t)
	train(t, e)

	out, err := execute(t, "runs", "list", "--database", e.database)
	require.NoError(t, err)
	assert.Contains(t, out, "Accuracy")

	out, err = execute(t, "runs", "show", "latest", "--database", e.database, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "run:")
	assert.Contains(t, out, "trees: 15")

	_, err = execute(t, "runs", "show", "does-not-exist", "--database", e.database)
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = execute(t, "runs", "show", "latest", "--database", e.database, "--format", "xml")
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
}

func TestExpenses(t *testing.T) {
	e := newEnv(t)
	db := []string{"--database", e.database, "--artifacts", e.artifacts}
	run := func(args ...string) (string, error) {
		return execute(t, append(args, db...)...)
	}

	// An explicit category needs no model.
	out, err := run("expenses", "add", "acme payroll", "--amount", "2500",
		"--type", "income", "--category", "salary", "--date", "2026-02-01")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added expense 1: acme payroll (Salary)")

	_, err = run("expenses", "add", "coffee", "--amount", "4")
	require.ErrorIs(t, err, common.ErrArtifactNotFound)

	train(t, e)

	out, err = run("expenses", "add", "starbucks coffee", "--amount", "4.75", "--date", "2026-02-03")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added expense 2: starbucks coffee")
	assert.Contains(t, out, "predicted")

	out, err = run("expenses", "list", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "title: starbucks coffee")
	assert.Contains(t, out, "predicted: true")
	assert.Contains(t, out, "category: Salary")

	out, err = run("expenses", "list", "--type", "income")
	require.NoError(t, err)
	assert.Contains(t, out, "acme payroll")
	assert.NotContains(t, out, "starbucks coffee")

	out, err = run("expenses", "list", "--from", "2026-02-02")
	require.NoError(t, err)
	assert.Contains(t, out, "starbucks coffee")
	assert.NotContains(t, out, "acme payroll")

	out, err = run("expenses", "update", "1", "--amount", "2600")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Updated expense 1: acme payroll (Salary)")

	out, err = run("expenses", "delete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted expense 2")

	_, err = run("expenses", "delete", "2")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = run("expenses", "add", "coffee", "--amount", "0")
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = run("expenses", "add", "   ", "--amount", "3")
	require.ErrorIs(t, err, common.ErrEmptyTitle)

	var userErr *common.UserError
	_, err = run("expenses", "list", "--from", "2026-02-01", "--to", "2026-01-01")
	require.ErrorAs(t, err, &userErr)

	_, err = run("expenses", "update", "abc", "--amount", "3")
	require.ErrorAs(t, err, &userErr)

	_, err = run("expenses", "add", "coffee", "--amount", "3", "--date", "03/02/2026")
	require.ErrorAs(t, err, &userErr)
}

func TestListFilter_Days(t *testing.T) {
	cmd := newRootCmd()
	list, _, err := cmd.Find([]string{"expenses", "list"})
	require.NoError(t, err)
	require.NoError(t, list.ParseFlags([]string{"--days", "7", "--type", "expense"}))

	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	filter, err := listFilter(list, now)
	require.NoError(t, err)
	require.NotNil(t, filter.Since)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), *filter.Since)
	assert.Nil(t, filter.Until)
	assert.Equal(t, model.TypeExpense, filter.Type)
}

func TestTrain_EnvOverrides(t *testing.T) {
	e := newEnv(t)
	t.Setenv("SPICE_TRAINING_TREES", "7")
	t.Setenv("SPICE_ARTIFACTS_DIR", e.artifacts)

	out, err := execute(t, "train", e.dataset, "--no-progress", "--no-history")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Trees:       7")
	assert.NoFileExists(t, e.database)
}

func TestInvalidConfig(t *testing.T) {
	newEnv(t)
	_, err := execute(t, "train", "--trees", "0", "--no-progress")
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestConfigFile(t *testing.T) {
	e := newEnv(t)
	cfg := filepath.Join(t.TempDir(), "spice-ml.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("training:\n  trees: 9\nartifacts:\n  dir: "+e.artifacts+"\n"), 0o600))

	out, err := execute(t, "--config", cfg, "train", e.dataset, "--no-progress", "--no-history")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Trees:       9")
}

func TestVersion(t *testing.T) {
	newEnv(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "spice-ml dev\n", out)
}
