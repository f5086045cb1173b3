package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/metrics"
	"github.com/Veraticus/spice-categorizer/internal/predict"
	"github.com/Veraticus/spice-categorizer/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Long: `Serve loads the trained model and answers POST /api/expenses/predict with
{"title": "...", "amount": 12.5}. The process exits without listening when
the model cannot be loaded.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	cmd.Flags().Int("port", 5001, "port to listen on")
	cmd.Flags().String("cors-origin", "*", "Access-Control-Allow-Origin value (empty disables CORS)")

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	s := a.settings

	p, err := predict.Load(s.ArtifactDir)
	if err != nil {
		return artifactError(s.ArtifactDir, err)
	}

	m := metrics.New()
	m.SetModel(p.RunID(), p.Trees(), p.VocabularySize())

	slog.Info("Model loaded",
		"dir", s.ArtifactDir,
		"run_id", p.RunID(),
		"categories", len(p.Categories()))

	opts := server.DefaultOptions()
	opts.CORSOrigin = s.Server.CORSOrigin

	return server.New(s.Server.Addr(), p, m, opts).Run(cmd.Context())
}
