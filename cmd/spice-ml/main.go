package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/config"
)

var version = "dev"

// flagKeys maps command flags onto configuration keys. A flag only
// overrides the key when the running command defines it.
var flagKeys = map[string]string{
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"artifacts":    "artifacts.dir",
	"database":     "database.path",
	"dataset":      "training.dataset",
	"seed":         "training.seed",
	"test-size":    "training.test_size",
	"trees":        "training.trees",
	"max-features": "training.max_features",
	"workers":      "training.workers",
	"port":         "server.port",
	"cors-origin":  "server.cors_origin",
	"amqp-url":     "amqp.url",
}

// app carries configuration from the root command to its subcommands.
type app struct {
	v        *viper.Viper
	settings *config.Settings
	cfgFile  string
	envFile  string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "spice-ml",
		Short: "🌶️  Expense category prediction",
		Long: `spice-ml learns expense categories from a labeled CSV of titles and amounts,
then predicts the category of new expenses from the command line or over HTTP.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.initConfig,
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/spice/spice-ml.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")
	root.PersistentFlags().String("artifacts", "", "model artifact directory")

	root.AddCommand(
		a.trainCmd(),
		a.serveCmd(),
		a.predictCmd(),
		a.evaluateCmd(),
		a.runsCmd(),
		a.expensesCmd(),
		versionCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		var userErr *common.UserError
		if errors.As(err, &userErr) {
			fmt.Fprintln(os.Stderr, cli.FormatError(userErr.UserMessage))
		} else {
			fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		}
		os.Exit(1)
	}
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	config.SetDefaults(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(config.ExpandPath(a.cfgFile))
	} else {
		a.v.AddConfigPath(config.ConfigDir())
		a.v.AddConfigPath(".")
		a.v.SetConfigName("spice-ml")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("SPICE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := a.bindFlags(cmd.Flags()); err != nil {
		return err
	}

	settings, err := config.FromViper(a.v)
	if err != nil {
		return common.NewUserError("Configuration is invalid", err)
	}
	a.settings = settings

	if err := common.SetupLogger(os.Stderr, settings.Logging.Level, settings.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func (a *app) bindFlags(flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := a.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", name, err)
		}
	}
	return nil
}

// artifactError reports a missing model as a user error.
func artifactError(dir string, err error) error {
	if errors.Is(err, common.ErrArtifactNotFound) {
		return common.NewUserError(
			fmt.Sprintf("No model found in %s. Run 'spice-ml train' first.", filepath.Clean(dir)), err)
	}
	return fmt.Errorf("failed to load model from %s: %w", dir, err)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "spice-ml %s\n", version)
			return err
		},
	}
}
