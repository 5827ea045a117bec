// Package commands wires the ledgercheck CLI.
package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgercheck/internal/buildinfo"
	"github.com/cleared-dev/ledgercheck/internal/config"
	"github.com/cleared-dev/ledgercheck/internal/logging"
	"github.com/cleared-dev/ledgercheck/internal/runlog"
)

// Output formats for reconcile and anomalies.
const (
	outputText = "text"
	outputJSON = "json"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:     "ledgercheck",
		Short:   "Bank-to-book reconciliation and transaction anomaly scoring",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", config.Path(), "config file (env "+config.EnvPath+")")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newReconcileCommand(g))
	rootCmd.AddCommand(newAnomaliesCommand(g))
	rootCmd.AddCommand(newServeCommand(g))

	return rootCmd
}

// env is what a subcommand needs after the config is loaded.
type env struct {
	cfg    *config.Config
	logger *logrus.Logger
	runs   *runlog.Log
}

// setup loads the config (defaults when the file is absent) and builds the
// logger, which writes to the command's error stream.
func (g *globals) setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadOrDefault(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	return &env{
		cfg:    cfg,
		logger: logging.New(cfg.Logging, cmd.ErrOrStderr()),
		runs:   runlog.New(cfg.RunLog.Path),
	}, nil
}

func checkOutput(output string) error {
	if output != outputText && output != outputJSON {
		return fmt.Errorf("unknown output %q (want text or json)", output)
	}
	return nil
}
