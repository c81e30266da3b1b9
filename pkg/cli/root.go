// Package cli implements the ekaya-insight command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
)

// options are the persistent flags plus what PersistentPreRunE loads from them.
type options struct {
	version    string
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{version: version}

	root := &cobra.Command{
		Use:   "ekaya-insight",
		Short: "Ask questions about a dataset in plain language",
		Long: "ekaya-insight turns natural-language questions into read-only SQL against the " +
			"loaded dataset and suggests how to chart the result.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath, "path to config.yaml")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newAskCommand(opts))
	root.AddCommand(newCheckCommand(opts))
	root.AddCommand(newVersionCommand(opts))
	return root
}

func (o *options) load() error {
	cfg, err := config.LoadFrom(o.configPath, o.version)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}

func newVersionCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ekaya-insight %s\n", opts.version)
			return err
		},
	}
}
