// Package cmd wires the registry, promotion, prediction service and offline
// checks into the deliveryops command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deliveryeta/registryops/pkg/config"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "deliveryops",
		Short:         "Registry operations and serving for the delivery time model",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	root.AddCommand(
		newPromoteCommand(opts),
		newServeCommand(opts),
		newCheckCommand(opts),
	)

	return root
}

// setup loads and validates the configuration and builds the logger.
// Nothing remote is touched before it returns.
func (o *rootOptions) setup(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, nil, err
	}

	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	logger.SetOutput(cmd.ErrOrStderr())

	return cfg, logger, nil
}

func newLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, &config.Error{Invalid: []string{"LOG_LEVEL=" + level}}
	}

	logger.SetLevel(logLevel)

	return logger, nil
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
