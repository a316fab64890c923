package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/deliveryeta/registryops/pkg/config"
	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/pipeline"
	"github.com/deliveryeta/registryops/pkg/preprocess"
	"github.com/deliveryeta/registryops/pkg/registry"
	"github.com/deliveryeta/registryops/pkg/server"
)

// resolveVersion returns the latest version of the run's model at stage.
func resolveVersion(
	ctx context.Context, logger *logrus.Logger, cfg *config.Config, stage entities.Stage,
) (*entities.ModelVersion, error) {
	info, err := entities.LoadRunInformation(cfg.RunInformationPath)
	if err != nil {
		return nil, err
	}

	reg, err := openRegistry(logger, cfg)
	if err != nil {
		return nil, err
	}
	defer reg.Close()

	version, err := reg.GetLatestVersion(ctx, info.ModelName, stage)
	if err != nil {
		return nil, err
	}

	if version == nil {
		return nil, fmt.Errorf("no version of %s in %s: %w", info.ModelName, stage, registry.ErrNoVersion)
	}

	return version, nil
}

func newPipeline(cfg *config.Config, version *entities.ModelVersion) (*pipeline.Pipeline, error) {
	preprocessor, err := preprocess.Load(cfg.PreprocessorPath)
	if err != nil {
		return nil, err
	}

	return pipeline.New(preprocessor, pipeline.NewScoringClient(cfg.ModelServingURL, cfg.RequestTimeout), version), nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve delivery time predictions with the Production model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			version, err := resolveVersion(ctx, logger, cfg, entities.StageProduction)
			if err != nil {
				return err
			}

			pipe, err := newPipeline(cfg, version)
			if err != nil {
				return err
			}

			app, err := server.NewApp(logger, cfg, pipe)
			if err != nil {
				return err
			}

			served := pipe.Version()

			logger.WithFields(logrus.Fields{
				"model":   served.Name,
				"version": served.Version,
			}).Info("Loaded Production model")

			return server.Launch(ctx, logger, cfg, app, served.URI())
		},
	}
}
