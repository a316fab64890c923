package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/harness"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	check := &cobra.Command{
		Use:   "check",
		Short: "Run the offline checks against the model registry and the test set",
	}

	check.AddCommand(newCheckRegistryCommand(opts), newCheckPerformanceCommand(opts))

	return check
}

func newCheckRegistryCommand(opts *rootOptions) *cobra.Command {
	var stageName string

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Check that the latest model at a stage can be loaded from the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stage, err := entities.ParseStage(stageName)
			if err != nil {
				return err
			}

			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			info, err := entities.LoadRunInformation(cfg.RunInformationPath)
			if err != nil {
				return err
			}

			reg, err := openRegistry(logger, cfg)
			if err != nil {
				return err
			}
			defer reg.Close()

			report, err := harness.CheckRegistry(cmd.Context(), reg, info.ModelName, stage)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "The %s model with version %d was loaded successfully from %s\n",
				info.ModelName, report.Version.Version, report.DownloadURI)

			return nil
		},
	}

	cmd.Flags().StringVar(&stageName, "stage", entities.StageStaging.String(), "stage to look up")

	return cmd
}

func newCheckPerformanceCommand(opts *rootOptions) *cobra.Command {
	var (
		stageName string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "performance",
		Short: "Check the mean absolute error of the model on the test set",
		Long: "Scores the test set against the model server at MODEL_SERVING_URL, " +
			"which must be serving the model at the given stage.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stage, err := entities.ParseStage(stageName)
			if err != nil {
				return err
			}

			cfg, logger, err := opts.setup(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("threshold") {
				cfg.ThresholdError = threshold
			}

			version, err := resolveVersion(cmd.Context(), logger, cfg, stage)
			if err != nil {
				return err
			}

			pipe, err := newPipeline(cfg, version)
			if err != nil {
				return err
			}

			report, err := harness.CheckPerformance(cmd.Context(), pipe, cfg.TestDataPath, cfg.ThresholdError)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "The %s model passed the performance test with an average error of %.3f minutes\n",
				version.Name, report.MeanAbsoluteError)

			return nil
		},
	}

	cmd.Flags().StringVar(&stageName, "stage", entities.StageStaging.String(), "stage of the model being scored")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "maximum mean absolute error in minutes, overrides THRESHOLD_ERROR")

	return cmd
}
