package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/promotion"
)

func newPromoteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Promote the latest Staging version of the model to Production",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			result, err := promotion.NewPromoter(logger, reg).Promote(cmd.Context(), info.ModelName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			switch result.Outcome {
			case promotion.NoStagingModel:
				fmt.Fprintf(out, "No model version of %s in Staging\n", info.ModelName)
			case promotion.AlreadyCurrent:
				fmt.Fprintf(out, "Version %d of %s is already in Production\n", result.Staging.Version, info.ModelName)
			case promotion.PromotedOverExisting:
				fmt.Fprintf(out, "Promoted version %d of %s to Production, archived version %d\n",
					result.Staging.Version, info.ModelName, result.PreviousProduction.Version)
			case promotion.PromotedFirst:
				fmt.Fprintf(out, "Promoted version %d of %s to Production\n", result.Staging.Version, info.ModelName)
			}

			if result.Outcome.Promoted() {
				fmt.Fprintf(out, "Production model: %s\n", result.Production.URI())
			}

			return nil
		},
	}
}
