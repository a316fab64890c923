package cmd

import (
	"github.com/sirupsen/logrus"

	"github.com/deliveryeta/registryops/pkg/config"
	"github.com/deliveryeta/registryops/pkg/registry"
	"github.com/deliveryeta/registryops/pkg/registry/rest"
	sqlstore "github.com/deliveryeta/registryops/pkg/registry/sql"
)

// openRegistry reads the backing store directly when one is configured and
// goes through the tracking server otherwise.
func openRegistry(logger *logrus.Logger, cfg *config.Config) (registry.Registry, error) {
	if cfg.UsesStore() {
		logger.Debugf("Using model registry store at %s", sqlstore.RedactURL(cfg.StoreURL))

		return sqlstore.NewSQLStore(logger, cfg)
	}

	logger.Debugf("Using model registry of tracking server %s", cfg.TrackingURI)

	return rest.NewClient(logger, cfg), nil
}
