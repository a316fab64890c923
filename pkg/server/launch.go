package server

import (
	"context"
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/deliveryeta/registryops/pkg/config"
)

// Launch serves app until ctx is cancelled. With a serving command configured
// the model server is started alongside it and either one exiting stops the other.
func Launch(ctx context.Context, log *logrus.Logger, cfg *config.Config, app *fiber.App, modelURI string) error {
	if len(cfg.ServingCommand) > 0 {
		return launchCommandAndServer(ctx, log, cfg, app, modelURI)
	}

	return launchServer(ctx, log, cfg, app)
}

func launchCommandAndServer(
	ctx context.Context, log *logrus.Logger, cfg *config.Config, app *fiber.App, modelURI string,
) error {
	var cmdErr, srvErr error
	var wg sync.WaitGroup

	cmdCtx, cmdCancel := context.WithCancel(ctx)
	srvCtx, srvCancel := context.WithCancel(ctx)

	defer cmdCancel()
	defer srvCancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := launchCommand(cmdCtx, log, cfg, modelURI); err != nil && cmdCtx.Err() == nil {
			cmdErr = err
		}
		srvCancel()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := launchServer(srvCtx, log, cfg, app); err != nil && srvCtx.Err() == nil {
			srvErr = err
		}
		cmdCancel()
	}()

	wg.Wait()

	return errors.Join(cmdErr, srvErr)
}
