package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deliveryeta/registryops/pkg/config"
	"github.com/deliveryeta/registryops/pkg/contract"
	"github.com/deliveryeta/registryops/pkg/pipeline"
)

func newErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *contract.Error
		if !errors.As(err, &e) {
			code := contract.ErrorCodeInternalError

			var f *fiber.Error
			if errors.As(err, &f) {
				switch f.Code {
				case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity, fiber.StatusRequestEntityTooLarge:
					code = contract.ErrorCodeBadRequest
				case fiber.StatusServiceUnavailable:
					code = contract.ErrorCodeServiceUnderMaintenance
				case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
					code = contract.ErrorCodeEndpointNotFound
				}
			}

			e = contract.NewError(code, err.Error())
		}

		var fn func(format string, args ...any)

		switch e.StatusCode() {
		case fiber.StatusBadRequest:
			fn = log.Infof
		case fiber.StatusServiceUnavailable:
			fn = log.Warnf
		case fiber.StatusNotFound:
			fn = log.Debugf
		default:
			fn = log.Errorf
		}

		fn("Error encountered in %s %s: %s", c.Method(), c.Path(), err)

		return c.Status(e.StatusCode()).JSON(e)
	}
}

// NewApp builds the prediction service. A nil predictor is served, every
// prediction then answers that the model is not loaded.
func NewApp(log *logrus.Logger, cfg *config.Config, predictor Predictor) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		BodyLimit:             1024 * 1024,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "registryops/" + cfg.Version,
		DisableStartupMessage: true,
		ErrorHandler:          newErrorHandler(log),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(compress.New())
	app.Use(logger.New(logger.Config{
		Format: "${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
		Output: log.Writer(),
	}))

	parser, err := NewHTTPRequestParser()
	if err != nil {
		return nil, err
	}

	NewPredictionService(parser, predictor).RegisterRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.SendString(cfg.Version)
	})

	return app, nil
}

// scoringPollInterval is the delay between readiness probes of the model server.
var scoringPollInterval = time.Second

// waitForScoringServer blocks until the model server answers its readiness
// probe. A server that accepts connections but is still loading the model
// answers /ping with an error status and is not ready yet.
func waitForScoringServer(ctx context.Context, log *logrus.Logger, cfg *config.Config) error {
	client := pipeline.NewScoringClient(cfg.ModelServingURL, cfg.RequestTimeout)

	ticker := time.NewTicker(scoringPollInterval)
	defer ticker.Stop()

	for attempt := 0; ; attempt++ {
		err := client.Ping(ctx)
		if err == nil {
			log.Infof("Model server at %s is ready", cfg.ModelServingURL)

			return nil
		}

		if attempt == 0 {
			log.Infof("Waiting for model server at %s: %v", cfg.ModelServingURL, err)
		} else {
			log.Debugf("Model server at %s not ready yet: %v", cfg.ModelServingURL, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("model server at %s never became ready: %w", cfg.ModelServingURL, ctx.Err())
		case <-ticker.C:
		}
	}
}

func launchServer(ctx context.Context, log *logrus.Logger, cfg *config.Config, app *fiber.App) error {
	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
			log.Errorf("Failed to gracefully shutdown prediction server: %v", err)
		}
	}()

	if err := waitForScoringServer(ctx, log, cfg); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return nil
	}

	log.Infof("Prediction server listening on %s", cfg.Address)

	if err := app.Listen(cfg.Address); err != nil {
		return fmt.Errorf("failed to start prediction server: %w", err)
	}

	return nil
}
