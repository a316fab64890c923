package server

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deliveryeta/registryops/pkg/config"
)

const modelURIPlaceholder = "{model_uri}"

// servingCommandArgs substitutes the model uri into the configured command.
func servingCommandArgs(cfg *config.Config, modelURI string) []string {
	args := make([]string, 0, len(cfg.ServingCommand))
	for _, arg := range cfg.ServingCommand {
		args = append(args, strings.ReplaceAll(arg, modelURIPlaceholder, modelURI))
	}

	return args
}

// servingCommandEnv hands the registry credentials to the model server so it
// can download the pinned model.
func servingCommandEnv(cfg *config.Config) []string {
	env := make([]string, 0, 3)
	if cfg.TrackingURI != "" {
		env = append(env, "MLFLOW_TRACKING_URI="+cfg.TrackingURI)
	}
	if cfg.Username != "" {
		env = append(env, "MLFLOW_TRACKING_USERNAME="+cfg.Username)
	}
	if cfg.Token != "" {
		env = append(env, "MLFLOW_TRACKING_PASSWORD="+cfg.Token)
	}

	return env
}

func launchCommand(ctx context.Context, log *logrus.Logger, cfg *config.Config, modelURI string) error {
	args := servingCommandArgs(cfg, modelURI)

	//nolint:gosec
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), servingCommandEnv(cfg)...)
	cmd.Stdout = log.Writer()
	cmd.Stderr = log.Writer()
	cmd.WaitDelay = 5 * time.Second //nolint:mnd
	cmd.Cancel = func() error {
		log.Debug("Sending termination signal to model server")

		switch runtime.GOOS {
		case "windows":
			return cmd.Process.Kill()
		default:
			return cmd.Process.Signal(syscall.SIGTERM)
		}
	}
	isolateModelServer(cmd)

	log.Debugf("Launching model server: %v", args)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("model server could not launch: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("model server exited with error: %w", err)
	}

	return nil
}
