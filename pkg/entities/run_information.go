package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrMissingModelName = errors.New("run information has no model_name")

// RunInformation is written by the training step next to the registered model.
type RunInformation struct {
	ModelName    string `json:"model_name"`
	RunID        string `json:"run_id,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	ModelURI     string `json:"model_uri,omitempty"`
}

func LoadRunInformation(path string) (*RunInformation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run information %q: %w", path, err)
	}

	var info RunInformation
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode run information %q: %w", path, err)
	}

	info.ModelName = strings.TrimSpace(info.ModelName)
	if info.ModelName == "" {
		return nil, fmt.Errorf("%q: %w", path, ErrMissingModelName)
	}

	return &info, nil
}
