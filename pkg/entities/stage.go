package entities

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageNone       Stage = "None"
	StageStaging    Stage = "Staging"
	StageProduction Stage = "Production"
	StageArchived   Stage = "Archived"

	// StageDeletedInternal marks rows soft deleted by an MLflow server, they are never returned.
	StageDeletedInternal Stage = "Deleted_Internal"
)

// Stages lists the stages a version may be transitioned to.
var Stages = []Stage{StageNone, StageStaging, StageProduction, StageArchived}

// ParseStage matches a stage name case-insensitively and returns its canonical form.
func ParseStage(value string) (Stage, error) {
	for _, stage := range Stages {
		if strings.EqualFold(strings.TrimSpace(value), string(stage)) {
			return stage, nil
		}
	}

	return "", fmt.Errorf("invalid model version stage %q, expected one of %v", value, Stages)
}

// Archivable reports whether transitioning into the stage may archive existing versions.
func (s Stage) Archivable() bool {
	return s == StageStaging || s == StageProduction
}

func (s Stage) String() string {
	return string(s)
}
