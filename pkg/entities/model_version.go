package entities

import "fmt"

type ModelVersion struct {
	Name                 string
	Version              int64
	CurrentStage         Stage
	Source               string
	RunID                string
	Status               string
	CreationTimestamp    int64
	LastUpdatedTimestamp int64
}

// URI is the models:/ reference MLflow clients use to load this version.
func (m *ModelVersion) URI() string {
	return fmt.Sprintf("models:/%s/%d", m.Name, m.Version)
}
