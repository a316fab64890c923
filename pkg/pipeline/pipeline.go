// Package pipeline composes the fitted preprocessor with the served model.
package pipeline

import (
	"context"
	"fmt"

	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/preprocess"
)

type Model interface {
	Predict(ctx context.Context, rows []map[string]float64) ([]float64, error)
}

type Pipeline struct {
	preprocessor *preprocess.Preprocessor
	model        Model
	version      *entities.ModelVersion
}

// New builds a pipeline for the given model version. The version is only
// informational, predictions are answered by model.
func New(preprocessor *preprocess.Preprocessor, model Model, version *entities.ModelVersion) *Pipeline {
	return &Pipeline{
		preprocessor: preprocessor,
		model:        model,
		version:      version,
	}
}

func (p *Pipeline) Version() *entities.ModelVersion {
	return p.version
}

// Predict transforms the records and scores them in one call.
func (p *Pipeline) Predict(ctx context.Context, records []entities.Record) ([]float64, error) {
	rows := make([]map[string]float64, 0, len(records))

	for i, record := range records {
		row, err := p.preprocessor.Transform(record)
		if err != nil {
			return nil, fmt.Errorf("failed to transform record %d: %w", i, err)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return []float64{}, nil
	}

	return p.model.Predict(ctx, rows)
}
