// Package promotion moves the latest Staging version of a model to Production.
package promotion

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/registry"
)

type Outcome int

const (
	// NoStagingModel means there was nothing to promote.
	NoStagingModel Outcome = iota
	// AlreadyCurrent means the latest Staging version already is the Production version.
	AlreadyCurrent
	// PromotedFirst means the model had no Production version before.
	PromotedFirst
	// PromotedOverExisting means the previous Production versions were archived.
	PromotedOverExisting
)

func (o Outcome) String() string {
	switch o {
	case NoStagingModel:
		return "NoStagingModel"
	case AlreadyCurrent:
		return "AlreadyCurrent"
	case PromotedFirst:
		return "PromotedFirst"
	case PromotedOverExisting:
		return "PromotedOverExisting"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Promoted reports whether the outcome changed the registry.
func (o Outcome) Promoted() bool {
	return o == PromotedFirst || o == PromotedOverExisting
}

type Result struct {
	Outcome Outcome
	// Staging is the version found in Staging, nil for NoStagingModel.
	Staging *entities.ModelVersion
	// PreviousProduction is the Production version before the call, if any.
	PreviousProduction *entities.ModelVersion
	// Production is the version holding Production after the call.
	Production *entities.ModelVersion
}

type Promoter struct {
	logger   *logrus.Logger
	registry registry.Registry
}

func NewPromoter(logger *logrus.Logger, registry registry.Registry) *Promoter {
	return &Promoter{
		logger:   logger,
		registry: registry,
	}
}

// Promote inspects the Staging and Production versions of the model and
// transitions the Staging version to Production when they differ.
// Registry errors are returned as they come, nothing is retried.
func (p *Promoter) Promote(ctx context.Context, name string) (*Result, error) {
	logger := p.logger.WithField("model", name)

	staging, err := p.registry.GetLatestVersion(ctx, name, entities.StageStaging)
	if err != nil {
		return nil, fmt.Errorf("failed to look up staging version: %w", err)
	}

	if staging == nil {
		logger.WithField("outcome", NoStagingModel).Warn("No model version in Staging, nothing to promote")

		return &Result{Outcome: NoStagingModel}, nil
	}

	production, err := p.registry.GetLatestVersion(ctx, name, entities.StageProduction)
	if err != nil {
		return nil, fmt.Errorf("failed to look up production version: %w", err)
	}

	result := &Result{
		Staging:            staging,
		PreviousProduction: production,
	}

	switch {
	case production != nil && production.Version == staging.Version:
		result.Outcome = AlreadyCurrent
		result.Production = production

		logger.WithFields(logrus.Fields{
			"version": staging.Version,
			"outcome": result.Outcome,
		}).Info("Staging version is already in Production")

		return result, nil
	case production != nil:
		result.Outcome = PromotedOverExisting
	default:
		result.Outcome = PromotedFirst
	}

	promoted, err := p.registry.TransitionStage(ctx, name, staging.Version, entities.StageProduction, true)
	if err != nil {
		return nil, fmt.Errorf("failed to promote version %d: %w", staging.Version, err)
	}

	result.Production = promoted

	fields := logrus.Fields{
		"version": staging.Version,
		"outcome": result.Outcome,
	}
	if production != nil {
		fields["archived"] = production.Version
	}

	logger.WithFields(fields).Info("Promoted model version to Production")

	return result, nil
}
