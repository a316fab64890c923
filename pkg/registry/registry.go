package registry

import (
	"context"
	"errors"

	"github.com/deliveryeta/registryops/pkg/entities"
)

// ErrUnavailable marks failures reaching the registry: network errors,
// rejected credentials and server side errors. They are never retried.
var ErrUnavailable = errors.New("model registry unavailable")

// ErrNoVersion is returned by callers that need a version at a stage and found none.
var ErrNoVersion = errors.New("no model version")

type Registry interface {
	// GetLatestVersion returns the highest version of the named model that
	// currently holds stage, or nil when there is none. A registered model
	// that does not exist has no versions in any stage.
	GetLatestVersion(ctx context.Context, name string, stage entities.Stage) (*entities.ModelVersion, error)

	// TransitionStage moves a version to stage. When archiveExisting is set
	// every other version of the model in that stage is archived as part of
	// the same call.
	TransitionStage(
		ctx context.Context,
		name string,
		version int64,
		stage entities.Stage,
		archiveExisting bool,
	) (*entities.ModelVersion, error)

	GetDownloadURI(ctx context.Context, name string, version int64) (string, error)

	Close() error
}
