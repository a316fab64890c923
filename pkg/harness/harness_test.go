package harness_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/harness"
	"github.com/deliveryeta/registryops/pkg/registry"
)

type fakeRegistry struct {
	registry.Registry
	version *entities.ModelVersion
	uri     string
	err     error
}

func (f *fakeRegistry) GetLatestVersion(context.Context, string, entities.Stage) (*entities.ModelVersion, error) {
	return f.version, f.err
}

func (f *fakeRegistry) GetDownloadURI(context.Context, string, int64) (string, error) {
	return f.uri, nil
}

func TestCheckRegistry(t *testing.T) {
	t.Parallel()

	version := &entities.ModelVersion{Name: "delivery_time", Version: 3, CurrentStage: entities.StageStaging}

	report, err := harness.CheckRegistry(
		context.Background(),
		&fakeRegistry{version: version, uri: "s3://bucket/3/artifacts/model"},
		"delivery_time",
		entities.StageStaging,
	)
	require.NoError(t, err)
	assert.Equal(t, version, report.Version)
	assert.Equal(t, "s3://bucket/3/artifacts/model", report.DownloadURI)
}

func TestCheckRegistryFailures(t *testing.T) {
	t.Parallel()

	_, err := harness.CheckRegistry(context.Background(), &fakeRegistry{}, "delivery_time", entities.StageStaging)
	require.Error(t, err)
	assert.True(t, harness.IsFailure(err))
	assert.Contains(t, err.Error(), "no model at Staging stage")

	_, err = harness.CheckRegistry(
		context.Background(),
		&fakeRegistry{version: &entities.ModelVersion{Name: "delivery_time", Version: 3}},
		"delivery_time",
		entities.StageStaging,
	)
	require.Error(t, err)
	assert.True(t, harness.IsFailure(err))

	_, err = harness.CheckRegistry(
		context.Background(),
		&fakeRegistry{err: registry.ErrUnavailable},
		"delivery_time",
		entities.StageStaging,
	)
	require.ErrorIs(t, err, registry.ErrUnavailable)
	assert.False(t, harness.IsFailure(err))
}

type constantPredictor struct {
	value   float64
	records []entities.Record
	err     error
}

func (p *constantPredictor) Predict(_ context.Context, records []entities.Record) ([]float64, error) {
	p.records = records
	if p.err != nil {
		return nil, p.err
	}

	predictions := make([]float64, len(records))
	for i := range predictions {
		predictions[i] = p.value
	}

	return predictions, nil
}

func TestCheckPerformance(t *testing.T) {
	t.Parallel()

	// Complete rows have targets 24, 32 and 22.
	predictor := &constantPredictor{value: 26}

	report, err := harness.CheckPerformance(context.Background(), predictor, "testdata/test.csv", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2, report.DroppedRows)
	assert.InDelta(t, 4.0, report.MeanAbsoluteError, 1e-9)

	require.Len(t, predictor.records, 3)
	for _, record := range predictor.records {
		assert.NotContains(t, record, harness.TargetColumn)
	}
	assert.Equal(t, "sunny", predictor.records[0]["weather"])
	assert.InDelta(t, 37.0, predictor.records[0]["age"], 1e-9)
}

func TestCheckPerformanceAboveThreshold(t *testing.T) {
	t.Parallel()

	report, err := harness.CheckPerformance(
		context.Background(), &constantPredictor{value: 26}, "testdata/test.csv", 3,
	)
	require.Error(t, err)
	assert.True(t, harness.IsFailure(err))
	assert.InDelta(t, 4.0, report.MeanAbsoluteError, 1e-9)
}

func TestCheckPerformanceErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	noTarget := filepath.Join(dir, "no_target.csv")
	require.NoError(t, os.WriteFile(noTarget, []byte("age,ratings\n30,4.5\n"), 0o600))

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("age,time_taken\nNaN,20\n"), 0o600))

	_, err := harness.CheckPerformance(context.Background(), &constantPredictor{}, noTarget, 5)
	require.Error(t, err)
	assert.False(t, harness.IsFailure(err))

	_, err = harness.CheckPerformance(context.Background(), &constantPredictor{}, empty, 5)
	assert.True(t, harness.IsFailure(err))

	_, err = harness.CheckPerformance(context.Background(), &constantPredictor{}, filepath.Join(dir, "nope.csv"), 5)
	require.Error(t, err)

	boom := errors.New("boom")
	_, err = harness.CheckPerformance(context.Background(), &constantPredictor{err: boom}, "testdata/test.csv", 5)
	require.ErrorIs(t, err, boom)
}

func TestMeanAbsoluteError(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, harness.MeanAbsoluteError(nil, nil), 1e-9)
	assert.InDelta(t, 1.5, harness.MeanAbsoluteError([]float64{1, 2}, []float64{2, 4}), 1e-9)
}
