// Package harness holds the offline checks run before a model is promoted or
// served: the registry can hand out the model, and the model is accurate enough.
package harness

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/registry"
)

const TargetColumn = "time_taken"

// Failure is a check that ran to completion and did not pass. Errors that kept
// a check from running are returned as they are.
type Failure struct {
	Check   string
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s check failed: %s", f.Check, f.Message)
}

func IsFailure(err error) bool {
	var failure *Failure

	return errors.As(err, &failure)
}

type RegistryReport struct {
	Version     *entities.ModelVersion
	DownloadURI string
}

// CheckRegistry asserts the latest version at stage exists and can be downloaded.
func CheckRegistry(
	ctx context.Context, reg registry.Registry, name string, stage entities.Stage,
) (*RegistryReport, error) {
	version, err := reg.GetLatestVersion(ctx, name, stage)
	if err != nil {
		return nil, err
	}

	if version == nil {
		return nil, &Failure{Check: "registry", Message: fmt.Sprintf("no model at %s stage", stage)}
	}

	uri, err := reg.GetDownloadURI(ctx, name, version.Version)
	if err != nil {
		return nil, err
	}

	if uri == "" {
		return nil, &Failure{
			Check:   "registry",
			Message: fmt.Sprintf("failed to load model %s version %d from registry", name, version.Version),
		}
	}

	return &RegistryReport{Version: version, DownloadURI: uri}, nil
}

type Predictor interface {
	Predict(ctx context.Context, records []entities.Record) ([]float64, error)
}

type PerformanceReport struct {
	Rows              int
	DroppedRows       int
	MeanAbsoluteError float64
	Threshold         float64
}

// CheckPerformance scores the cleaned test set at path and compares the mean
// absolute error of the predicted delivery times against threshold.
func CheckPerformance(
	ctx context.Context, predictor Predictor, path string, threshold float64,
) (*PerformanceReport, error) {
	records, targets, dropped, err := readTestData(path)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, &Failure{Check: "performance", Message: fmt.Sprintf("no complete rows in %s", path)}
	}

	predictions, err := predictor.Predict(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to predict test data: %w", err)
	}

	if len(predictions) != len(targets) {
		return nil, fmt.Errorf("expected %d predictions, got %d", len(targets), len(predictions))
	}

	report := &PerformanceReport{
		Rows:              len(records),
		DroppedRows:       dropped,
		MeanAbsoluteError: MeanAbsoluteError(targets, predictions),
		Threshold:         threshold,
	}

	if report.MeanAbsoluteError > threshold {
		return report, &Failure{
			Check: "performance",
			Message: fmt.Sprintf(
				"mean absolute error %.3f does not pass the threshold of %g minutes",
				report.MeanAbsoluteError, threshold,
			),
		}
	}

	return report, nil
}

func MeanAbsoluteError(expected, actual []float64) float64 {
	if len(expected) == 0 {
		return 0
	}

	var sum float64
	for i := range expected {
		sum += math.Abs(expected[i] - actual[i])
	}

	return sum / float64(len(expected))
}

// readTestData splits the target column from the features and drops every row
// with a missing value.
func readTestData(path string) ([]entities.Record, []float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to open test data: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to read test data header: %w", err)
	}

	target := -1
	for i, column := range header {
		header[i] = strings.TrimSpace(column)
		if header[i] == TargetColumn {
			target = i
		}
	}

	if target < 0 {
		return nil, nil, 0, fmt.Errorf("test data has no %s column", TargetColumn)
	}

	var records []entities.Record
	var targets []float64
	dropped := 0

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to read test data: %w", err)
		}

		record, ok := parseRow(header, row)
		if !ok {
			dropped++

			continue
		}

		value, ok := record.Float(TargetColumn)
		if !ok {
			return nil, nil, 0, fmt.Errorf("invalid %s value %q", TargetColumn, row[target])
		}

		delete(record, TargetColumn)
		records = append(records, record)
		targets = append(targets, value)
	}

	return records, targets, dropped, nil
}

func parseRow(header, row []string) (entities.Record, bool) {
	record := make(entities.Record, len(header))

	for i, column := range header {
		value := strings.TrimSpace(row[i])
		if entities.IsMissing(value) {
			return nil, false
		}

		if number, err := strconv.ParseFloat(value, 64); err == nil {
			record[column] = number
		} else {
			record[column] = value
		}
	}

	return record, true
}
