package preprocess_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deliveryeta/registryops/pkg/entities"
	"github.com/deliveryeta/registryops/pkg/preprocess"
)

func load(t *testing.T) *preprocess.Preprocessor {
	t.Helper()

	preprocessor, err := preprocess.Load(filepath.Join("testdata", "preprocessor.yaml"))
	require.NoError(t, err)

	return preprocessor
}

func record() entities.Record {
	return entities.Record{
		"age":                 35.31,
		"ratings":             4.63,
		"pickup_time_minutes": 15.0,
		"distance":            3.0,
		"traffic":             "high",
		"distance_type":       "short",
		"weather":             "sunny",
		"type_of_order":       "snack",
		"type_of_vehicle":     "motorcycle",
		"festival":            "no",
		"city_type":           "urban",
		"order_time_of_day":   "morning",
		"vehicle_condition":   2.0,
		"multiple_deliveries": 0.0,
		"is_weekend":          1.0,
		"city_name":           "INDO",
	}
}

func TestTransform(t *testing.T) {
	t.Parallel()

	preprocessor := load(t)

	features, err := preprocessor.Transform(record())
	require.NoError(t, err)

	assert.Len(t, features, len(preprocessor.FeatureNames()))
	assert.InDelta(t, 1.0, features["scale__age"], 1e-9)
	assert.InDelta(t, 0.0, features["scale__ratings"], 1e-9)
	assert.InDelta(t, 2.0, features["ordinal__traffic"], 1e-9)
	assert.InDelta(t, 0.0, features["ordinal__distance_type"], 1e-9)
	assert.InDelta(t, 1.0, features["nominal__weather_sunny"], 1e-9)
	assert.InDelta(t, 0.0, features["nominal__weather_fog"], 1e-9)
	assert.NotContains(t, features, "nominal__weather_cloudy")
	assert.InDelta(t, 1.0, features["nominal__order_time_of_day_morning"], 1e-9)
	assert.InDelta(t, 2.0, features["remainder__vehicle_condition"], 1e-9)
	assert.NotContains(t, features, "city_name")
}

func TestTransformMissingValues(t *testing.T) {
	t.Parallel()

	preprocessor := load(t)

	withFill := record()
	withFill["pickup_time_minutes"] = nil
	withFill["weather"] = nil

	features, err := preprocessor.Transform(withFill)
	require.NoError(t, err)
	assert.InDelta(t, (10-9.99)/4.09, features["scale__pickup_time_minutes"], 1e-9)
	for _, weather := range []string{"fog", "sandstorms", "stormy", "sunny", "windy"} {
		assert.InDelta(t, 0.0, features["nominal__weather_"+weather], 1e-9)
	}

	withoutAge := record()
	delete(withoutAge, "age")

	_, err = preprocessor.Transform(withoutAge)
	require.ErrorIs(t, err, preprocess.ErrMissingValue)

	unknownTraffic := record()
	unknownTraffic["traffic"] = "gridlock"

	_, err = preprocessor.Transform(unknownTraffic)
	require.Error(t, err)
}

func TestFeatureNamesOrder(t *testing.T) {
	t.Parallel()

	names := load(t).FeatureNames()
	require.NotEmpty(t, names)
	assert.Equal(t, "scale__age", names[0])
	assert.Equal(t, "remainder__is_weekend", names[len(names)-1])
}

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	t.Parallel()

	scenarios := []struct {
		name       string
		definition preprocess.Definition
	}{
		{
			name:       "zero scale",
			definition: preprocess.Definition{Numeric: []preprocess.NumericColumn{{Column: "age"}}},
		},
		{
			name: "duplicate column",
			definition: preprocess.Definition{
				Numeric:     []preprocess.NumericColumn{{Column: "age", Scale: 1}},
				Passthrough: []string{"age"},
			},
		},
		{
			name:       "no categories",
			definition: preprocess.Definition{Nominal: []preprocess.NominalColumn{{Column: "weather"}}},
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			t.Parallel()

			_, err := preprocess.New(scenario.definition)
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "preprocessor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("numerical:\n  - column: age\n"), 0o600))

	_, err := preprocess.Load(path)
	require.Error(t, err)
}

func ptr(v float64) *float64 {
	return &v
}

func TestNewWithDefinition(t *testing.T) {
	t.Parallel()

	preprocessor, err := preprocess.New(preprocess.Definition{
		Numeric: []preprocess.NumericColumn{
			{Column: "distance", Mean: 10, Scale: 5, Fill: ptr(10.0)},
		},
		Ordinal: []preprocess.OrdinalColumn{
			{Column: "traffic", Categories: []string{"low", "medium", "high", "jam"}, UnknownValue: ptr(-1.0)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"scale__distance", "ordinal__traffic"}, preprocessor.FeatureNames())

	features, err := preprocessor.Transform(entities.Record{"distance": nil, "traffic": "gridlock"})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, features["scale__distance"], 1e-9)
	assert.InDelta(t, -1.0, features["ordinal__traffic"], 1e-9)

	_, err = preprocess.New(preprocess.Definition{
		Numeric: []preprocess.NumericColumn{{Column: "distance", Scale: 0}},
	})
	require.Error(t, err)
}
