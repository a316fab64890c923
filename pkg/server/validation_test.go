package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type validationScenario struct {
	name          string
	input         any
	shouldTrigger bool
}

func runscenarios(t *testing.T, scenarios []validationScenario) {
	t.Helper()

	validator, err := NewValidator()
	require.NoError(t, err)

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			errs := validator.Struct(scenario.input)

			if scenario.shouldTrigger && errs == nil {
				t.Errorf("Expected validation error, got nil")
			}

			if !scenario.shouldTrigger && errs != nil {
				t.Errorf("Expected no validation error, got %v", errs)
			}
		})
	}
}

type orderDate struct {
	Value string `validate:"orderDate"`
}

func TestOrderDate(t *testing.T) {
	scenarios := []validationScenario{
		{
			name:          "day first",
			input:         orderDate{Value: "19-03-2022"},
			shouldTrigger: false,
		},
		{
			name:          "iso date",
			input:         orderDate{Value: "2022-03-19"},
			shouldTrigger: true,
		},
		{
			name:          "month out of range",
			input:         orderDate{Value: "19-13-2022"},
			shouldTrigger: true,
		},
		{
			name:          "empty",
			input:         orderDate{Value: ""},
			shouldTrigger: true,
		},
	}

	runscenarios(t, scenarios)
}

type timeOfDay struct {
	Value string `validate:"timeOfDayOrMissing"`
}

func TestTimeOfDayOrMissing(t *testing.T) {
	scenarios := []validationScenario{
		{
			name:          "hours minutes seconds",
			input:         timeOfDay{Value: "11:30:00"},
			shouldTrigger: false,
		},
		{
			name:          "hours minutes",
			input:         timeOfDay{Value: "23:05"},
			shouldTrigger: false,
		},
		{
			name:          "empty is missing",
			input:         timeOfDay{Value: ""},
			shouldTrigger: false,
		},
		{
			name:          "nan is missing",
			input:         timeOfDay{Value: "NaN "},
			shouldTrigger: false,
		},
		{
			name:          "not a time",
			input:         timeOfDay{Value: "noon"},
			shouldTrigger: true,
		},
		{
			name:          "hour out of range",
			input:         timeOfDay{Value: "25:00"},
			shouldTrigger: true,
		},
	}

	runscenarios(t, scenarios)
}
