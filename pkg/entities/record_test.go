package entities_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deliveryeta/registryops/pkg/entities"
)

func TestRecordAccessors(t *testing.T) {
	t.Parallel()

	record := entities.Record{
		"age":      "34",
		"ratings":  4.5,
		"weather":  "sunny",
		"traffic":  "NaN ",
		"rating2":  math.NaN(),
		"festival": nil,
	}

	age, ok := record.Float("age")
	assert.True(t, ok)
	assert.InDelta(t, 34.0, age, 1e-9)

	_, ok = record.Float("weather")
	assert.False(t, ok)

	ratings, ok := record.String("ratings")
	assert.True(t, ok)
	assert.Equal(t, "4.5", ratings)

	assert.True(t, record.Missing("traffic"))
	assert.True(t, record.Missing("rating2"))
	assert.True(t, record.Missing("festival"))
	assert.True(t, record.Missing("absent"))
	assert.False(t, record.Missing("weather"))
	assert.True(t, record.HasMissing())

	assert.False(t, entities.Record{"age": 30.0}.HasMissing())
}
