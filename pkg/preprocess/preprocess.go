// Package preprocess applies a fitted column transform exported from training.
package preprocess

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deliveryeta/registryops/pkg/entities"
)

var ErrMissingValue = errors.New("missing value")

type NumericColumn struct {
	Column string   `yaml:"column"`
	Mean   float64  `yaml:"mean"`
	Scale  float64  `yaml:"scale"`
	Fill   *float64 `yaml:"fill,omitempty"`
}

type OrdinalColumn struct {
	Column       string   `yaml:"column"`
	Categories   []string `yaml:"categories"`
	UnknownValue *float64 `yaml:"unknown_value,omitempty"`
}

type NominalColumn struct {
	Column     string   `yaml:"column"`
	Categories []string `yaml:"categories"`
	DropFirst  bool     `yaml:"drop_first,omitempty"`
}

// Definition is the fitted state of the transform.
type Definition struct {
	Numeric     []NumericColumn `yaml:"numeric"`
	Ordinal     []OrdinalColumn `yaml:"ordinal"`
	Nominal     []NominalColumn `yaml:"nominal"`
	Passthrough []string        `yaml:"passthrough"`
}

type Preprocessor struct {
	definition Definition
	features   []string
}

func Load(path string) (*Preprocessor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preprocessor %q: %w", path, err)
	}
	defer file.Close()

	var definition Definition

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	if err := decoder.Decode(&definition); err != nil {
		return nil, fmt.Errorf("failed to decode preprocessor %q: %w", path, err)
	}

	return New(definition)
}

func New(definition Definition) (*Preprocessor, error) {
	seen := map[string]bool{}
	claim := func(column string) error {
		if column == "" {
			return errors.New("preprocessor column without a name")
		}
		if seen[column] {
			return fmt.Errorf("column %q is transformed more than once", column)
		}
		seen[column] = true

		return nil
	}

	features := make([]string, 0)

	for _, numeric := range definition.Numeric {
		if err := claim(numeric.Column); err != nil {
			return nil, err
		}
		if numeric.Scale == 0 {
			return nil, fmt.Errorf("numeric column %q has a zero scale", numeric.Column)
		}
		features = append(features, "scale__"+numeric.Column)
	}

	for _, ordinal := range definition.Ordinal {
		if err := claim(ordinal.Column); err != nil {
			return nil, err
		}
		if len(ordinal.Categories) == 0 {
			return nil, fmt.Errorf("ordinal column %q has no categories", ordinal.Column)
		}
		features = append(features, "ordinal__"+ordinal.Column)
	}

	for _, nominal := range definition.Nominal {
		if err := claim(nominal.Column); err != nil {
			return nil, err
		}
		if len(nominal.Categories) == 0 {
			return nil, fmt.Errorf("nominal column %q has no categories", nominal.Column)
		}
		for _, category := range nominal.encoded() {
			features = append(features, nominalFeature(nominal.Column, category))
		}
	}

	for _, column := range definition.Passthrough {
		if err := claim(column); err != nil {
			return nil, err
		}
		features = append(features, "remainder__"+column)
	}

	return &Preprocessor{definition: definition, features: features}, nil
}

func (n NominalColumn) encoded() []string {
	if n.DropFirst {
		return n.Categories[1:]
	}

	return n.Categories
}

func nominalFeature(column, category string) string {
	return fmt.Sprintf("nominal__%s_%s", column, category)
}

// FeatureNames lists the output features in the order they are produced.
func (p *Preprocessor) FeatureNames() []string {
	return append([]string(nil), p.features...)
}

// Transform encodes one cleaned record.
//
//nolint:cyclop
func (p *Preprocessor) Transform(record entities.Record) (map[string]float64, error) {
	features := make(map[string]float64, len(p.features))

	for _, numeric := range p.definition.Numeric {
		value, ok := record.Float(numeric.Column)
		if !ok {
			if numeric.Fill == nil {
				return nil, fmt.Errorf("%w for numeric column %q", ErrMissingValue, numeric.Column)
			}
			value = *numeric.Fill
		}
		features["scale__"+numeric.Column] = (value - numeric.Mean) / numeric.Scale
	}

	for _, ordinal := range p.definition.Ordinal {
		value, ok := record.String(ordinal.Column)
		index := indexOf(ordinal.Categories, value)

		switch {
		case ok && index >= 0:
			features["ordinal__"+ordinal.Column] = float64(index)
		case ordinal.UnknownValue != nil:
			features["ordinal__"+ordinal.Column] = *ordinal.UnknownValue
		case !ok:
			return nil, fmt.Errorf("%w for ordinal column %q", ErrMissingValue, ordinal.Column)
		default:
			return nil, fmt.Errorf("unknown category %q for ordinal column %q", value, ordinal.Column)
		}
	}

	for _, nominal := range p.definition.Nominal {
		// Unknown and missing categories encode as all zeros.
		value, _ := record.String(nominal.Column)
		for _, category := range nominal.encoded() {
			encoded := 0.0
			if category == value {
				encoded = 1
			}
			features[nominalFeature(nominal.Column, category)] = encoded
		}
	}

	for _, column := range p.definition.Passthrough {
		value, ok := record.Float(column)
		if !ok {
			return nil, fmt.Errorf("%w for column %q", ErrMissingValue, column)
		}
		features["remainder__"+column] = value
	}

	return features, nil
}

func indexOf(values []string, value string) int {
	for i, v := range values {
		if v == value {
			return i
		}
	}

	return -1
}
