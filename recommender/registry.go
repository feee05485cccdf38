// Package recommender implements the recommender variants and the
// name-keyed registry used to construct them.
package recommender

import (
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/YuminosukeSato/movielens/core/model"
	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// ModelSpec selects a variant by name and carries its hyperparameters.
type ModelSpec struct {
	Name   string         `koanf:"name" yaml:"name" validate:"required"`
	Params map[string]any `koanf:"params" yaml:"params"`
}

// Factory builds an unfitted model from a spec.
type Factory interface {
	Create(spec ModelSpec) (model.Recommender, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(spec ModelSpec) (model.Recommender, error)

func (f FactoryFunc) Create(spec ModelSpec) (model.Recommender, error) {
	return f(spec)
}

// registry is fixed at package initialisation and only read afterwards.
var registry = map[string]Factory{
	BaselineName: FactoryFunc(createBaseline),
	ClassicName:  FactoryFunc(createClassic),
}

// GetFactory looks name up case-insensitively.
func GetFactory(name string) (Factory, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.NewUnknownModelError(name, Supported())
	}
	return f, nil
}

// Supported returns the registered names, sorted.
func Supported() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Create resolves spec.Name and builds the model.
func Create(spec ModelSpec) (model.Recommender, error) {
	f, err := GetFactory(spec.Name)
	if err != nil {
		return nil, err
	}
	return f.Create(spec)
}

func createBaseline(spec ModelSpec) (model.Recommender, error) {
	if len(spec.Params) > 0 {
		return nil, errors.NewValidationError("exp.model.params", "baseline takes no hyperparameters", spec.Params)
	}
	return NewBaseline(), nil
}

func createClassic(spec ModelSpec) (model.Recommender, error) {
	params := DefaultClassicParams()
	if err := decodeParams(spec.Params, &params); err != nil {
		return nil, err
	}
	return NewClassic(params), nil
}

// decodeParams decodes hyperparameters into out. Unknown keys and values of
// the wrong type are rejected. Strings such as "true" are accepted so that
// environment overrides work.
func decodeParams(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "build hyperparameter decoder")
	}
	if err := dec.Decode(in); err != nil {
		return errors.NewValidationError("exp.model.params", err.Error(), in)
	}
	return nil
}
