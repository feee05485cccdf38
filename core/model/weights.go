package model

import (
	"encoding/json"
	"os"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// CardVersion is bumped when the gob layout of a model changes.
const CardVersion = "1"

// ModelCard describes a persisted model: which factory rebuilds it and the
// hyperparameters it was created with. It is logged next to the gob file so
// a fitted model can be reloaded without the run's configuration.
type ModelCard struct {
	ModelType       string         `json:"model_type"`
	Version         string         `json:"version"`
	Hyperparameters map[string]any `json:"hyperparameters"`
	NSamples        int            `json:"n_samples"`
	NItems          int            `json:"n_items"`
	Coefficients    []float64      `json:"coefficients,omitempty"`
	Intercept       float64        `json:"intercept,omitempty"`
}

// Stateful is implemented by models that expose their StateManager.
type Stateful interface {
	FitState() *StateManager
}

// NewModelCard builds a card for a fitted recommender. Linear models also
// record their coefficients.
func NewModelCard(r Recommender) *ModelCard {
	card := &ModelCard{
		ModelType:       r.Name(),
		Version:         CardVersion,
		Hyperparameters: r.Params(),
	}
	if s, ok := r.(Stateful); ok {
		card.NSamples, card.NItems = s.FitState().Dimensions()
	}
	if lm, ok := r.(LinearModel); ok {
		card.Coefficients = lm.Weights()
		card.Intercept = lm.Intercept()
	}
	return card
}

// WriteFile writes the card as indented JSON.
func (c *ModelCard) WriteFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.NewPersistError(path, "marshal", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewPersistError(path, "write", err)
	}
	return nil
}

// ReadModelCard loads a card written by WriteFile.
func ReadModelCard(path string) (*ModelCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewDataLoadError(path, "open model card", err)
	}
	var card ModelCard
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, errors.NewDataLoadError(path, "parse model card", err)
	}
	if card.Version != CardVersion {
		return nil, errors.NewDataLoadError(path, "unsupported model card version "+card.Version, nil)
	}
	return &card, nil
}
