package model

import (
	"sync"

	"github.com/YuminosukeSato/movielens/pkg/errors"
)

// StateManager tracks whether a model is fitted and the shape it was fitted
// on. Models hold it by composition. Exported fields are gob encoded with
// the model.
type StateManager struct {
	Fitted   bool
	NSamples int
	NItems   int

	mu sync.RWMutex
}

// NewStateManager returns an unfitted state.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// IsFitted reports whether SetFitted has been called since the last Reset.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted records a successful fit over nSamples rows and nItems distinct
// items.
func (s *StateManager) SetFitted(nSamples, nItems int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
	s.NSamples = nSamples
	s.NItems = nItems
}

// Reset returns the state to unfitted.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NSamples = 0
	s.NItems = 0
}

// Dimensions returns the sample and item counts seen during fitting.
func (s *StateManager) Dimensions() (nSamples, nItems int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NSamples, s.NItems
}

// RequireFitted returns a NotFittedError naming the model and the method
// that was called too early.
func (s *StateManager) RequireFitted(modelName, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(modelName, method)
	}
	return nil
}
