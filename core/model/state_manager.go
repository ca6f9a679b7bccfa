// Package model provides state management for estimators.
package model

import (
	"fmt"
	"sync"
)

// StateManager manages the fitted state of an estimator in a thread-safe manner.
// Estimators hold it by composition rather than embedding.
type StateManager struct {
	Fitted bool // Public for gob encoding
	mu     sync.RWMutex

	// Optional metadata - Public for gob encoding
	NClasses int
	NSamples int
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{
		Fitted: false,
	}
}

// IsFitted returns whether the estimator has been fitted.
func (s *StateManager) IsFitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Fitted
}

// SetFitted marks the estimator as fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = true
}

// Reset resets the fitted state.
func (s *StateManager) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fitted = false
	s.NClasses = 0
	s.NSamples = 0
}

// SetDimensions sets the number of classes and samples seen during fitting.
func (s *StateManager) SetDimensions(nClasses, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NClasses = nClasses
	s.NSamples = nSamples
}

// GetDimensions returns the number of classes and samples seen during fitting.
func (s *StateManager) GetDimensions() (nClasses, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NClasses, s.NSamples
}

// RequireFitted returns an error if the estimator has not been fitted.
func (s *StateManager) RequireFitted() error {
	if !s.IsFitted() {
		return fmt.Errorf("model has not been fitted yet. Call Fit() first")
	}
	return nil
}

// ModelState represents the complete state of an estimator.
// This can be used for serialization and debugging.
type ModelState struct {
	Fitted   bool                   `json:"fitted"`
	NClasses int                    `json:"n_classes,omitempty"`
	NSamples int                    `json:"n_samples,omitempty"`
	Params   map[string]interface{} `json:"params,omitempty"`
}

// GetState returns the current state as a ModelState struct.
func (s *StateManager) GetState() ModelState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ModelState{
		Fitted:   s.Fitted,
		NClasses: s.NClasses,
		NSamples: s.NSamples,
	}
}

// SetState sets the state from a ModelState struct.
func (s *StateManager) SetState(state ModelState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Fitted = state.Fitted
	s.NClasses = state.NClasses
	s.NSamples = state.NSamples
}

// WithState executes a function with the state locked for reading.
func (s *StateManager) WithState(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// WithStateMut executes a function with the state locked for writing.
func (s *StateManager) WithStateMut(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
