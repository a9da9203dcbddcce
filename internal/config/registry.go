package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sprachpilot/parlo/pkg/provider/listen"
	"github.com/sprachpilot/parlo/pkg/provider/speak"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider kind. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	speak  map[string]func(ProviderEntry) (speak.Provider, error)
	listen map[string]func(ProviderEntry) (listen.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		speak:  make(map[string]func(ProviderEntry) (speak.Provider, error)),
		listen: make(map[string]func(ProviderEntry) (listen.Provider, error)),
	}
}

// RegisterSpeak registers a playback provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSpeak(name string, factory func(ProviderEntry) (speak.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speak[name] = factory
}

// RegisterListen registers a capture provider factory under name.
func (r *Registry) RegisterListen(name string, factory func(ProviderEntry) (listen.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listen[name] = factory
}

// CreateSpeak instantiates the playback provider selected by entry.Name.
func (r *Registry) CreateSpeak(entry ProviderEntry) (speak.Provider, error) {
	r.mu.RLock()
	factory, ok := r.speak[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: speak provider %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateListen instantiates the capture provider selected by entry.Name.
func (r *Registry) CreateListen(entry ProviderEntry) (listen.Provider, error) {
	r.mu.RLock()
	factory, ok := r.listen[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: listen provider %q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
