package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrDuplicate is returned when a name is already taken.
	ErrDuplicate = errors.New("engine already exists")

	// ErrNotFound is returned for an unknown engine name.
	ErrNotFound = errors.New("engine not found")
)

// Registry is an ordered collection of engine configurations keyed by name.
// It is safe for concurrent use; the entries themselves are not.
type Registry struct {
	mu      sync.RWMutex
	names   []string
	engines map[string]*EngineConfig
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*EngineConfig)}
}

// Add normalizes cfg and appends it.
func (r *Registry) Add(cfg *EngineConfig) error {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[cfg.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, cfg.Name)
	}
	r.names = append(r.names, cfg.Name)
	r.engines[cfg.Name] = cfg
	return nil
}

// Get returns the configuration stored under name.
func (r *Registry) Get(name string) (*EngineConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return cfg, nil
}

// Remove deletes an entry.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.engines[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.engines, name)
	r.names = removeName(r.names, name)
	return nil
}

// Rename re-keys an entry, keeping its position and options.
func (r *Registry) Rename(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("engine name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.engines[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, exists := r.engines[newName]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, newName)
	}

	for i, n := range r.names {
		if n == oldName {
			r.names[i] = newName
			break
		}
	}
	delete(r.engines, oldName)
	cfg.Name = newName
	r.engines[newName] = cfg
	return nil
}

// Names returns the engine names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Each calls fn for every entry in order until fn returns false.
func (r *Registry) Each(fn func(cfg *EngineConfig) bool) {
	r.mu.RLock()
	entries := make([]*EngineConfig, 0, len(r.names))
	for _, n := range r.names {
		entries = append(entries, r.engines[n])
	}
	r.mu.RUnlock()

	for _, cfg := range entries {
		if !fn(cfg) {
			return
		}
	}
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}
