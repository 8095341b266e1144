package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/kibitz/kibitz/pkg/config"
)

// Manager owns one Engine per registry entry, created on first use.
// Engines are never shared between entries.
type Manager struct {
	reg  *config.Registry
	opts []Option

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewManager returns a manager for the engines in reg. opts are applied to
// every engine it creates.
func NewManager(reg *config.Registry, opts ...Option) *Manager {
	return &Manager{
		reg:     reg,
		opts:    opts,
		engines: make(map[string]*Engine),
	}
}

// Registry returns the registry backing the manager.
func (m *Manager) Registry() *config.Registry { return m.reg }

// Engine returns the engine for name, creating it if needed.
func (m *Manager) Engine(name string) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.engines[name]; ok {
		return e, nil
	}
	cfg, err := m.reg.Get(name)
	if err != nil {
		return nil, err
	}
	e := New(cfg, m.opts...)
	m.engines[name] = e
	return e, nil
}

// Start starts the named engine and sends its configured options.
func (m *Manager) Start(ctx context.Context, name string) error {
	e, err := m.Engine(name)
	if err != nil {
		return err
	}
	if err := e.Start(ctx); err != nil {
		return err
	}
	return e.SendOptions()
}

// Search starts an infinite search on the named engine.
func (m *Manager) Search(name, fen, moves string) error {
	e, err := m.Engine(name)
	if err != nil {
		return err
	}
	return e.Search(fen, moves)
}

// Stop stops the search of the named engine.
func (m *Manager) Stop(name string) error {
	e, err := m.Engine(name)
	if err != nil {
		return err
	}
	return e.StopSearch()
}

// Exit terminates the named engine.
func (m *Manager) Exit(name string) error {
	e, err := m.Engine(name)
	if err != nil {
		return err
	}
	return e.Exit()
}

// Listen sets the output listener of the named engine.
func (m *Manager) Listen(name string, fn Listener) error {
	e, err := m.Engine(name)
	if err != nil {
		return err
	}
	e.Listen(fn)
	return nil
}

// Rename renames a registry entry and keeps its engine.
func (m *Manager) Rename(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.reg.Rename(oldName, newName); err != nil {
		return err
	}
	if e, ok := m.engines[oldName]; ok {
		delete(m.engines, oldName)
		m.engines[newName] = e
	}
	return nil
}

// Remove exits the named engine if it runs and deletes its registry entry.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	e, ok := m.engines[name]
	delete(m.engines, name)
	m.mu.Unlock()

	if ok {
		if err := e.Exit(); err != nil && !errors.Is(err, ErrNotRunning) {
			return err
		}
	}
	return m.reg.Remove(name)
}

// ExitAll terminates every running engine.
func (m *Manager) ExitAll() {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	m.mu.Unlock()

	for _, e := range engines {
		_ = e.Exit()
	}
}
