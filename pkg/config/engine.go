package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kibitz/kibitz/pkg/option"
	"github.com/kibitz/kibitz/pkg/protocol"
)

// EngineConfig is the persisted description of one engine.
type EngineConfig struct {
	// Name is the display name and registry key.
	Name string `validate:"required"`

	// Binary is the path of the executable. It may be empty for an entry that
	// has not been configured yet; starting such an engine fails.
	Binary string

	// Args are extra command line arguments passed to Binary.
	Args []string

	// Protocol is the dialect spoken by the engine.
	Protocol protocol.Protocol `validate:"oneof=1 2"`

	// Options are the engine parameters, in discovery order.
	Options *option.Set `validate:"-"`
}

var validate = validator.New()

// NewEngineConfig returns a normalized entry.
func NewEngineConfig(name, binary string, proto protocol.Protocol) *EngineConfig {
	cfg := &EngineConfig{Name: name, Binary: binary, Protocol: proto}
	cfg.Normalize()
	return cfg
}

// Normalize fills absent fields with their defaults.
func (c *EngineConfig) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Protocol == 0 {
		c.Protocol = protocol.UCI
	}
	if c.Options == nil {
		c.Options = option.NewSet()
	}
}

// Validate checks the entry for structural errors.
func (c *EngineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("engine %q validation failed: %w", c.Name, err)
	}
	return nil
}

// Clone returns a deep copy.
func (c *EngineConfig) Clone() *EngineConfig {
	cp := *c
	cp.Args = append([]string(nil), c.Args...)
	cp.Options = c.Options.Clone()
	return &cp
}

// SetOption sets the value of an existing option.
func (c *EngineConfig) SetOption(name, value string) error {
	opt, ok := c.Options.Get(name)
	if !ok {
		return fmt.Errorf("engine %q has no option %q", c.Name, name)
	}
	return opt.SetValue(value)
}
