package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/kibitz/kibitz/pkg/option"
	"github.com/kibitz/kibitz/pkg/protocol"
)

// document is the list-shaped layout shared by the YAML and TOML codecs.
// Lists keep the registry and option order stable across round trips.
type document struct {
	Engines []documentEngine `yaml:"engines" toml:"engines"`
}

type documentEngine struct {
	Name    string           `yaml:"name" toml:"name"`
	Bin     string           `yaml:"bin" toml:"bin"`
	Args    []string         `yaml:"args,omitempty" toml:"args,omitempty"`
	Proto   int              `yaml:"proto,omitempty" toml:"proto,omitempty"`
	Options []documentOption `yaml:"options,omitempty" toml:"options,omitempty"`
}

type documentOption struct {
	Name    string   `yaml:"name" toml:"name"`
	Type    string   `yaml:"type" toml:"type"`
	Min     *int     `yaml:"min,omitempty" toml:"min,omitempty"`
	Max     *int     `yaml:"max,omitempty" toml:"max,omitempty"`
	Default *string  `yaml:"default,omitempty" toml:"default,omitempty"`
	Value   *string  `yaml:"value,omitempty" toml:"value,omitempty"`
	Vars    []string `yaml:"vars,omitempty" toml:"vars,omitempty"`
}

func newDocumentOption(name string, f optionFields) documentOption {
	return documentOption{
		Name:    name,
		Type:    f.Type,
		Min:     f.Min,
		Max:     f.Max,
		Default: f.Default,
		Value:   f.Value,
		Vars:    f.Vars,
	}
}

func (o documentOption) fields() optionFields {
	return optionFields{
		Type:    o.Type,
		Min:     o.Min,
		Max:     o.Max,
		Default: o.Default,
		Value:   o.Value,
		Vars:    o.Vars,
	}
}

func toDocument(reg *Registry) document {
	var doc document
	reg.Each(func(cfg *EngineConfig) bool {
		e := documentEngine{
			Name:  cfg.Name,
			Bin:   cfg.Binary,
			Args:  cfg.Args,
			Proto: int(cfg.Protocol),
		}
		cfg.Options.Each(func(name string, opt option.Option) bool {
			e.Options = append(e.Options, newDocumentOption(name, fieldsOf(opt)))
			return true
		})
		doc.Engines = append(doc.Engines, e)
		return true
	})
	return doc
}

func fromDocument(doc document) (*Registry, error) {
	reg := NewRegistry()
	for _, e := range doc.Engines {
		cfg := &EngineConfig{
			Name:     e.Name,
			Binary:   e.Bin,
			Args:     e.Args,
			Protocol: protocol.Protocol(e.Proto),
			Options:  option.NewSet(),
		}
		cfg.Normalize()
		if err := cfg.Protocol.Validate(); err != nil {
			return nil, fmt.Errorf("engine %q: %w", e.Name, err)
		}
		for _, o := range e.Options {
			cfg.Options.Put(o.Name, o.fields().build())
		}
		if err := reg.Add(cfg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

type yamlCodec struct{}

func (yamlCodec) decode(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

func (yamlCodec) encode(reg *Registry) ([]byte, error) {
	return yaml.Marshal(toDocument(reg))
}

type tomlCodec struct{}

func (tomlCodec) decode(data []byte) (*Registry, error) {
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

func (tomlCodec) encode(reg *Registry) ([]byte, error) {
	return toml.Marshal(toDocument(reg))
}
