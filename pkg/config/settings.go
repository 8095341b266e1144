package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kibitz/kibitz/pkg/telemetry"
)

// DefaultSettingsFile is the settings file name looked up by the CLI.
const DefaultSettingsFile = "kibitz.yaml"

// Settings is the application configuration.
type Settings struct {
	// EnginesFile is the engine registry. Its extension selects the format.
	EnginesFile string `yaml:"engines_file" validate:"required"`

	// Database is the SQLite file recording analysis sessions.
	Database string `yaml:"database" validate:"required"`

	// Record enables session recording during analysis.
	Record bool `yaml:"record"`

	Engine EngineSettings `yaml:"engine"`

	Logging telemetry.LoggingConfig `yaml:"logging"`
	Tracing telemetry.TracingConfig `yaml:"tracing"`
	Metrics telemetry.MetricsConfig `yaml:"metrics"`
}

// EngineSettings tunes process handling.
type EngineSettings struct {
	// HandshakeTimeout bounds the discovery handshake.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" validate:"gt=0"`

	// SettleDelay is the pause after a stop command.
	SettleDelay time.Duration `yaml:"settle_delay" validate:"gte=0"`

	// WriteTimeout bounds a single command write.
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() *Settings {
	tel := telemetry.DefaultConfig()
	return &Settings{
		EnginesFile: "engines.xml",
		Database:    "kibitz.db",
		Record:      true,
		Engine: EngineSettings{
			HandshakeTimeout: time.Second,
			SettleDelay:      50 * time.Millisecond,
			WriteTimeout:     2 * time.Second,
		},
		Logging: tel.Logging,
		Tracing: tel.Tracing,
		Metrics: tel.Metrics,
	}
}

// LoadSettings reads settings from path. A missing file yields the defaults.
// Relative file locations are resolved against the directory of path.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	s.EnginesFile = resolve(dir, s.EnginesFile)
	s.Database = resolve(dir, s.Database)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// SaveSettings writes s to path as YAML.
func SaveSettings(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Validate checks the settings, including the telemetry sections.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := s.TelemetryConfig().Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// TelemetryConfig builds the telemetry configuration from the settings.
func (s *Settings) TelemetryConfig() *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.Logging = s.Logging
	cfg.Tracing = s.Tracing
	cfg.Metrics = s.Metrics
	return cfg
}

func resolve(dir, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
