package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoConfig is returned by ReadFile when the file does not exist.
// Errors wrapping it also match fs.ErrNotExist.
var ErrNoConfig = errors.New("engine configuration not found")

// ParseError reports a configuration file that exists but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type codec interface {
	decode(data []byte) (*Registry, error)
	encode(reg *Registry) ([]byte, error)
}

// codecFor selects a codec from the file extension. XML is the default.
func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlCodec{}
	case ".toml":
		return tomlCodec{}
	default:
		return xmlCodec{}
	}
}

// ReadFile loads a registry from path.
func ReadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNoConfig, err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	reg, err := codecFor(path).decode(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return reg, nil
}

// ReadFileOrEmpty is ReadFile, except that a missing file yields an empty registry.
func ReadFileOrEmpty(path string) (*Registry, error) {
	reg, err := ReadFile(path)
	if errors.Is(err, ErrNoConfig) {
		return NewRegistry(), nil
	}
	return reg, err
}

// WriteFile stores reg at path. The file is replaced atomically so readers
// and watchers never see a partial document.
func WriteFile(path string, reg *Registry) error {
	data, err := codecFor(path).encode(reg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
