// Package config holds the engine registry and its on-disk representations.
//
// # Overview
//
// A Registry is an ordered set of named EngineConfig entries. Each entry
// records the executable to launch, its arguments, the protocol dialect and
// the options discovered from (and tuned for) the engine.
//
// # File formats
//
// ReadFile and WriteFile pick a codec from the file extension:
//
//   - .xml: nested elements, one per engine under a single root. This is the
//     primary format.
//   - .yaml, .yml: a list of engines under an "engines" key.
//   - .toml: an array of [[engines]] tables.
//
// Missing fields are filled with defaults on load, so every entry returned by
// ReadFile is well-formed: an empty binary, the UCI protocol and an empty
// option set.
//
// A missing file yields an error matching ErrNoConfig and fs.ErrNotExist.
// Content that cannot be decoded yields a *ParseError.
//
// # Settings
//
// Settings is the application configuration (kibitz.yaml): where the engines
// file and the analysis database live, engine timing, and telemetry.
//
// # Watching
//
// Watch reloads the registry file when it changes on disk and hands the new
// registry to a callback. The analyse command uses it to push edited option
// values to a running engine.
package config
