// Package config loads, normalizes, and validates parallax configuration.
//
// Configuration is read from a TOML file. Load applies repository defaults,
// decodes the file when present, expands filesystem paths, and validates the
// result. Typed accessors translate raw TOML values into the domain types the
// pipeline consumes.
package config
