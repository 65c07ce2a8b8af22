// Package config loads CLI defaults from a single YAML file. The file is
// only read when a path is given explicitly; there is no discovery and
// no fallback, so configuration stays deterministic.
package config

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables the CLI accepts.
type Config struct {
	// Format is the default compression framing: "gzip" or "lz4".
	Format string `yaml:"format"`

	// Level is the gzip compression level (-1 for the codec default,
	// otherwise 0-9). Ignored by lz4.
	Level int `yaml:"level"`

	// LogLevel is the zap level the process logs at.
	LogLevel string `yaml:"log_level"`

	// Workers bounds how many inputs the CLI compresses concurrently.
	// Zero or negative means unbounded.
	Workers int `yaml:"workers"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Format:   "gzip",
		Level:    -1,
		LogLevel: "info",
		Workers:  runtime.NumCPU(),
	}
}

// Load reads the config file at path over the defaults. Unknown fields
// are rejected so typos surface instead of silently doing nothing.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
