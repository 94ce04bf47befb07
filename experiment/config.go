// Package experiment wires the pipeline together: configuration loading with
// full-default fallback, and the run orchestration from data acquisition to
// the closed tracked run.
package experiment

import (
	"os"

	"gopkg.in/yaml.v3"

	"autotab/pkg/log"
)

// Config holds the recognized configuration keys.
type Config struct {
	Label     string `yaml:"label"`
	TimeLimit int    `yaml:"time_limit"`
}

// DefaultConfig is the fully-specified fallback configuration.
func DefaultConfig() Config {
	return Config{Label: "rating", TimeLimit: 300}
}

// LoadConfig reads the YAML config at path. A missing, unreadable or
// unparseable file substitutes the complete default configuration. Fields
// left unset by a valid file take their default values.
func LoadConfig(path string) Config {
	logger := log.With("config")

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("config unreadable, using defaults")
		return DefaultConfig()
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("config invalid, using defaults")
		return DefaultConfig()
	}
	def := DefaultConfig()
	if cfg.Label == "" {
		cfg.Label = def.Label
	}
	if cfg.TimeLimit == 0 {
		cfg.TimeLimit = def.TimeLimit
	}
	return cfg
}
