// Package config loads host configuration from the environment.
// Balance tuning is a separate concern; see platform/tuning.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the wiring for a studio-server process.
type Config struct {
	Addr       string `env:"STUDIO_ADDR" envDefault:":8080"`
	DBPath     string `env:"STUDIO_DB" envDefault:"studio.db"`
	TuningPath string `env:"STUDIO_TUNING"`          // optional YAML override file
	Seed       int64  `env:"STUDIO_SEED"`            // 0 = draw a fresh seed
	SnapshotMS int    `env:"STUDIO_SNAPSHOT_MS" envDefault:"5000"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
