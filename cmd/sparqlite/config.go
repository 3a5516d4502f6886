package main

import (
	"github.com/BurntSushi/toml"

	"github.com/wbrown/sparqlite/exec"
	"github.com/wbrown/sparqlite/plan"
)

// Config is cmd/sparqlite's TOML configuration file shape (-config). An
// explicit -db flag still overrides the file's store path; every other
// setting comes from the file wholesale once -config is given.
type Config struct {
	Store struct {
		// Path is the BadgerDB directory; empty means an in-memory store.
		Path string `toml:"path"`
	} `toml:"store"`

	Limits struct {
		MaxTriplesPerUpdate  int   `toml:"max_triples_per_update"`
		MaxMatchesPerPattern int64 `toml:"max_matches_per_pattern"`
		MaxTemplateSize      int   `toml:"max_template_size"`
	} `toml:"limits"`

	Planner struct {
		CacheSize int  `toml:"cache_size"`
		Enabled   bool `toml:"enabled"`
	} `toml:"planner"`

	Color bool `toml:"color"`
}

// loadConfig reads a TOML config file at path into a Config seeded with
// the engine's documented defaults, so an unset section of the file
// falls back to the same defaults NewContext/DefaultLimits would use.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Limits.MaxTriplesPerUpdate = exec.DefaultLimits.MaxTriplesPerUpdate
	cfg.Limits.MaxMatchesPerPattern = exec.DefaultLimits.MaxMatchesPerPattern
	cfg.Limits.MaxTemplateSize = exec.DefaultLimits.MaxTemplateSize
	cfg.Planner.CacheSize = plan.DefaultMaxSize
	cfg.Planner.Enabled = true
	cfg.Color = true

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) limits() exec.Limits {
	return exec.Limits{
		MaxTriplesPerUpdate:  c.Limits.MaxTriplesPerUpdate,
		MaxMatchesPerPattern: c.Limits.MaxMatchesPerPattern,
		MaxTemplateSize:      c.Limits.MaxTemplateSize,
	}
}
