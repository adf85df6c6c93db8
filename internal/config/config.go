// Package config defines the on-disk and command-line configuration for a
// B+-tree index: page size and branching factor, loaded either from flags
// or from an optional YAML file (flags override file values).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bptreedb/internal/pager"
)

// Config holds the build-time parameters a tree is opened with.
type Config struct {
	PageSize  int    `yaml:"page_size"`
	Branching int    `yaml:"branching"`
	DataFile  string `yaml:"data_file"`
}

// Default returns the reference configuration: a 1024-byte page and a
// branching factor of 5.
func Default() Config {
	return Config{
		PageSize:  pager.DefaultPageSize,
		Branching: 5,
		DataFile:  "bptree.db",
	}
}

// LoadFile reads a YAML configuration file, overlaying it on Default() so
// a partial file only needs to specify the fields it changes.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that PageSize is an accepted power-of-two size and that
// Branching is small enough for every node variant to fit in one page —
// the "overflow that cannot be represented in one page" configuration
// error called out in the error handling design, caught here instead of at
// first encode.
func (c Config) Validate() error {
	if !pager.ValidPageSize(c.PageSize) {
		return fmt.Errorf("config: page size %d must be a power of two in [%d, %d]", c.PageSize, pager.MinPageSize, pager.MaxPageSize)
	}
	if c.Branching < 1 {
		return fmt.Errorf("config: branching must be >= 1, got %d", c.Branching)
	}
	maxLeaf := pager.MaxLeafKeys(c.PageSize)
	maxInternal := pager.MaxInternalKeys(c.PageSize)
	if c.Branching > maxLeaf {
		return fmt.Errorf("config: branching %d exceeds max leaf capacity %d for page size %d", c.Branching, maxLeaf, c.PageSize)
	}
	if c.Branching > maxInternal {
		return fmt.Errorf("config: branching %d exceeds max internal capacity %d for page size %d", c.Branching, maxInternal, c.PageSize)
	}
	return nil
}
