// Package models defines data structures for job configuration.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks configuration the job cannot start with.
var ErrInvalidConfig = errors.New("invalid configuration")

// JobConfig holds the settings for one bigram run. Values come from an
// optional YAML file and are overridden by CLI flags.
type JobConfig struct {
	Inputs            []string `yaml:"inputs"`
	Output            string   `yaml:"output"`
	Reducers          int      `yaml:"reducers"`
	Mappers           int      `yaml:"mappers"`
	SplitLines        int      `yaml:"split_lines"`
	SpillRecords      int      `yaml:"spill_records"`
	Combiner          bool     `yaml:"combiner"`
	InMapperCombining bool     `yaml:"in_mapper_combining"`
	MaxAttempts       int      `yaml:"max_attempts"`
	DBPath            string   `yaml:"db"`
	CacheDir          string   `yaml:"cache_dir"`
	CacheTTL          string   `yaml:"cache_ttl"`
}

// DefaultJobConfig returns the settings used when neither file nor flag sets a value.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		Reducers:    1,
		Mappers:     4,
		SplitLines:  10000,
		Combiner:    true,
		MaxAttempts: 4,
		DBPath:      "bigram.db",
	}
}

// LoadConfig reads path over the defaults. Unknown keys and values of the
// wrong type (e.g. reducers: "many") are errors.
func LoadConfig(path string) (JobConfig, error) {
	cfg := DefaultJobConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// Validate reports the first setting the job cannot run with.
func (c JobConfig) Validate() error {
	switch {
	case len(c.Inputs) == 0:
		return fmt.Errorf("%w: at least one input is required", ErrInvalidConfig)
	case c.Output == "":
		return fmt.Errorf("%w: output directory is required", ErrInvalidConfig)
	case c.Reducers < 1:
		return fmt.Errorf("%w: reducers must be at least 1, got %d", ErrInvalidConfig, c.Reducers)
	case c.Mappers < 1:
		return fmt.Errorf("%w: mappers must be at least 1, got %d", ErrInvalidConfig, c.Mappers)
	case c.SplitLines < 1:
		return fmt.Errorf("%w: split lines must be at least 1, got %d", ErrInvalidConfig, c.SplitLines)
	case c.SpillRecords < 0:
		return fmt.Errorf("%w: spill records cannot be negative, got %d", ErrInvalidConfig, c.SpillRecords)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	}

	// The output directory is wiped before a run.
	for _, input := range c.Inputs {
		if strings.Contains(input, "://") {
			continue
		}
		if within(c.Output, input) {
			return fmt.Errorf("%w: output %q would delete input %q", ErrInvalidConfig, c.Output, input)
		}
	}
	return nil
}

// within reports whether path is dir or lies beneath it.
func within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
