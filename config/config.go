// Package config holds the settings of a simulated test port run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Wire revisions understood by the harness.
const (
	// RevisionClassic writes only the run, subtest and outcome codes.
	RevisionClassic = "classic"

	// RevisionBracketed also brackets each subtest's computation window
	// with SUBTEST_EXECUTING and SUBTEST_EXECUTING_DONE.
	RevisionBracketed = "bracketed"
)

// Config holds the settings of the test port and the runner.
type Config struct {
	// BaseAddress is the address of the command register. The output
	// register is at BaseAddress+1. Default: 0x01B0.
	BaseAddress uint64 `yaml:"base_address"`

	// Revision selects the wire revision: "classic" or "bracketed".
	// Default: classic.
	Revision string `yaml:"revision"`

	// StartBudget is the number of steps a program may take before it must
	// write START_RUN. Default: 2000.
	StartBudget uint64 `yaml:"start_budget"`

	// MaxSteps caps the total number of steps. 0 means no limit.
	MaxSteps uint64 `yaml:"max_steps"`

	// Timeout bounds the wall-clock time of a scripted program.
	// 0 means no limit. Default: 10s.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with the classic test port layout.
func DefaultConfig() *Config {
	return &Config{
		BaseAddress: 0x01B0,
		Revision:    RevisionClassic,
		StartBudget: 2000,
		MaxSteps:    0,
		Timeout:     10 * time.Second,
	}
}

// LoadConfig loads a Config from a YAML file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal encodes the Config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	return data, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.Revision != RevisionClassic && c.Revision != RevisionBracketed {
		return fmt.Errorf("revision must be %q or %q, got %q",
			RevisionClassic, RevisionBracketed, c.Revision)
	}
	if c.StartBudget == 0 {
		return fmt.Errorf("start_budget must be > 0")
	}
	if c.MaxSteps > 0 && c.MaxSteps < c.StartBudget {
		return fmt.Errorf("max_steps must be 0 or >= start_budget")
	}
	if c.BaseAddress == ^uint64(0) {
		return fmt.Errorf("base_address leaves no room for the output register")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	return nil
}

// Brackets reports whether the bracketed revision is selected.
func (c *Config) Brackets() bool {
	return c.Revision == RevisionBracketed
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
