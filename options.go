// options.go — host run configuration.

package poh

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Execution backend names accepted in configuration and flags.
const (
	BackendVM     = "vm"
	BackendWalker = "walker"
)

// RunConfig is the optional poh.yaml the host process reads. Flags override
// anything set here.
type RunConfig struct {
	Backend string `yaml:"backend"`
	Trace   bool   `yaml:"trace"`
	History string `yaml:"history"`
}

// DefaultRunConfig is the configuration used when no file is present.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{Backend: BackendVM}
}

// LoadRunConfig reads a yaml config file. A missing file yields the
// defaults; a malformed file or unknown backend is an error.
func LoadRunConfig(path string) (*RunConfig, error) {
	cfg := DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendVM
	}
	if cfg.Backend != BackendVM && cfg.Backend != BackendWalker {
		return nil, fmt.Errorf("unknown backend %q in %s", cfg.Backend, path)
	}
	return cfg, nil
}
