package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/itzzomkar/navyatra-engine/core/engine"
	"github.com/itzzomkar/navyatra-engine/core/job"
	"github.com/itzzomkar/navyatra-engine/core/metrics"
	"github.com/itzzomkar/navyatra-engine/core/solver"
	"github.com/itzzomkar/navyatra-engine/core/state"
	"github.com/itzzomkar/navyatra-engine/core/strategy"
	"github.com/itzzomkar/navyatra-engine/infra/archive"
	"github.com/itzzomkar/navyatra-engine/infra/feeds"
	"github.com/itzzomkar/navyatra-engine/infra/notify"
)

type Config struct {
	Feeds      feeds.Config            `json:"feeds"`
	Notify     notify.Config           `json:"notify"`
	State      state.Config            `json:"state"`
	Selector   strategy.SelectorConfig `json:"selector"`
	Jobs       job.Config              `json:"jobs"`
	Engine     engine.Config           `json:"engine"`
	Metrics    metrics.Config          `json:"metrics"`
	Archive    archive.Config          `json:"archive"`
	Strategies []StrategyConfig        `json:"strategies"`
	Roles      strategy.Roles          `json:"roles"`
}

// Load reads the configuration file at path, overlays K_ environment
// variables and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the parts that must be consistent before wiring: a
// non-empty strategy catalog whose role references and algorithm ids
// all resolve. An unknown strategy name or algorithm id here aborts
// startup.
func (c *Config) Validate() error {
	if len(c.Strategies) == 0 {
		return fmt.Errorf("config: no strategies defined")
	}
	catalog, err := strategy.NewCatalog(c.ModelStrategies())
	if err != nil {
		return err
	}
	if err := catalog.ResolveRoles(c.Roles); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	registry := solver.DefaultRegistry()
	for _, s := range c.Strategies {
		if _, err := registry.Resolve(s.Algorithm); err != nil {
			return fmt.Errorf("config: strategy %s: %w", s.Name, err)
		}
	}
	return nil
}
