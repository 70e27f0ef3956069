package archive

import (
	"fmt"

	"github.com/itzzomkar/navyatra-engine/core/job"
)

// Config selects and parameterizes the archive backend.
type Config struct {
	Backend    string `json:"backend"` // sqlite, jsonl or none
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// New builds the archive store named by cfg.Backend. A "none" or empty
// backend returns a nil store, which disables archiving.
func New(cfg Config) (job.ArchiveStore, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "sqlite":
		if cfg.Path == "" {
			cfg.Path = "jobs.db"
		}
		return NewSQLiteStore(cfg.Path)
	case "jsonl":
		if cfg.Path == "" {
			cfg.Path = "jobs.jsonl"
		}
		size, backups, age := cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays
		if size <= 0 {
			size = 50
		}
		if backups <= 0 {
			backups = 5
		}
		if age <= 0 {
			age = 30
		}
		return NewRotatingJSONLStore(cfg.Path, size, backups, age)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
