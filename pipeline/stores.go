package pipeline

import (
	"fmt"

	"carprice/config"
	"carprice/db"
	"carprice/ml"
	"carprice/params"
)

// Stores holds the persistence backends selected by the configuration.
type Stores struct {
	Params ml.ParameterStore
	// Runs is nil when database.path is empty.
	Runs *db.Store
	// WatchPath is the parameter file to watch, empty for the sqlite backend.
	WatchPath string
}

// OpenStores opens the parameter store and the training run log.
func OpenStores(cfg *config.Config) (*Stores, error) {
	stores := &Stores{}
	if cfg.Database.Path != "" {
		runs, err := db.Open(cfg.Database.Path, cfg.Params.Defaults())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		stores.Runs = runs
	}

	switch cfg.Params.Backend {
	case config.BackendSQLite:
		if stores.Runs == nil {
			return nil, fmt.Errorf("sqlite params backend needs database.path")
		}
		stores.Params = stores.Runs
	default:
		stores.Params = params.NewFileStore(cfg.Params.Path, cfg.Params.Defaults())
		stores.WatchPath = cfg.Params.Path
	}
	return stores, nil
}

// Recorder returns the run log as a RunRecorder, or nil when disabled.
func (s *Stores) Recorder() RunRecorder {
	if s.Runs == nil {
		return nil
	}
	return s.Runs
}

func (s *Stores) Close() error {
	if s.Runs == nil {
		return nil
	}
	return s.Runs.Close()
}
