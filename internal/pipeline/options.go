package pipeline

import (
	"github.com/JonMunkholm/cuiles/internal/config"
	"github.com/JonMunkholm/cuiles/internal/dialect"
	"github.com/JonMunkholm/cuiles/internal/source"
	"github.com/JonMunkholm/cuiles/internal/store"
)

// OptionsFromConfig builds run options from loaded configuration.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	d, err := dialect.ByName(cfg.Destination.Dialect)
	if err != nil {
		return Options{}, err
	}
	if _, ok := d.(dialect.Access); ok && len(cfg.Destination.ODBCDrivers) > 0 {
		d = dialect.NewAccess(cfg.Destination.ODBCDrivers...)
	}

	var sourceDrivers []string
	if cfg.Source.ODBCDriver != "" {
		sourceDrivers = []string{cfg.Source.ODBCDriver}
	}

	return Options{
		Source: source.Options{
			PreferredTable: cfg.Source.PreferredTable,
			Table:          cfg.Source.Table,
			TempDir:        cfg.Source.TempDir,
			AccessDrivers:  sourceDrivers,
		},
		Dialect:     d,
		Store:       store.Options{AccessTemplate: cfg.Destination.AccessTemplate},
		BatchSize:   cfg.Load.BatchSize,
		Destination: cfg.Destination.Path,
		SourceDir:   cfg.Source.Dir,
		DestDir:     cfg.Destination.Dir,
	}, nil
}

// NewServiceFromConfig wires a Service with the configured limits.
func NewServiceFromConfig(cfg *config.Config) (*Service, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	limiter := NewLimiter(cfg.Jobs.MaxConcurrent, cfg.Jobs.MaxWait)
	return NewService(opts, limiter, cfg.Jobs.Retention), nil
}
