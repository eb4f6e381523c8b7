package pipeline

import (
	"fmt"
	"log/slog"

	"sqlmodel-graphql/internal/config"
	"sqlmodel-graphql/internal/introspection"
)

// SourceFromConfig selects the entity source named by cfg.Source. The
// database source needs db; the definitions source ignores it.
func SourceFromConfig(cfg *config.Config, db introspection.Queryer, logger *slog.Logger) (Source, error) {
	switch cfg.Source {
	case config.SourceDefinitions, "":
		return &DefinitionsSource{Path: cfg.Definitions.Path}, nil
	case config.SourceDatabase:
		if db == nil {
			return nil, fmt.Errorf("database source requires an open connection")
		}
		dialect, err := introspection.DialectFor(cfg.Database.NormalizedDriver())
		if err != nil {
			return nil, err
		}
		schemaName, err := cfg.Database.SchemaName()
		if err != nil {
			return nil, err
		}
		return &DatabaseSource{
			DB:            db,
			Dialect:       dialect,
			SchemaName:    schemaName,
			Filters:       cfg.SchemaFilters,
			Naming:        cfg.Naming,
			TypeOverrides: cfg.Mapping.TypeOverrides,
			Suffix:        cfg.Mapping.ModelSuffix,
			JunctionMode:  cfg.Mapping.Junctions(),
			Logger:        logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// RequiresConnection reports whether cfg reads entities from a database.
func RequiresConnection(cfg *config.Config) bool {
	return cfg.Source == config.SourceDatabase
}
