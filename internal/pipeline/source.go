package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"sqlmodel-graphql/internal/annotation"
	"sqlmodel-graphql/internal/definitions"
	"sqlmodel-graphql/internal/introspection"
	"sqlmodel-graphql/internal/junction"
	"sqlmodel-graphql/internal/model"
	"sqlmodel-graphql/internal/naming"
	"sqlmodel-graphql/internal/schemafilter"
)

// Models is an entity model set plus the hand-declared fields that go with it.
type Models struct {
	Entities []model.Entity
	// Extras is keyed by exposed type name.
	Extras map[string]*annotation.Map
}

// Source produces an entity model set.
type Source interface {
	// Name labels the source in logs and metrics.
	Name() string
	Load(ctx context.Context) (*Models, error)
}

// DefinitionsSource reads entities from a YAML definitions file. The file is
// re-read on every Load so a running server picks up edits.
type DefinitionsSource struct {
	Path string
}

func (s *DefinitionsSource) Name() string { return "definitions" }

func (s *DefinitionsSource) Load(ctx context.Context) (*Models, error) {
	file, err := definitions.LoadFile(s.Path)
	if err != nil {
		return nil, err
	}
	extras, err := file.Extras()
	if err != nil {
		return nil, err
	}
	return &Models{Entities: file.Models(), Extras: extras}, nil
}

// DatabaseSource reads entities by introspecting a live database.
type DatabaseSource struct {
	DB         introspection.Queryer
	Dialect    introspection.Dialect
	SchemaName string

	Filters       schemafilter.Config
	Naming        naming.Config
	TypeOverrides map[string][]string
	// Suffix is appended to entity names so the mapper can strip it again.
	Suffix       string
	JunctionMode introspection.JunctionMode
	Logger       *slog.Logger
}

func (s *DatabaseSource) Name() string { return "database" }

func (s *DatabaseSource) Load(ctx context.Context) (*Models, error) {
	if s.DB == nil || s.Dialect == nil {
		return nil, fmt.Errorf("database source requires a connection and a dialect")
	}

	schema, err := introspection.Introspect(ctx, s.DB, s.Dialect, s.SchemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect database: %w", err)
	}

	if err := introspection.ApplyTypeOverrides(schema, s.TypeOverrides); err != nil {
		return nil, fmt.Errorf("failed to apply type overrides: %w", err)
	}

	schemafilter.Apply(ctx, schema, s.Filters)

	junctions := junction.ClassifyJunctions(schema)
	if s.Logger != nil && len(junctions) > 0 {
		s.Logger.Debug("classified junction tables", slog.Any("tables", junctions.Tables()))
	}

	namer := naming.New(s.Naming, s.Logger)
	entities, err := schema.Entities(ctx, namer, introspection.EntityOptions{
		Suffix:       s.Suffix,
		Junctions:    junctions.ToIntrospectionMap(),
		JunctionMode: s.JunctionMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to derive entities: %w", err)
	}
	return &Models{Entities: entities}, nil
}
