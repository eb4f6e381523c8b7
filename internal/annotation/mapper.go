package annotation

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"sqlmodel-graphql/internal/model"
)

// Config controls the naming contract between persistence-layer entity
// names and exposed type names.
type Config struct {
	// ModelSuffix is stripped from the end of entity names to derive the
	// exposed type name, e.g. "BookModel" -> "Book". Empty disables stripping.
	ModelSuffix string `mapstructure:"model_suffix"`
	// StrictSuffix rejects names that do not carry ModelSuffix instead of
	// keeping them unchanged with a warning.
	StrictSuffix bool `mapstructure:"strict_suffix"`
}

// DefaultConfig returns the conventional "Model" suffix in lenient mode.
func DefaultConfig() Config {
	return Config{ModelSuffix: "Model"}
}

// Mapper turns entity descriptors into annotation maps.
type Mapper struct {
	config Config
	logger *slog.Logger
}

// New creates a Mapper. A nil logger falls back to slog.Default.
func New(cfg Config, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{config: cfg, logger: logger}
}

// Default returns a Mapper with DefaultConfig.
func Default() *Mapper {
	return New(DefaultConfig(), nil)
}

var defaultMapper = Default()

// MapScalars maps entity columns using the default mapper.
func MapScalars(e model.Entity) (*Map, error) {
	return defaultMapper.MapScalars(e)
}

// MapRelationships maps entity relationships using the default mapper.
func MapRelationships(e model.Entity) (*Map, error) {
	return defaultMapper.MapRelationships(e)
}

// BuildAnnotations maps columns and relationships using the default mapper.
func BuildAnnotations(e model.Entity) (*Map, error) {
	return defaultMapper.BuildAnnotations(e)
}

// TypeName returns the exposed type name for an entity.
func (m *Mapper) TypeName(e model.Entity) (string, error) {
	if e.Name == "" {
		return "", errors.New("entity has no name")
	}
	return m.exposedName(e.Name)
}

// exposedName strips the model suffix when it ends the name and leaves a
// non-empty remainder. Other names are kept as-is, or rejected in strict mode.
func (m *Mapper) exposedName(name string) (string, error) {
	suffix := m.config.ModelSuffix
	if suffix == "" {
		return name, nil
	}
	if trimmed, ok := strings.CutSuffix(name, suffix); ok && trimmed != "" {
		return trimmed, nil
	}
	if m.config.StrictSuffix {
		return "", &NonConformingTypeNameError{Name: name, Suffix: suffix}
	}
	m.logger.Warn("type name does not carry model suffix, keeping it unchanged",
		slog.String("name", name),
		slog.String("suffix", suffix),
	)
	return name, nil
}

// BuildAnnotations merges the scalar and relationship maps of an entity.
// The two key sets must be disjoint: a field cannot be both a column and a
// relationship.
func (m *Mapper) BuildAnnotations(e model.Entity) (*Map, error) {
	scalars, err := m.MapScalars(e)
	if err != nil {
		return nil, err
	}
	relationships, err := m.MapRelationships(e)
	if err != nil {
		return nil, err
	}

	typeName := e.Name
	merged := scalars.clone()
	for _, f := range relationships.Fields() {
		if existing, ok := merged.Get(f.Name); ok {
			return nil, &FieldCollisionError{
				Type:     typeName,
				Field:    f.Name,
				Existing: existing,
				Incoming: f.Annotation,
			}
		}
		_ = merged.add(f.Name, f.Annotation)
	}
	return merged, nil
}

// Declaration is an exposed type ready to be registered with a schema
// builder.
type Declaration struct {
	Name        string
	Entity      string
	Description string
	Fields      *Map
}

// Declare builds the declaration for an entity: its generated annotations
// plus hand-declared extra fields. An extra field may repeat a generated one
// only with an identical annotation.
func (m *Mapper) Declare(e model.Entity, extra *Map) (Declaration, error) {
	name, err := m.TypeName(e)
	if err != nil {
		return Declaration{}, err
	}
	return m.declare(e, name, extra)
}

func (m *Mapper) declare(e model.Entity, name string, extra *Map) (Declaration, error) {
	generated, err := m.BuildAnnotations(e)
	if err != nil {
		return Declaration{}, err
	}

	fields := generated.clone()
	for _, f := range extra.Fields() {
		if existing, ok := fields.Get(f.Name); ok {
			if existing != f.Annotation {
				return Declaration{}, &FieldCollisionError{
					Type:     name,
					Field:    f.Name,
					Existing: existing,
					Incoming: f.Annotation,
				}
			}
			continue
		}
		_ = fields.add(f.Name, f.Annotation)
	}

	return Declaration{
		Name:        name,
		Entity:      e.Name,
		Description: e.Comment,
		Fields:      fields,
	}, nil
}

// DeclareAll declares every entity of a model set. extras is keyed by
// exposed type name. The call fails as a whole on the first error.
func (m *Mapper) DeclareAll(entities []model.Entity, extras map[string]*Map) ([]Declaration, error) {
	declarations := make([]Declaration, 0, len(entities))
	seen := make(map[string]string, len(entities))
	for _, e := range entities {
		name, err := m.TypeName(e)
		if err != nil {
			return nil, err
		}
		if other, ok := seen[name]; ok {
			return nil, &DuplicateTypeError{Type: name, Entities: []string{other, e.Name}}
		}
		seen[name] = e.Name

		decl, err := m.declare(e, name, extras[name])
		if err != nil {
			return nil, err
		}
		declarations = append(declarations, decl)
	}

	unknown := make([]string, 0)
	for name := range extras {
		if _, ok := seen[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("extra fields declared for unknown types: %s", strings.Join(unknown, ", "))
	}
	return declarations, nil
}
