// Package definitions loads entity descriptors from a YAML file, for models
// that are declared by hand rather than read from a database.
package definitions

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sqlmodel-graphql/internal/annotation"
	"sqlmodel-graphql/internal/model"
)

// File is the top-level structure of a definitions document.
type File struct {
	Entities []Entity `yaml:"entities"`
	// ExtraFields declares hand-written fields per exposed type name, in
	// annotation notation, e.g. {"Author": {"fullName": "String!"}}.
	ExtraFields map[string]Fields `yaml:"extra_fields"`
}

// Entity declares one persisted entity.
type Entity struct {
	Name          string         `yaml:"name"`
	Table         string         `yaml:"table"`
	Comment       string         `yaml:"comment"`
	Columns       []Column       `yaml:"columns"`
	Relationships []Relationship `yaml:"relationships"`
}

// Column declares one column.
type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	Comment  string `yaml:"comment"`
}

// Relationship declares one relationship. Target names another entity of
// the file or any type name known only to the consumer.
type Relationship struct {
	Name      string `yaml:"name"`
	Target    string `yaml:"target"`
	Direction string `yaml:"direction"`
	Nullable  bool   `yaml:"nullable"`
}

// Fields is an ordered name to annotation-notation mapping.
type Fields []Field

// Field is one hand-declared field.
type Field struct {
	Name       string
	Annotation string
}

// UnmarshalYAML decodes a mapping node keeping key order.
func (f *Fields) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of field names to types", node.Line)
	}
	out := make(Fields, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: field %q: expected a type such as \"String!\"", value.Line, key.Value)
		}
		out = append(out, Field{Name: key.Value, Annotation: value.Value})
	}
	*f = out
	return nil
}

// MarshalYAML encodes fields as a mapping in declaration order.
func (f Fields) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, field := range f {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: field.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: field.Annotation},
		)
	}
	return node, nil
}

// LoadFile reads and parses a definitions file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates a definitions document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse definitions YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks document structure. Type tags and directions are not
// checked here; the mapper rejects unsupported ones with typed errors.
func (f *File) Validate() error {
	var problems []string
	seen := make(map[string]bool, len(f.Entities))
	for i, e := range f.Entities {
		where := fmt.Sprintf("entities[%d]", i)
		if strings.TrimSpace(e.Name) == "" {
			problems = append(problems, where+": name is required")
		} else if seen[e.Name] {
			problems = append(problems, fmt.Sprintf("%s: duplicate entity %q", where, e.Name))
		}
		seen[e.Name] = true
		for j, c := range e.Columns {
			if strings.TrimSpace(c.Name) == "" {
				problems = append(problems, fmt.Sprintf("%s.columns[%d]: name is required", where, j))
			}
			if strings.TrimSpace(c.Type) == "" {
				problems = append(problems, fmt.Sprintf("%s.columns[%d]: type is required", where, j))
			}
		}
		for j, r := range e.Relationships {
			if strings.TrimSpace(r.Name) == "" {
				problems = append(problems, fmt.Sprintf("%s.relationships[%d]: name is required", where, j))
			}
		}
	}
	for typeName, fields := range f.ExtraFields {
		for _, field := range fields {
			if _, err := annotation.ParseAnnotation(field.Annotation); err != nil {
				problems = append(problems, fmt.Sprintf("extra_fields.%s.%s: %v", typeName, field.Name, err))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid definitions:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Models converts the declared entities into descriptors. Relationship
// targets naming a declared entity become entity handles; all others stay
// plain names. Table defaults to the entity name.
func (f *File) Models() []model.Entity {
	entities := make([]model.Entity, len(f.Entities))
	index := make(map[string]int, len(f.Entities))
	for i, e := range f.Entities {
		index[e.Name] = i
		table := e.Table
		if table == "" {
			table = e.Name
		}
		entities[i] = model.Entity{Name: e.Name, Table: table, Comment: e.Comment}
	}

	for i, e := range f.Entities {
		entity := &entities[i]
		for _, c := range e.Columns {
			entity.Columns = append(entity.Columns, model.Column{
				Name:     c.Name,
				Type:     model.ColumnType(strings.ToLower(strings.TrimSpace(c.Type))),
				Nullable: c.Nullable,
				Comment:  c.Comment,
			})
		}
		for _, r := range e.Relationships {
			target := model.TargetName(r.Target)
			if idx, ok := index[r.Target]; ok {
				target = model.TargetEntity(&entities[idx])
			}
			entity.Relationships = append(entity.Relationships, model.Relationship{
				Name:      r.Name,
				Target:    target,
				Direction: model.Direction(strings.ToLower(strings.TrimSpace(r.Direction))),
				Nullable:  r.Nullable,
			})
		}
	}
	return entities
}

// Extras returns the hand-declared fields keyed by exposed type name.
func (f *File) Extras() (map[string]*annotation.Map, error) {
	if len(f.ExtraFields) == 0 {
		return nil, nil
	}
	extras := make(map[string]*annotation.Map, len(f.ExtraFields))
	for typeName, fields := range f.ExtraFields {
		parsed := make([]annotation.Field, 0, len(fields))
		for _, field := range fields {
			a, err := annotation.ParseAnnotation(field.Annotation)
			if err != nil {
				return nil, fmt.Errorf("extra field %s.%s: %w", typeName, field.Name, err)
			}
			parsed = append(parsed, annotation.Field{Name: field.Name, Annotation: a})
		}
		m, err := annotation.NewMap(parsed...)
		if err != nil {
			return nil, fmt.Errorf("extra fields for %s: %w", typeName, err)
		}
		extras[typeName] = m
	}
	return extras, nil
}
