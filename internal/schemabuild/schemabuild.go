// Package schemabuild registers annotated type declarations with a
// graphql-go schema. Forward references are resolved here, by exposed type
// name, once every declaration is known. The schema carries no data
// resolvers; its root Query only lists the exposed types.
package schemabuild

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/graphql-go/graphql"

	"sqlmodel-graphql/internal/annotation"
	"sqlmodel-graphql/internal/naming"
	"sqlmodel-graphql/internal/scalars"
)

// TypesField is the root query field listing the exposed type names.
const TypesField = "_types"

var (
	ErrUnresolvedReference = errors.New("unresolved type reference")
	ErrFieldNameCollision  = errors.New("field name collision")
	ErrReservedTypeName    = errors.New("reserved type name")
	ErrReservedFieldName   = errors.New("reserved field name")
)

// UnresolvedReferenceError reports a forward reference naming no declared type.
type UnresolvedReferenceError struct {
	Type  string
	Field string
	Ref   string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s.%s: reference to undeclared type %q", e.Type, e.Field, e.Ref)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrUnresolvedReference }

// FieldNameCollisionError reports two fields that share a name once
// converted to GraphQL field naming.
type FieldNameCollisionError struct {
	Type   string
	Name   string
	Fields []string
}

func (e *FieldNameCollisionError) Error() string {
	return fmt.Sprintf("type %s: fields %s all map to %q", e.Type, strings.Join(e.Fields, ", "), e.Name)
}

func (e *FieldNameCollisionError) Unwrap() error { return ErrFieldNameCollision }

// Options controls schema construction.
type Options struct {
	// CamelCaseFields converts snake_case field names to camelCase.
	CamelCaseFields bool
	Namer           *naming.Namer
	Logger          *slog.Logger
}

type field struct {
	name       string
	annotation annotation.Annotation
}

type declaration struct {
	name        string
	description string
	fields      []field
}

// Builder holds the object types of one schema build.
type Builder struct {
	decls []declaration
	types map[string]*graphql.Object
	order []string
}

// NewBuilder validates declarations and prepares their object types. Every
// forward reference must name a declaration in decls.
func NewBuilder(decls []annotation.Declaration, opts Options) (*Builder, error) {
	namer := opts.Namer
	if namer == nil {
		namer = naming.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	declared := make(map[string]bool, len(decls))
	for _, d := range decls {
		if naming.IsReservedTypeName(d.Name) {
			return nil, fmt.Errorf("%w: %q", ErrReservedTypeName, d.Name)
		}
		if declared[d.Name] {
			return nil, &annotation.DuplicateTypeError{Type: d.Name}
		}
		declared[d.Name] = true
	}

	b := &Builder{types: make(map[string]*graphql.Object, len(decls))}
	for _, d := range decls {
		decl := declaration{name: d.Name, description: d.Description}
		sources := make(map[string]string)
		for _, f := range d.Fields.Fields() {
			if f.Annotation.IsReference() && !declared[f.Annotation.Ref] {
				return nil, &UnresolvedReferenceError{Type: d.Name, Field: f.Name, Ref: f.Annotation.Ref}
			}
			if !f.Annotation.IsReference() {
				if _, err := scalars.For(f.Annotation.Scalar); err != nil {
					return nil, fmt.Errorf("%s.%s: %w", d.Name, f.Name, err)
				}
			}
			name := f.Name
			if opts.CamelCaseFields {
				name = namer.ToGraphQLFieldName(f.Name)
			}
			if naming.IsReservedFieldName(name) {
				return nil, fmt.Errorf("%w: %s.%s", ErrReservedFieldName, d.Name, name)
			}
			if prev, ok := sources[name]; ok {
				return nil, &FieldNameCollisionError{Type: d.Name, Name: name, Fields: []string{prev, f.Name}}
			}
			sources[name] = f.Name
			decl.fields = append(decl.fields, field{name: name, annotation: f.Annotation})
		}
		b.decls = append(b.decls, decl)
		b.order = append(b.order, d.Name)
	}

	for _, decl := range b.decls {
		b.types[decl.name] = b.object(decl)
	}
	logger.Debug("schema types prepared", slog.Int("types", len(b.types)))
	return b, nil
}

// object creates the type with a FieldsThunk so that mutually referencing
// types can be created in any order.
func (b *Builder) object(decl declaration) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name:        decl.name,
		Description: decl.description,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			fields := graphql.Fields{}
			for _, f := range decl.fields {
				fields[f.name] = &graphql.Field{Type: b.output(f.annotation)}
			}
			return fields
		}),
	})
}

// output converts an annotation into a GraphQL output type. References
// and scalars are validated in NewBuilder.
func (b *Builder) output(a annotation.Annotation) graphql.Output {
	var out graphql.Output
	if a.IsReference() {
		out = b.types[a.Ref]
		if a.List {
			out = graphql.NewList(graphql.NewNonNull(out))
		}
	} else {
		scalar, _ := scalars.For(a.Scalar)
		out = scalar
	}
	if !a.Optional {
		out = graphql.NewNonNull(out)
	}
	return out
}

// Type returns the object type for an exposed type name.
func (b *Builder) Type(name string) (*graphql.Object, bool) {
	t, ok := b.types[name]
	return t, ok
}

// TypeNames returns the exposed type names in declaration order.
func (b *Builder) TypeNames() []string {
	names := make([]string, len(b.order))
	copy(names, b.order)
	return names
}

// Schema assembles the graphql-go schema.
func (b *Builder) Schema() (graphql.Schema, error) {
	names := b.TypeNames()
	types := make([]graphql.Type, 0, len(b.types))
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, name := range sorted {
		types = append(types, b.types[name])
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			TypesField: &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Description: "Names of the exposed entity types.",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return names, nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: query,
		Types: types,
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}
	return schema, nil
}

// Build validates declarations and assembles the schema in one step.
func Build(decls []annotation.Declaration, opts Options) (graphql.Schema, error) {
	b, err := NewBuilder(decls, opts)
	if err != nil {
		return graphql.Schema{}, err
	}
	return b.Schema()
}
