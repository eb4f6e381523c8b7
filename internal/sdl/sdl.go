// Package sdl renders annotated type declarations as a GraphQL SDL document.
package sdl

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"sqlmodel-graphql/internal/annotation"
	"sqlmodel-graphql/internal/naming"
)

var scalarDescriptions = map[annotation.Scalar]string{
	annotation.ScalarDate:     "Date value serialized as YYYY-MM-DD.",
	annotation.ScalarDateTime: "Timestamp serialized as RFC 3339.",
	annotation.ScalarTime:     "Time of day serialized as HH:MM:SS.",
	annotation.ScalarDecimal:  "Fixed-point decimal value serialized as a string.",
	annotation.ScalarBytes:    "Binary data serialized as standard base64.",
}

// Options controls rendering.
type Options struct {
	CamelCaseFields bool
	Namer           *naming.Namer
	// OmitQuery leaves out the root Query type listing the exposed types.
	OmitQuery bool
}

// Document builds the SDL document: custom scalars in use, then one object
// type per declaration in declaration order, then the root Query type.
func Document(decls []annotation.Declaration, opts Options) *ast.SchemaDocument {
	namer := opts.Namer
	if namer == nil {
		namer = naming.Default()
	}

	doc := &ast.SchemaDocument{}
	used := make(map[annotation.Scalar]bool)
	objects := make(ast.DefinitionList, 0, len(decls))
	for _, d := range decls {
		def := &ast.Definition{
			Kind:        ast.Object,
			Name:        d.Name,
			Description: d.Description,
		}
		for _, f := range d.Fields.Fields() {
			name := f.Name
			if opts.CamelCaseFields {
				name = namer.ToGraphQLFieldName(f.Name)
			}
			if !f.Annotation.IsReference() && !f.Annotation.Scalar.IsBuiltin() {
				used[f.Annotation.Scalar] = true
			}
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name: name,
				Type: astType(f.Annotation),
			})
		}
		objects = append(objects, def)
	}

	customs := make([]annotation.Scalar, 0, len(used))
	for s := range used {
		customs = append(customs, s)
	}
	sort.Slice(customs, func(i, j int) bool { return customs[i] < customs[j] })
	for _, s := range customs {
		doc.Definitions = append(doc.Definitions, &ast.Definition{
			Kind:        ast.Scalar,
			Name:        s.GraphQLName(),
			Description: scalarDescriptions[s],
		})
	}
	doc.Definitions = append(doc.Definitions, objects...)

	if !opts.OmitQuery {
		doc.Definitions = append(doc.Definitions, &ast.Definition{
			Kind: ast.Object,
			Name: "Query",
			Fields: ast.FieldList{{
				Name:        "_types",
				Description: "Names of the exposed entity types.",
				Type:        ast.NonNullListType(ast.NonNullNamedType("String", nil), nil),
			}},
		})
	}
	return doc
}

func astType(a annotation.Annotation) *ast.Type {
	var t *ast.Type
	if a.IsReference() {
		t = ast.NamedType(a.Ref, nil)
		if a.List {
			t = ast.ListType(ast.NonNullNamedType(a.Ref, nil), nil)
		}
	} else {
		t = ast.NamedType(a.Scalar.GraphQLName(), nil)
	}
	t.NonNull = !a.Optional
	return t
}

// Render formats the document for decls.
func Render(decls []annotation.Declaration, opts Options) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf, formatter.WithIndent("  ")).FormatSchemaDocument(Document(decls, opts))
	return buf.String()
}

// Validate parses and validates an SDL document against the GraphQL
// specification, including that every referenced type is defined.
func Validate(source string) error {
	_, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: source})
	if err != nil {
		return fmt.Errorf("invalid SDL: %w", err)
	}
	return nil
}

// RenderValid renders decls and validates the result.
func RenderValid(decls []annotation.Declaration, opts Options) (string, error) {
	out := Render(decls, opts)
	if err := Validate(out); err != nil {
		return "", err
	}
	return out, nil
}
