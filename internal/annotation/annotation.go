// Package annotation derives GraphQL type annotations from relational entity
// descriptors. It maps column type tags to scalar annotations, relationship
// descriptors to forward type references, and merges both into the field set
// of an exposed type declaration.
//
// Everything in this package is a pure function of its input. Mapping an
// entity is all or nothing: any unsupported column tag or relationship
// cardinality fails the whole call and no partial map is returned.
package annotation

import (
	"fmt"
	"regexp"
	"strings"
)

// Scalar is a GraphQL leaf type an annotation can resolve to.
type Scalar string

const (
	ScalarInt      Scalar = "Int"
	ScalarBoolean  Scalar = "Boolean"
	ScalarDate     Scalar = "Date"
	ScalarDateTime Scalar = "DateTime"
	ScalarFloat    Scalar = "Float"
	ScalarBytes    Scalar = "Bytes"
	ScalarDecimal  Scalar = "Decimal"
	ScalarString   Scalar = "String"
	ScalarTime     Scalar = "Time"
)

var allScalars = []Scalar{
	ScalarInt, ScalarBoolean, ScalarDate, ScalarDateTime, ScalarFloat,
	ScalarBytes, ScalarDecimal, ScalarString, ScalarTime,
}

// Scalars returns every scalar the mapper can produce.
func Scalars() []Scalar {
	return append([]Scalar(nil), allScalars...)
}

// GraphQLName returns the scalar's GraphQL type name.
func (s Scalar) GraphQLName() string {
	return string(s)
}

func (s Scalar) String() string {
	return string(s)
}

// IsBuiltin reports whether the scalar is part of the GraphQL specification
// and needs no custom scalar definition.
func (s Scalar) IsBuiltin() bool {
	switch s {
	case ScalarInt, ScalarBoolean, ScalarFloat, ScalarString:
		return true
	default:
		return false
	}
}

func scalarByName(name string) (Scalar, bool) {
	for _, s := range allScalars {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// Annotation is the type annotation of one exposed field. It is either a
// scalar, a forward reference to another exposed type, or a list of forward
// references. Forward references are symbolic names; resolving them to a
// concrete type is the job of the schema-building layer.
type Annotation struct {
	Scalar   Scalar
	Ref      string
	List     bool
	Optional bool
}

// ScalarOf returns a required scalar annotation.
func ScalarOf(s Scalar) Annotation {
	return Annotation{Scalar: s}
}

// OptionalOf returns a nullable scalar annotation.
func OptionalOf(s Scalar) Annotation {
	return Annotation{Scalar: s, Optional: true}
}

// Forward returns a required single reference to the named type.
func Forward(typeName string) Annotation {
	return Annotation{Ref: typeName}
}

// OptionalForward returns a nullable single reference to the named type.
func OptionalForward(typeName string) Annotation {
	return Annotation{Ref: typeName, Optional: true}
}

// ListOf returns a required list of required references to the named type.
func ListOf(typeName string) Annotation {
	return Annotation{Ref: typeName, List: true}
}

// IsReference reports whether the annotation points at another exposed type.
func (a Annotation) IsReference() bool {
	return a.Ref != ""
}

// Named returns the innermost type name: the scalar name or the reference.
func (a Annotation) Named() string {
	if a.IsReference() {
		return a.Ref
	}
	return string(a.Scalar)
}

// String renders the annotation in GraphQL type notation, e.g. "Int!",
// "String", "Book!" or "[Book!]!".
func (a Annotation) String() string {
	var b strings.Builder
	if a.List {
		b.WriteString("[")
		b.WriteString(a.Named())
		b.WriteString("!]")
	} else {
		b.WriteString(a.Named())
	}
	if !a.Optional {
		b.WriteString("!")
	}
	return b.String()
}

var graphqlName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// ParseAnnotation parses GraphQL type notation produced by String. Names
// matching a known scalar become scalar annotations; any other name is a
// forward reference. Lists must hold required references.
func ParseAnnotation(s string) (Annotation, error) {
	raw := strings.TrimSpace(s)
	text := raw
	optional := true
	if strings.HasSuffix(text, "!") {
		optional = false
		text = strings.TrimSpace(strings.TrimSuffix(text, "!"))
	}

	if strings.HasPrefix(text, "[") {
		if !strings.HasSuffix(text, "]") {
			return Annotation{}, fmt.Errorf("invalid annotation %q: unterminated list", raw)
		}
		inner := strings.TrimSpace(text[1 : len(text)-1])
		if !strings.HasSuffix(inner, "!") {
			return Annotation{}, fmt.Errorf("invalid annotation %q: list elements must be non-null", raw)
		}
		name := strings.TrimSpace(strings.TrimSuffix(inner, "!"))
		if !graphqlName.MatchString(name) {
			return Annotation{}, fmt.Errorf("invalid annotation %q: bad type name %q", raw, name)
		}
		if _, ok := scalarByName(name); ok {
			return Annotation{}, fmt.Errorf("invalid annotation %q: scalar lists are not supported", raw)
		}
		return Annotation{Ref: name, List: true, Optional: optional}, nil
	}

	if !graphqlName.MatchString(text) {
		return Annotation{}, fmt.Errorf("invalid annotation %q: bad type name %q", raw, text)
	}
	if scalar, ok := scalarByName(text); ok {
		return Annotation{Scalar: scalar, Optional: optional}, nil
	}
	return Annotation{Ref: text, Optional: optional}, nil
}
