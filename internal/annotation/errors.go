package annotation

import (
	"errors"
	"fmt"
	"strings"

	"sqlmodel-graphql/internal/model"
)

var (
	// ErrUnsupportedColumnType marks a column whose type tag has no scalar rule.
	ErrUnsupportedColumnType = errors.New("unsupported column type")
	// ErrUnsupportedRelationshipCardinality marks many-to-many or unknown directions.
	ErrUnsupportedRelationshipCardinality = errors.New("unsupported relationship cardinality")
	// ErrFieldCollision marks a field produced twice while composing a type.
	ErrFieldCollision = errors.New("field collision")
	// ErrUnresolvedTarget marks a relationship whose target has no name.
	ErrUnresolvedTarget = errors.New("unresolved relationship target")
	// ErrNonConformingTypeName marks a name lacking the model suffix under strict mode.
	ErrNonConformingTypeName = errors.New("non-conforming type name")
	// ErrDuplicateField marks two columns or two relationships sharing a name.
	ErrDuplicateField = errors.New("duplicate field")
	// ErrDuplicateType marks two entities exposing the same type name.
	ErrDuplicateType = errors.New("duplicate type")
)

// UnsupportedColumnTypeError identifies the column and tag that failed.
type UnsupportedColumnTypeError struct {
	Entity string
	Column string
	Type   model.ColumnType
}

func (e *UnsupportedColumnTypeError) Error() string {
	return fmt.Sprintf("entity %s: column %q has unsupported type %q", e.Entity, e.Column, string(e.Type))
}

func (e *UnsupportedColumnTypeError) Unwrap() error { return ErrUnsupportedColumnType }

// UnsupportedRelationshipCardinalityError identifies the relationship that failed.
type UnsupportedRelationshipCardinalityError struct {
	Entity       string
	Relationship string
	Direction    model.Direction
}

func (e *UnsupportedRelationshipCardinalityError) Error() string {
	direction := string(e.Direction)
	if direction == "" {
		direction = "<none>"
	}
	return fmt.Sprintf("entity %s: relationship %q has unsupported direction %s", e.Entity, e.Relationship, direction)
}

func (e *UnsupportedRelationshipCardinalityError) Unwrap() error {
	return ErrUnsupportedRelationshipCardinality
}

// FieldCollisionError reports a field name claimed by two sources.
type FieldCollisionError struct {
	Type     string
	Field    string
	Existing Annotation
	Incoming Annotation
}

func (e *FieldCollisionError) Error() string {
	return fmt.Sprintf("type %s: field %q declared as both %s and %s", e.Type, e.Field, e.Existing, e.Incoming)
}

func (e *FieldCollisionError) Unwrap() error { return ErrFieldCollision }

// UnresolvedTargetError reports a relationship with an empty target.
type UnresolvedTargetError struct {
	Entity       string
	Relationship string
	Err          error
}

func (e *UnresolvedTargetError) Error() string {
	return fmt.Sprintf("entity %s: relationship %q: %v", e.Entity, e.Relationship, e.Err)
}

func (e *UnresolvedTargetError) Unwrap() []error { return []error{ErrUnresolvedTarget, e.Err} }

// NonConformingTypeNameError reports a persistence-layer name without the
// expected model suffix.
type NonConformingTypeNameError struct {
	Name   string
	Suffix string
}

func (e *NonConformingTypeNameError) Error() string {
	return fmt.Sprintf("type name %q does not end with model suffix %q", e.Name, e.Suffix)
}

func (e *NonConformingTypeNameError) Unwrap() error { return ErrNonConformingTypeName }

// DuplicateFieldError reports a name used by two columns or two relationships.
type DuplicateFieldError struct {
	Entity string
	Field  string
}

func (e *DuplicateFieldError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("duplicate field %q", e.Field)
	}
	return fmt.Sprintf("entity %s: duplicate field %q", e.Entity, e.Field)
}

func (e *DuplicateFieldError) Unwrap() error { return ErrDuplicateField }

// DuplicateTypeError reports entities that map to the same exposed type.
type DuplicateTypeError struct {
	Type     string
	Entities []string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("type %s is exposed by more than one entity: %s", e.Type, strings.Join(e.Entities, ", "))
}

func (e *DuplicateTypeError) Unwrap() error { return ErrDuplicateType }

// ErrorKind returns a stable label for err, used in metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedColumnType):
		return "unsupported_column_type"
	case errors.Is(err, ErrUnsupportedRelationshipCardinality):
		return "unsupported_relationship_cardinality"
	case errors.Is(err, ErrFieldCollision):
		return "field_collision"
	case errors.Is(err, ErrUnresolvedTarget):
		return "unresolved_target"
	case errors.Is(err, ErrNonConformingTypeName):
		return "non_conforming_type_name"
	case errors.Is(err, ErrDuplicateField):
		return "duplicate_field"
	case errors.Is(err, ErrDuplicateType):
		return "duplicate_type"
	default:
		return "other"
	}
}
