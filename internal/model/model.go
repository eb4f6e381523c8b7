// Package model holds the relational entity descriptors consumed by the
// annotation mapper. Descriptors are plain values produced by a modeling
// layer (database introspection or a YAML definitions file) and are never
// mutated by the mapper.
package model

import (
	"errors"
	"fmt"
)

// ColumnType is the declared type tag of a column.
type ColumnType string

const (
	TypeBigInteger   ColumnType = "big_integer"
	TypeBoolean      ColumnType = "boolean"
	TypeDate         ColumnType = "date"
	TypeDateTime     ColumnType = "date_time"
	TypeFloat        ColumnType = "float"
	TypeInteger      ColumnType = "integer"
	TypeLargeBinary  ColumnType = "large_binary"
	TypeNumeric      ColumnType = "numeric"
	TypeSmallInteger ColumnType = "small_integer"
	TypeString       ColumnType = "string"
	TypeText         ColumnType = "text"
	TypeTime         ColumnType = "time"
	TypeUnicode      ColumnType = "unicode"
	TypeUnicodeText  ColumnType = "unicode_text"
)

// parents encodes the tag hierarchy: a small integer is also an integer,
// a float is also a numeric, and so on.
var parents = map[ColumnType]ColumnType{
	TypeBigInteger:   TypeInteger,
	TypeSmallInteger: TypeInteger,
	TypeFloat:        TypeNumeric,
	TypeText:         TypeString,
	TypeUnicode:      TypeString,
	TypeUnicodeText:  TypeText,
}

var knownTypes = map[ColumnType]struct{}{
	TypeBigInteger: {}, TypeBoolean: {}, TypeDate: {}, TypeDateTime: {},
	TypeFloat: {}, TypeInteger: {}, TypeLargeBinary: {}, TypeNumeric: {},
	TypeSmallInteger: {}, TypeString: {}, TypeText: {}, TypeTime: {},
	TypeUnicode: {}, TypeUnicodeText: {},
}

// Known reports whether t is one of the enumerated tags.
func (t ColumnType) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// Parent returns the more general tag t derives from, if any.
func (t ColumnType) Parent() (ColumnType, bool) {
	p, ok := parents[t]
	return p, ok
}

// IsA reports whether t is other or one of its descendants.
func (t ColumnType) IsA(other ColumnType) bool {
	for cur := t; ; {
		if cur == other {
			return true
		}
		next, ok := parents[cur]
		if !ok {
			return false
		}
		cur = next
	}
}

// Direction is the cardinality direction of a relationship.
type Direction string

const (
	OneToMany  Direction = "one_to_many"
	OneToOne   Direction = "one_to_one"
	ManyToOne  Direction = "many_to_one"
	ManyToMany Direction = "many_to_many"
)

// Column describes one persisted column.
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
	Comment  string
}

// Target points at the entity on the other side of a relationship, either
// by name or by handle.
type Target struct {
	Name   string
	Entity *Entity
}

// TargetName returns a target referring to an entity by name.
func TargetName(name string) Target {
	return Target{Name: name}
}

// TargetEntity returns a target holding a resolved entity handle.
func TargetEntity(e *Entity) Target {
	return Target{Entity: e}
}

// ErrEmptyTarget is returned when a target has neither a name nor a handle.
var ErrEmptyTarget = errors.New("relationship target has no name")

// Resolve returns the declared name of the target entity. A plain name is
// used directly; otherwise the handle's name is taken.
func (t Target) Resolve() (string, error) {
	if t.Name != "" {
		return t.Name, nil
	}
	if t.Entity != nil && t.Entity.Name != "" {
		return t.Entity.Name, nil
	}
	return "", ErrEmptyTarget
}

func (t Target) String() string {
	name, err := t.Resolve()
	if err != nil {
		return "<unresolved>"
	}
	return name
}

// Relationship describes a navigable link to another entity.
type Relationship struct {
	Name      string
	Target    Target
	Direction Direction
	// Nullable marks single-reference relationships that may be absent.
	Nullable bool
}

// Entity is one persisted type with its ordered columns and relationships.
type Entity struct {
	Name          string
	Table         string
	Comment       string
	Columns       []Column
	Relationships []Relationship
}

func (e Entity) String() string {
	if e.Table != "" {
		return fmt.Sprintf("%s(%s)", e.Name, e.Table)
	}
	return e.Name
}
