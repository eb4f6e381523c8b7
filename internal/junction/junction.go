// Package junction recognizes many-to-many link tables. A pure junction holds
// nothing but its two foreign keys and may be hidden or replaced by direct
// many-to-many relationships; an attribute junction carries columns of its own
// and always stays an entity.
package junction

import (
	"cmp"
	"maps"
	"slices"

	"sqlmodel-graphql/internal/introspection"
)

// Type classifies a table's role in many-to-many links.
type Type int

const (
	NotJunction Type = iota
	PureJunction
	AttributeJunction
)

func (t Type) String() string {
	switch t {
	case NotJunction:
		return "NotJunction"
	case PureJunction:
		return "PureJunction"
	case AttributeJunction:
		return "AttributeJunction"
	default:
		return "Unknown"
	}
}

// Reason explains why a table is not a junction. The empty Reason means it is.
type Reason string

const (
	ReasonView          Reason = "view"
	ReasonKeyCount      Reason = "not_two_foreign_keys"
	ReasonSelfReference Reason = "same_referenced_table"
	ReasonMissingTarget Reason = "referenced_table_missing"
	ReasonInvalidKey    Reason = "invalid_foreign_key"
	ReasonNullableKey   Reason = "nullable_foreign_key_column"
	ReasonNoCoveringKey Reason = "no_covering_unique_key"
)

// Info describes one junction table. LeftFK references the table whose name
// sorts first, so the pair is stable across catalog orderings.
type Info struct {
	Table            string
	Type             Type
	LeftFK           introspection.ForeignKeyConstraint
	RightFK          introspection.ForeignKeyConstraint
	AttributeColumns []string
}

// Map maps junction table names to their classification info.
type Map map[string]Info

// ToIntrospectionMap converts the pure junctions of m to an
// introspection.JunctionMap. Attribute junctions are left out because they
// always remain entities.
func (m Map) ToIntrospectionMap() introspection.JunctionMap {
	result := make(introspection.JunctionMap, len(m))
	for name, info := range m {
		if info.Type == PureJunction {
			result[name] = introspection.JunctionConfig{Table: info.Table, LeftFK: info.LeftFK, RightFK: info.RightFK}
		}
	}
	return result
}

// Tables returns the classified table names in sorted order.
func (m Map) Tables() []string {
	return slices.Sorted(maps.Keys(m))
}

// ClassifyJunctions returns every junction table of schema.
func ClassifyJunctions(schema *introspection.Schema) Map {
	result := make(Map)
	if schema == nil {
		return result
	}
	for _, table := range schema.Tables {
		if info, reason := Check(schema, table); reason == "" {
			result[table.Name] = info
		}
	}
	return result
}

// Check classifies one table of schema. A junction has exactly two valid
// foreign keys to two different tables of the schema, NOT NULL key columns,
// and a primary or unique key covering all of them, composite keys included.
func Check(schema *introspection.Schema, table introspection.Table) (Info, Reason) {
	if table.IsView {
		return Info{}, ReasonView
	}
	fks := introspection.ForeignKeyConstraints(table)
	if len(fks) != 2 {
		return Info{}, ReasonKeyCount
	}
	slices.SortFunc(fks, func(a, b introspection.ForeignKeyConstraint) int {
		return cmp.Compare(a.ReferencedTable, b.ReferencedTable)
	})
	left, right := fks[0], fks[1]

	switch {
	case left.ReferencedTable == right.ReferencedTable:
		return Info{}, ReasonSelfReference
	case schema.Table(left.ReferencedTable) == nil || schema.Table(right.ReferencedTable) == nil:
		return Info{}, ReasonMissingTarget
	case !left.Valid() || !right.Valid():
		return Info{}, ReasonInvalidKey
	case left.Nullable(table) || right.Nullable(table):
		return Info{}, ReasonNullableKey
	}

	keyColumns := slices.Concat(left.ColumnNames, right.ColumnNames)
	if !introspection.CoversColumns(table, keyColumns) {
		return Info{}, ReasonNoCoveringKey
	}

	info := Info{
		Table:            table.Name,
		Type:             PureJunction,
		LeftFK:           left,
		RightFK:          right,
		AttributeColumns: attributeColumns(table, keyColumns),
	}
	if len(info.AttributeColumns) > 0 {
		info.Type = AttributeJunction
	}
	return info, ""
}

func attributeColumns(table introspection.Table, keyColumns []string) []string {
	var attrs []string
	for _, col := range table.Columns {
		if !slices.Contains(keyColumns, col.Name) {
			attrs = append(attrs, col.Name)
		}
	}
	return attrs
}
