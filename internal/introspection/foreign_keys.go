package introspection

import (
	"cmp"
	"slices"
	"strconv"
)

// ForeignKeyConstraint is one foreign key of a table with its columns in key
// order. Catalogs report composite keys as one row per column; the rows are
// grouped here by constraint name.
type ForeignKeyConstraint struct {
	ConstraintName    string
	ReferencedTable   string
	ColumnNames       []string
	ReferencedColumns []string
}

// Valid reports whether every local column pairs with a referenced column.
// A composite key referencing a parent without a matching primary key can be
// left short when its targets were implicit.
func (fk ForeignKeyConstraint) Valid() bool {
	if len(fk.ColumnNames) == 0 || len(fk.ColumnNames) != len(fk.ReferencedColumns) {
		return false
	}
	for _, col := range fk.ReferencedColumns {
		if col == "" {
			return false
		}
	}
	return true
}

// Composite reports whether the key spans more than one column.
func (fk ForeignKeyConstraint) Composite() bool {
	return len(fk.ColumnNames) > 1
}

// Nullable reports whether any local column of fk accepts NULL, in which
// case a row may have no referenced parent.
func (fk ForeignKeyConstraint) Nullable(table Table) bool {
	for _, name := range fk.ColumnNames {
		if col := ColumnByName(table, name); col != nil && col.IsNullable {
			return true
		}
	}
	return false
}

// ForeignKeyConstraints groups the foreign key rows of a table into
// constraints ordered by constraint name. Columns follow their ordinal
// position; rows without one come last. A row without a constraint name is
// a constraint of its own.
func ForeignKeyConstraints(table Table) []ForeignKeyConstraint {
	if len(table.ForeignKeys) == 0 {
		return nil
	}

	type group struct {
		key  string
		rows []ForeignKey
	}
	var groups []*group
	byKey := make(map[string]*group)
	for i, fk := range table.ForeignKeys {
		key := fk.ConstraintName
		if key == "" {
			key = "\x00" + strconv.Itoa(i)
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, fk)
	}
	slices.SortStableFunc(groups, func(a, b *group) int { return cmp.Compare(a.key, b.key) })

	out := make([]ForeignKeyConstraint, 0, len(groups))
	for _, g := range groups {
		slices.SortStableFunc(g.rows, compareKeyColumns)
		c := ForeignKeyConstraint{
			ConstraintName:  g.rows[0].ConstraintName,
			ReferencedTable: g.rows[0].ReferencedTable,
		}
		for _, row := range g.rows {
			c.ColumnNames = append(c.ColumnNames, row.ColumnName)
			c.ReferencedColumns = append(c.ReferencedColumns, row.ReferencedColumn)
		}
		out = append(out, c)
	}
	return out
}

func compareKeyColumns(a, b ForeignKey) int {
	switch {
	case a.OrdinalPosition == b.OrdinalPosition:
		return cmp.Compare(a.ColumnName, b.ColumnName)
	case a.OrdinalPosition == 0:
		return 1
	case b.OrdinalPosition == 0:
		return -1
	default:
		return cmp.Compare(a.OrdinalPosition, b.OrdinalPosition)
	}
}

// resolveImplicitReferences fills referenced columns left empty by the
// catalog. SQLite reports no target column when a foreign key names only the
// parent table, which then refers to the parent's primary key column at the
// same position.
func resolveImplicitReferences(schema *Schema) {
	for i := range schema.Tables {
		table := &schema.Tables[i]
		for j := range table.ForeignKeys {
			fk := &table.ForeignKeys[j]
			if fk.ReferencedColumn != "" {
				continue
			}
			parent := schema.Table(fk.ReferencedTable)
			if parent == nil {
				continue
			}
			pk := PrimaryKeyColumns(*parent)
			if position := fk.OrdinalPosition - 1; position >= 0 && position < len(pk) {
				fk.ReferencedColumn = pk[position]
			}
		}
	}
}
