package introspection

// PrimaryKeyColumns returns the primary key column names of a table in key
// order. Returns nil if the table has no primary key.
func PrimaryKeyColumns(table Table) []string {
	for _, key := range table.UniqueKeys {
		if key.Primary {
			return append([]string(nil), key.Columns...)
		}
	}
	var cols []string
	for _, col := range table.Columns {
		if col.IsPrimaryKey {
			cols = append(cols, col.Name)
		}
	}
	return cols
}

// HasUniqueKey reports whether columns, in any order, are exactly the
// columns of the table's primary key or of one of its unique keys.
func HasUniqueKey(table Table, columns []string) bool {
	if len(columns) == 0 {
		return false
	}
	if pk := PrimaryKeyColumns(table); sameColumnSet(pk, columns) {
		return true
	}
	for _, key := range table.UniqueKeys {
		if sameColumnSet(key.Columns, columns) {
			return true
		}
	}
	return false
}

// CoversColumns reports whether the primary key or a unique key contains all
// of columns, possibly with others.
func CoversColumns(table Table, columns []string) bool {
	if len(columns) == 0 {
		return false
	}
	keys := table.UniqueKeys
	if pk := PrimaryKeyColumns(table); len(pk) > 0 {
		keys = append([]UniqueKey{{Primary: true, Columns: pk}}, keys...)
	}
	for _, key := range keys {
		set := make(map[string]bool, len(key.Columns))
		for _, col := range key.Columns {
			set[col] = true
		}
		covered := true
		for _, col := range columns {
			if !set[col] {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

// ColumnByName returns the named column, or nil.
func ColumnByName(table Table, name string) *Column {
	for i := range table.Columns {
		if table.Columns[i].Name == name {
			return &table.Columns[i]
		}
	}
	return nil
}

func sameColumnSet(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	set := make(map[string]int, len(a))
	for _, col := range a {
		set[col]++
	}
	for _, col := range b {
		if set[col] == 0 {
			return false
		}
		set[col]--
	}
	return true
}
