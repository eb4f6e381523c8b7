// Package schemafilter applies allow/deny filters to schema snapshots.
package schemafilter

import (
	"context"
	"log/slog"
	"path"
	"slices"
	"strings"

	"sqlmodel-graphql/internal/annotation"
	"sqlmodel-graphql/internal/introspection"
)

// Config controls allow/deny filters for tables and columns.
type Config struct {
	AllowTables      []string            `mapstructure:"allow_tables"`
	DenyTables       []string            `mapstructure:"deny_tables"`
	ScanViewsEnabled bool                `mapstructure:"scan_views_enabled"`
	AllowColumns     map[string][]string `mapstructure:"allow_columns"`
	DenyColumns      map[string][]string `mapstructure:"deny_columns"`
	// SkipUnsupportedTypes drops columns whose type has no scalar mapping
	// instead of letting the mapper reject the whole entity.
	SkipUnsupportedTypes bool `mapstructure:"skip_unsupported_types"`
}

// Apply filters tables, columns and keys in place. Relationship metadata is
// cleared; Schema.Entities derives it again from the surviving foreign keys.
// Missing allow lists default to allow-all; deny rules always win.
func Apply(_ context.Context, schema *introspection.Schema, cfg Config) {
	if schema == nil {
		return
	}

	allowedTableNames := make(map[string]bool)
	filteredTables := make([]introspection.Table, 0, len(schema.Tables))
	for _, table := range schema.Tables {
		if table.IsView && !cfg.ScanViewsEnabled {
			continue
		}
		if !tableAllowed(table.Name, cfg.AllowTables, cfg.DenyTables) {
			continue
		}
		filteredTables = append(filteredTables, table)
		allowedTableNames[table.Name] = true
	}

	if len(filteredTables) == 0 {
		schema.Tables = nil
		return
	}

	allowedColumnsByTable := make(map[string]map[string]bool, len(filteredTables))
	for i := range filteredTables {
		table := &filteredTables[i]
		allowedColumns := make(map[string]bool)
		filteredColumns := make([]introspection.Column, 0, len(table.Columns))
		for _, column := range table.Columns {
			if !columnAllowed(table.Name, column.Name, cfg.AllowColumns, cfg.DenyColumns) {
				continue
			}
			if cfg.SkipUnsupportedTypes {
				columnType := introspection.EffectiveColumnType(column)
				if _, ok := annotation.ScalarFor(columnType); !ok {
					slog.Default().Warn("skipping column with unsupported type",
						slog.String("table", table.Name),
						slog.String("column", column.Name),
						slog.String("type", string(columnType)),
					)
					continue
				}
			}
			filteredColumns = append(filteredColumns, column)
			allowedColumns[column.Name] = true
		}

		table.Columns = filteredColumns
		allowedColumnsByTable[table.Name] = allowedColumns
	}

	finalTables := make([]introspection.Table, 0, len(filteredTables))
	for _, table := range filteredTables {
		if len(table.Columns) == 0 {
			continue
		}

		allowedColumns := allowedColumnsByTable[table.Name]
		table.UniqueKeys = filterUniqueKeys(table.UniqueKeys, allowedColumns)
		table.ForeignKeys = filterForeignKeys(table, allowedColumns, allowedTableNames, allowedColumnsByTable)
		table.Relationships = nil
		finalTables = append(finalTables, table)
	}

	schema.Tables = finalTables
}

func tableAllowed(table string, allow, deny []string) bool {
	if matchesAny(table, deny) {
		return false
	}
	if len(allow) == 0 {
		return true
	}
	return matchesAny(table, allow)
}

func columnAllowed(table, column string, allow, deny map[string][]string) bool {
	denyPatterns := mergePatterns(deny, table)
	if matchesAny(column, denyPatterns) {
		return false
	}
	allowPatterns := mergePatterns(allow, table)
	if len(allowPatterns) == 0 {
		return true
	}
	return matchesAny(column, allowPatterns)
}

func mergePatterns(patterns map[string][]string, table string) []string {
	if patterns == nil {
		return nil
	}
	combined := append([]string{}, patterns["*"]...)
	combined = append(combined, patterns[table]...)
	return slices.Compact(combined)
}

func filterUniqueKeys(keys []introspection.UniqueKey, allowedColumns map[string]bool) []introspection.UniqueKey {
	filtered := make([]introspection.UniqueKey, 0, len(keys))
	for _, key := range keys {
		keep := true
		for _, col := range key.Columns {
			if !allowedColumns[col] {
				keep = false
				break
			}
		}
		if keep {
			filtered = append(filtered, key)
		}
	}
	return filtered
}

// filterForeignKeys keeps whole constraints only. A composite foreign key
// loses every row when any of its local or referenced columns is filtered.
func filterForeignKeys(table introspection.Table, allowedColumns map[string]bool, allowedTables map[string]bool, allowedColumnsByTable map[string]map[string]bool) []introspection.ForeignKey {
	dropped := make(map[string]bool)
	for _, fk := range table.ForeignKeys {
		remoteColumns := allowedColumnsByTable[fk.ReferencedTable]
		if !allowedColumns[fk.ColumnName] || !allowedTables[fk.ReferencedTable] ||
			remoteColumns == nil || !remoteColumns[fk.ReferencedColumn] {
			dropped[fk.ConstraintName] = true
		}
	}

	filtered := make([]introspection.ForeignKey, 0, len(table.ForeignKeys))
	for _, fk := range table.ForeignKeys {
		if dropped[fk.ConstraintName] {
			continue
		}
		filtered = append(filtered, fk)
	}
	return filtered
}

func matchesAny(value string, patterns []string) bool {
	value = strings.ToLower(value)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		// matching should be case-insensitive
		ok, err := path.Match(strings.ToLower(pattern), value)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
