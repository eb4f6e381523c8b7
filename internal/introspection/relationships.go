package introspection

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"sqlmodel-graphql/internal/model"
	"sqlmodel-graphql/internal/naming"
)

// JunctionMode selects how pure junction tables are represented.
type JunctionMode string

const (
	// JunctionsAsEntities keeps junction tables as ordinary entities linked
	// to both sides by many-to-one relationships.
	JunctionsAsEntities JunctionMode = "entity"
	// JunctionsHidden drops junction tables and the links through them.
	JunctionsHidden JunctionMode = "hide"
	// JunctionsManyToMany drops junction tables and links both sides with
	// many-to-many relationships.
	JunctionsManyToMany JunctionMode = "many_to_many"
)

// Valid reports whether m is a known mode. The empty mode means entity.
func (m JunctionMode) Valid() bool {
	switch m {
	case "", JunctionsAsEntities, JunctionsHidden, JunctionsManyToMany:
		return true
	default:
		return false
	}
}

// JunctionConfig describes one pure junction table by its two foreign keys.
type JunctionConfig struct {
	Table   string
	LeftFK  ForeignKeyConstraint
	RightFK ForeignKeyConstraint
}

// JunctionMap maps junction table names to their configuration.
type JunctionMap map[string]JunctionConfig

// RebuildRelationships clears and rebuilds relationship metadata for a schema.
func RebuildRelationships(ctx context.Context, schema *Schema) error {
	return RebuildRelationshipsWithJunctions(ctx, schema, naming.Default(), nil, JunctionsAsEntities)
}

// RebuildRelationshipsWithJunctions clears and rebuilds relationship metadata with junction awareness.
func RebuildRelationshipsWithJunctions(ctx context.Context, schema *Schema, namer *naming.Namer, junctions JunctionMap, mode JunctionMode) error {
	if schema == nil {
		return nil
	}
	for i := range schema.Tables {
		schema.Tables[i].Relationships = nil
	}
	return buildRelationships(ctx, schema, namer, junctions, mode)
}

// hiddenTables returns the junction tables that do not become entities.
func hiddenTables(junctions JunctionMap, mode JunctionMode) map[string]bool {
	hidden := make(map[string]bool)
	if mode == "" || mode == JunctionsAsEntities {
		return hidden
	}
	for name := range junctions {
		hidden[name] = true
	}
	return hidden
}

// buildRelationships creates bidirectional relationship metadata from foreign keys.
// A foreign key whose columns form a unique key yields one-to-one relationships;
// any other yields many-to-one on the referencing side and one-to-many on the
// referenced side.
func buildRelationships(ctx context.Context, schema *Schema, namer *naming.Namer, junctions JunctionMap, mode JunctionMode) error {
	_, span := startSpan(ctx, "introspection.build_relationships",
		attribute.String("junction_mode", string(mode)),
	)
	defer span.End()

	hidden := hiddenTables(junctions, mode)
	exposed := make(map[string]bool, len(schema.Tables))
	for _, table := range schema.Tables {
		if !hidden[table.Name] {
			exposed[table.Name] = true
		}
	}

	// Emit each skip warning once per build.
	warned := make(map[string]struct{})
	warnSkip := func(kind, tableName, constraintName string, localCols []string, remoteTable string, reason string) {
		key := strings.Join([]string{kind, tableName, constraintName, strings.Join(localCols, ","), remoteTable, reason}, "|")
		if _, seen := warned[key]; seen {
			return
		}
		warned[key] = struct{}{}
		slog.Default().Warn("skipping relationship mapping",
			"kind", kind,
			"table", tableName,
			"constraint", constraintName,
			"local_columns", localCols,
			"remote_table", remoteTable,
			"reason", reason,
		)
	}

	// Count FKs per (source_table, target_table) pair to determine naming strategy.
	// When multiple FK constraints from the same table point to the same target,
	// FK column names disambiguate the reverse field names.
	fkCount := make(map[string]map[string]int)
	for _, table := range schema.Tables {
		for _, fk := range ForeignKeyConstraints(table) {
			if fkCount[table.Name] == nil {
				fkCount[table.Name] = make(map[string]int)
			}
			fkCount[table.Name][fk.ReferencedTable]++
		}
	}

	// First pass: forward relationships from the referencing side.
	for i := range schema.Tables {
		table := &schema.Tables[i]
		if table.IsView || hidden[table.Name] {
			continue
		}

		for _, fk := range ForeignKeyConstraints(*table) {
			if !fk.Valid() {
				warnSkip("many_to_one", table.Name, fk.ConstraintName, fk.ColumnNames, fk.ReferencedTable, "invalid_foreign_key_mapping")
				continue
			}
			if !exposed[fk.ReferencedTable] {
				warnSkip("many_to_one", table.Name, fk.ConstraintName, fk.ColumnNames, fk.ReferencedTable, "referenced_table_not_exposed")
				continue
			}
			direction := model.ManyToOne
			if HasUniqueKey(*table, fk.ColumnNames) {
				direction = model.OneToOne
			}
			table.Relationships = append(table.Relationships, Relationship{
				Direction:     direction,
				LocalColumns:  append([]string(nil), fk.ColumnNames...),
				RemoteTable:   fk.ReferencedTable,
				RemoteColumns: append([]string(nil), fk.ReferencedColumns...),
				Nullable:      fk.Nullable(*table),
				FieldName:     namer.ManyToOneFieldName(fk.ColumnNames[0]),
			})
		}
	}

	// Second pass: reverse relationships on the referenced side.
	for i := range schema.Tables {
		table := &schema.Tables[i]
		if table.IsView || hidden[table.Name] {
			continue
		}

		for j := range schema.Tables {
			otherTable := &schema.Tables[j]
			if otherTable.IsView || hidden[otherTable.Name] {
				continue
			}

			for _, fk := range ForeignKeyConstraints(*otherTable) {
				if fk.ReferencedTable != table.Name {
					continue
				}
				if !fk.Valid() {
					warnSkip("one_to_many", otherTable.Name, fk.ConstraintName, fk.ColumnNames, table.Name, "invalid_foreign_key_mapping")
					continue
				}
				isOnlyFK := fkCount[otherTable.Name][table.Name] == 1
				rel := Relationship{
					Direction:     model.OneToMany,
					LocalColumns:  append([]string(nil), fk.ReferencedColumns...),
					RemoteTable:   otherTable.Name,
					RemoteColumns: append([]string(nil), fk.ColumnNames...),
					FieldName:     namer.OneToManyFieldName(otherTable.Name, fk.ColumnNames[0], isOnlyFK),
				}
				if HasUniqueKey(*otherTable, fk.ColumnNames) {
					rel.Direction = model.OneToOne
					rel.Nullable = true
					rel.FieldName = namer.OneToOneFieldName(otherTable.Name, fk.ColumnNames[0], isOnlyFK)
				}
				table.Relationships = append(table.Relationships, rel)
			}
		}
	}

	// Third pass: links through hidden junction tables.
	for _, name := range slices.Sorted(maps.Keys(junctions)) {
		jc := junctions[name]
		if !hidden[jc.Table] {
			continue
		}
		if mode == JunctionsHidden {
			slog.Default().Warn("junction table hidden, many-to-many link omitted",
				slog.String("table", jc.Table),
				slog.String("left", jc.LeftFK.ReferencedTable),
				slog.String("right", jc.RightFK.ReferencedTable),
			)
			continue
		}
		left := schema.Table(jc.LeftFK.ReferencedTable)
		right := schema.Table(jc.RightFK.ReferencedTable)
		if left == nil || right == nil || !exposed[left.Name] || !exposed[right.Name] {
			warnSkip("many_to_many", jc.Table, jc.LeftFK.ConstraintName, jc.LeftFK.ColumnNames, jc.RightFK.ReferencedTable, "endpoint_not_exposed")
			continue
		}
		left.Relationships = append(left.Relationships, Relationship{
			Direction:     model.ManyToMany,
			LocalColumns:  append([]string(nil), jc.LeftFK.ReferencedColumns...),
			RemoteTable:   right.Name,
			RemoteColumns: append([]string(nil), jc.RightFK.ReferencedColumns...),
			JunctionTable: jc.Table,
			FieldName:     namer.ManyToManyFieldName(right.Name),
		})
		right.Relationships = append(right.Relationships, Relationship{
			Direction:     model.ManyToMany,
			LocalColumns:  append([]string(nil), jc.RightFK.ReferencedColumns...),
			RemoteTable:   left.Name,
			RemoteColumns: append([]string(nil), jc.LeftFK.ReferencedColumns...),
			JunctionTable: jc.Table,
			FieldName:     namer.ManyToManyFieldName(left.Name),
		})
	}

	return nil
}
