// Package introspection discovers relational schema metadata from a live
// database. It extracts tables, columns, unique keys and foreign keys through
// a per-driver Dialect, and converts the result into entity descriptors for
// annotation mapping.
package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sqlmodel-graphql/internal/model"
)

// Column represents a database column
type Column struct {
	Name string
	// DataType is the type as reported by the database, with size specifiers
	// when available (e.g. "varchar(255)", "decimal(10,2)").
	DataType     string
	IsNullable   bool
	IsPrimaryKey bool
	Comment      string
	// OverrideType is an explicit column type tag set through configuration.
	OverrideType model.ColumnType
}

// ForeignKey represents one column of a foreign key constraint
type ForeignKey struct {
	ColumnName       string // e.g., "author_id"
	ReferencedTable  string // e.g., "authors"
	ReferencedColumn string // e.g., "id"
	ConstraintName   string // e.g., "books_ibfk_1"
	OrdinalPosition  int    // Column position within the FK constraint
}

// UniqueKey is a primary key or unique index with ordered columns.
type UniqueKey struct {
	Name    string
	Primary bool
	Columns []string
}

// Relationship represents either direction of a FK relationship
type Relationship struct {
	Direction model.Direction
	// LocalColumns/RemoteColumns are ordered positional mappings between local and remote keys.
	LocalColumns  []string
	RemoteTable   string
	RemoteColumns []string
	// JunctionTable is set for many-to-many relationships through a hidden junction.
	JunctionTable string
	// Nullable marks single-reference relationships that may be absent.
	Nullable  bool
	FieldName string
}

// Table represents a database table
type Table struct {
	Name          string
	IsView        bool
	Comment       string
	Columns       []Column
	ForeignKeys   []ForeignKey
	UniqueKeys    []UniqueKey
	Relationships []Relationship
}

// Schema represents the introspected database schema
type Schema struct {
	Name   string
	Driver string
	Tables []Table
}

// Queryer provides query access for schema introspection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Introspect reads tables, columns, keys and foreign keys for schemaName
// using the given dialect. Views are included without keys.
func Introspect(ctx context.Context, db Queryer, dialect Dialect, schemaName string) (*Schema, error) {
	if schemaName == "" {
		schemaName = dialect.DefaultSchema()
	}
	ctx, span := startSpan(ctx, "introspection.build_schema",
		attribute.String("db.system", dialect.Name()),
		attribute.String("db.name", schemaName),
	)
	defer span.End()

	schema := &Schema{
		Name:   schemaName,
		Driver: dialect.Name(),
		Tables: []Table{},
	}

	tables, err := getTables(ctx, db, dialect, schemaName)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	for _, info := range tables {
		columns, err := getColumns(ctx, db, dialect, schemaName, info.Name)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get columns for %s: %w", info.Name, err)
		}

		var foreignKeys []ForeignKey
		var uniqueKeys []UniqueKey
		if !info.IsView {
			uniqueKeys, err = getUniqueKeys(ctx, db, dialect, schemaName, info.Name)
			if err != nil {
				recordSpanError(span, err)
				return nil, fmt.Errorf("failed to get unique keys for table %s: %w", info.Name, err)
			}

			foreignKeys, err = getForeignKeys(ctx, db, dialect, schemaName, info.Name)
			if err != nil {
				recordSpanError(span, err)
				return nil, fmt.Errorf("failed to get foreign keys for table %s: %w", info.Name, err)
			}
		}

		markPrimaryKeyColumns(columns, uniqueKeys)

		schema.Tables = append(schema.Tables, Table{
			Name:        info.Name,
			IsView:      info.IsView,
			Comment:     info.Comment,
			Columns:     columns,
			ForeignKeys: foreignKeys,
			UniqueKeys:  uniqueKeys,
		})
	}

	resolveImplicitReferences(schema)
	span.SetAttributes(attribute.Int("introspection.tables", len(schema.Tables)))
	return schema, nil
}

// Table returns the named table, or nil.
func (s *Schema) Table(name string) *Table {
	if s == nil {
		return nil
	}
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

type tableInfo struct {
	Name    string
	IsView  bool
	Comment string
}

func getTables(ctx context.Context, db Queryer, dialect Dialect, schemaName string) ([]tableInfo, error) {
	ctx, span := startSpan(ctx, "introspection.get_tables",
		attribute.String("db.name", schemaName),
	)
	defer span.End()

	query, args, err := dialect.TablesQuery(schemaName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var tables []tableInfo
	for rows.Next() {
		var tableName string
		var tableType string
		var tableComment sql.NullString
		if err := rows.Scan(&tableName, &tableType, &tableComment); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		comment := ""
		if tableComment.Valid {
			comment = strings.TrimSpace(tableComment.String)
		}
		tables = append(tables, tableInfo{
			Name:    tableName,
			IsView:  strings.EqualFold(tableType, "VIEW"),
			Comment: comment,
		})
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return tables, nil
}

func getColumns(ctx context.Context, db Queryer, dialect Dialect, schemaName, tableName string) ([]Column, error) {
	ctx, span := startSpan(ctx, "introspection.get_columns",
		attribute.String("db.name", schemaName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query, args, err := dialect.ColumnsQuery(schemaName, tableName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var columns []Column
	for rows.Next() {
		var col Column
		var isNullable string
		var columnComment sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &isNullable, &columnComment); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		if columnComment.Valid {
			col.Comment = strings.TrimSpace(columnComment.String)
		}
		col.IsNullable = strings.EqualFold(isNullable, "YES")
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return columns, nil
}

func getUniqueKeys(ctx context.Context, db Queryer, dialect Dialect, schemaName, tableName string) ([]UniqueKey, error) {
	ctx, span := startSpan(ctx, "introspection.get_unique_keys",
		attribute.String("db.name", schemaName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query, args, err := dialect.UniqueKeysQuery(schemaName, tableName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	// Rows arrive ordered by key name then column position.
	var keys []UniqueKey
	index := make(map[string]int)
	for rows.Next() {
		var name, column string
		var primary bool
		var position int
		if err := rows.Scan(&name, &column, &primary, &position); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		i, ok := index[name]
		if !ok {
			i = len(keys)
			index[name] = i
			keys = append(keys, UniqueKey{Name: name, Primary: primary})
		}
		keys[i].Columns = append(keys[i].Columns, column)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return keys, nil
}

func getForeignKeys(ctx context.Context, db Queryer, dialect Dialect, schemaName, tableName string) ([]ForeignKey, error) {
	ctx, span := startSpan(ctx, "introspection.get_foreign_keys",
		attribute.String("db.name", schemaName),
		attribute.String("db.table", tableName),
	)
	defer span.End()

	query, args, err := dialect.ForeignKeysQuery(schemaName, tableName)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		var referencedColumn sql.NullString
		if err := rows.Scan(&fk.ConstraintName, &fk.ColumnName, &fk.ReferencedTable, &referencedColumn, &fk.OrdinalPosition); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		fk.ReferencedColumn = referencedColumn.String
		fks = append(fks, fk)
	}

	if err := rows.Err(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return fks, nil
}

func markPrimaryKeyColumns(columns []Column, keys []UniqueKey) {
	for _, key := range keys {
		if !key.Primary {
			continue
		}
		for i := range columns {
			for _, name := range key.Columns {
				if columns[i].Name == name {
					columns[i].IsPrimaryKey = true
					// Primary key columns are never null even where the
					// catalog reports them as nullable (SQLite rowid aliases).
					columns[i].IsNullable = false
				}
			}
		}
	}
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("sqlmodel-graphql/introspection")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
