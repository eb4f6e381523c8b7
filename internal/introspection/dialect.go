package introspection

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect builds the catalog queries for one database driver. Every query
// returns rows in a driver-independent shape:
//
//	tables:       name, type ("BASE TABLE" or "VIEW"), comment
//	columns:      name, data type, is_nullable ("YES"/"NO"), comment
//	unique keys:  key name, column name, is_primary, position
//	foreign keys: constraint name, column, referenced table, referenced column, position
type Dialect interface {
	Name() string
	DefaultSchema() string
	TablesQuery(schema string) (string, []any, error)
	ColumnsQuery(schema, table string) (string, []any, error)
	UniqueKeysQuery(schema, table string) (string, []any, error)
	ForeignKeysQuery(schema, table string) (string, []any, error)
}

// DialectFor returns the dialect for a driver name as used in configuration.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "tidb":
		return MySQL{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// MySQL reads INFORMATION_SCHEMA as exposed by MySQL and TiDB.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) DefaultSchema() string { return "" }

func (MySQL) TablesQuery(schema string) (string, []any, error) {
	return sq.Select("TABLE_NAME", "TABLE_TYPE", "TABLE_COMMENT").
		From("INFORMATION_SCHEMA.TABLES").
		Where(sq.Eq{"TABLE_SCHEMA": schema}).
		Where(sq.Eq{"TABLE_TYPE": []string{"BASE TABLE", "VIEW"}}).
		OrderBy("TABLE_NAME").
		PlaceholderFormat(sq.Question).
		ToSql()
}

func (MySQL) ColumnsQuery(schema, table string) (string, []any, error) {
	return sq.Select("COLUMN_NAME", "COLUMN_TYPE", "IS_NULLABLE", "COLUMN_COMMENT").
		From("INFORMATION_SCHEMA.COLUMNS").
		Where(sq.Eq{"TABLE_SCHEMA": schema}).
		Where(sq.Eq{"TABLE_NAME": table}).
		OrderBy("ORDINAL_POSITION").
		PlaceholderFormat(sq.Question).
		ToSql()
}

func (MySQL) UniqueKeysQuery(schema, table string) (string, []any, error) {
	return sq.Select("INDEX_NAME", "COLUMN_NAME", "INDEX_NAME = 'PRIMARY'", "SEQ_IN_INDEX").
		From("INFORMATION_SCHEMA.STATISTICS").
		Where(sq.Eq{"TABLE_SCHEMA": schema}).
		Where(sq.Eq{"TABLE_NAME": table}).
		Where(sq.Eq{"NON_UNIQUE": 0}).
		OrderBy("INDEX_NAME", "SEQ_IN_INDEX").
		PlaceholderFormat(sq.Question).
		ToSql()
}

func (MySQL) ForeignKeysQuery(schema, table string) (string, []any, error) {
	return sq.Select("CONSTRAINT_NAME", "COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "ORDINAL_POSITION").
		From("INFORMATION_SCHEMA.KEY_COLUMN_USAGE").
		Where(sq.Eq{"TABLE_SCHEMA": schema}).
		Where(sq.Eq{"TABLE_NAME": table}).
		Where(sq.NotEq{"REFERENCED_TABLE_NAME": nil}).
		OrderBy("CONSTRAINT_NAME", "ORDINAL_POSITION").
		PlaceholderFormat(sq.Question).
		ToSql()
}

// Postgres reads information_schema and pg_catalog comments.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) DefaultSchema() string { return "public" }

func (Postgres) TablesQuery(schema string) (string, []any, error) {
	return sq.Select(
		"table_name",
		"table_type",
		"obj_description((quote_ident(table_schema) || '.' || quote_ident(table_name))::regclass, 'pg_class')",
	).
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": schema}).
		Where(sq.Eq{"table_type": []string{"BASE TABLE", "VIEW"}}).
		OrderBy("table_name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (Postgres) ColumnsQuery(schema, table string) (string, []any, error) {
	return sq.Select(
		"column_name",
		"CASE WHEN character_maximum_length IS NOT NULL THEN data_type || '(' || character_maximum_length || ')' ELSE data_type END",
		"is_nullable",
		"col_description((quote_ident(table_schema) || '.' || quote_ident(table_name))::regclass, ordinal_position::int)",
	).
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": schema}).
		Where(sq.Eq{"table_name": table}).
		OrderBy("ordinal_position").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (Postgres) UniqueKeysQuery(schema, table string) (string, []any, error) {
	return sq.Select("tc.constraint_name", "kcu.column_name", "tc.constraint_type = 'PRIMARY KEY'", "kcu.ordinal_position").
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON kcu.constraint_schema = tc.constraint_schema AND kcu.constraint_name = tc.constraint_name AND kcu.table_name = tc.table_name").
		Where(sq.Eq{"tc.table_schema": schema}).
		Where(sq.Eq{"tc.table_name": table}).
		Where(sq.Eq{"tc.constraint_type": []string{"PRIMARY KEY", "UNIQUE"}}).
		OrderBy("tc.constraint_name", "kcu.ordinal_position").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (Postgres) ForeignKeysQuery(schema, table string) (string, []any, error) {
	return sq.Select("kcu.constraint_name", "kcu.column_name", "ccu.table_name", "ccu.column_name", "kcu.ordinal_position").
		From("information_schema.key_column_usage kcu").
		Join("information_schema.referential_constraints rc ON rc.constraint_schema = kcu.constraint_schema AND rc.constraint_name = kcu.constraint_name").
		Join("information_schema.key_column_usage ccu ON ccu.constraint_schema = rc.unique_constraint_schema AND ccu.constraint_name = rc.unique_constraint_name AND ccu.ordinal_position = kcu.position_in_unique_constraint").
		Where(sq.Eq{"kcu.table_schema": schema}).
		Where(sq.Eq{"kcu.table_name": table}).
		OrderBy("kcu.constraint_name", "kcu.ordinal_position").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// SQLite reads sqlite_master and the table-valued pragma functions. The
// schema name is ignored; SQLite databases have a single "main" schema.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) DefaultSchema() string { return "main" }

func (SQLite) TablesQuery(string) (string, []any, error) {
	return sq.Select("name", "CASE type WHEN 'view' THEN 'VIEW' ELSE 'BASE TABLE' END", "NULL").
		From("sqlite_master").
		Where(sq.Eq{"type": []string{"table", "view"}}).
		Where(sq.NotLike{"name": "sqlite_%"}).
		OrderBy("name").
		ToSql()
}

const sqliteColumnsQuery = `
	SELECT name, type, CASE WHEN "notnull" = 1 OR pk > 0 THEN 'NO' ELSE 'YES' END, NULL
	FROM pragma_table_info(?)
	ORDER BY cid
`

func (SQLite) ColumnsQuery(_, table string) (string, []any, error) {
	return sqliteColumnsQuery, []any{table}, nil
}

const sqliteUniqueKeysQuery = `
	SELECT 'PRIMARY', name, 1, pk
	FROM pragma_table_info(?)
	WHERE pk > 0
	UNION ALL
	SELECT il.name, ii.name, 0, ii.seqno + 1
	FROM pragma_index_list(?) AS il
	JOIN pragma_index_info(il.name) AS ii
	WHERE il."unique" = 1 AND il.origin != 'pk'
	ORDER BY 1, 4
`

func (SQLite) UniqueKeysQuery(_, table string) (string, []any, error) {
	return sqliteUniqueKeysQuery, []any{table, table}, nil
}

const sqliteForeignKeysQuery = `
	SELECT 'fk_' || id, "from", "table", "to", seq + 1
	FROM pragma_foreign_key_list(?)
	ORDER BY id, seq
`

func (SQLite) ForeignKeysQuery(_, table string) (string, []any, error) {
	return sqliteForeignKeysQuery, []any{table}, nil
}
