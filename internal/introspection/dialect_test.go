package introspection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver   string
		expected string
		wantErr  bool
	}{
		{"mysql", "mysql", false},
		{"TiDB", "mysql", false},
		{"postgres", "postgres", false},
		{"postgresql", "postgres", false},
		{"sqlite", "sqlite", false},
		{"sqlite3", "sqlite", false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := DialectFor(tt.driver)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Name())
		})
	}
}

func TestMySQLQueries(t *testing.T) {
	d := MySQL{}

	query, args, err := d.TablesQuery("app")
	require.NoError(t, err)
	assert.Contains(t, query, "FROM INFORMATION_SCHEMA.TABLES")
	assert.Contains(t, query, "TABLE_SCHEMA = ?")
	assert.Contains(t, query, "TABLE_TYPE IN (?,?)")
	assert.Contains(t, query, "ORDER BY TABLE_NAME")
	assert.Equal(t, []any{"app", "BASE TABLE", "VIEW"}, args)

	query, args, err = d.ColumnsQuery("app", "books")
	require.NoError(t, err)
	assert.Contains(t, query, "SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_COMMENT")
	assert.Contains(t, query, "ORDER BY ORDINAL_POSITION")
	assert.Equal(t, []any{"app", "books"}, args)

	query, args, err = d.UniqueKeysQuery("app", "books")
	require.NoError(t, err)
	assert.Contains(t, query, "FROM INFORMATION_SCHEMA.STATISTICS")
	assert.Contains(t, query, "NON_UNIQUE = ?")
	assert.Equal(t, []any{"app", "books", 0}, args)

	query, args, err = d.ForeignKeysQuery("app", "books")
	require.NoError(t, err)
	assert.Contains(t, query, "REFERENCED_TABLE_NAME IS NOT NULL")
	assert.Contains(t, query, "ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION")
	assert.Equal(t, []any{"app", "books"}, args)
}

func TestPostgresQueries(t *testing.T) {
	d := Postgres{}
	assert.Equal(t, "public", d.DefaultSchema())

	query, args, err := d.TablesQuery("public")
	require.NoError(t, err)
	assert.Contains(t, query, "FROM information_schema.tables")
	assert.Contains(t, query, "table_schema = $1")
	assert.Contains(t, query, "table_type IN ($2,$3)")
	assert.Equal(t, []any{"public", "BASE TABLE", "VIEW"}, args)

	query, args, err = d.ForeignKeysQuery("public", "books")
	require.NoError(t, err)
	assert.Contains(t, query, "JOIN information_schema.referential_constraints rc")
	assert.Contains(t, query, "kcu.table_schema = $1")
	assert.Contains(t, query, "kcu.table_name = $2")
	assert.Equal(t, []any{"public", "books"}, args)

	query, args, err = d.UniqueKeysQuery("public", "books")
	require.NoError(t, err)
	assert.Contains(t, query, "tc.constraint_type IN ($3,$4)")
	assert.Equal(t, []any{"public", "books", "PRIMARY KEY", "UNIQUE"}, args)
}

func TestSQLiteQueries(t *testing.T) {
	d := SQLite{}
	assert.Equal(t, "main", d.DefaultSchema())

	query, args, err := d.TablesQuery("ignored")
	require.NoError(t, err)
	assert.Contains(t, query, "FROM sqlite_master")
	assert.Contains(t, query, "name NOT LIKE ?")
	assert.Equal(t, []any{"table", "view", "sqlite_%"}, args)

	query, args, err = d.UniqueKeysQuery("main", "books")
	require.NoError(t, err)
	assert.Contains(t, query, "pragma_index_list(?)")
	assert.Equal(t, []any{"books", "books"}, args)

	_, args, err = d.ForeignKeysQuery("main", "books")
	require.NoError(t, err)
	assert.Equal(t, []any{"books"}, args)
}
