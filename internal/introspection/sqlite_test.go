package introspection

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"sqlmodel-graphql/internal/annotation"
	"sqlmodel-graphql/internal/naming"
)

const librarySchema = `
CREATE TABLE authors (
	id INTEGER PRIMARY KEY,
	name TEXT
);
CREATE TABLE books (
	id INTEGER PRIMARY KEY,
	title VARCHAR(200) NOT NULL,
	author_id INTEGER NOT NULL REFERENCES authors(id)
);
CREATE TABLE covers (
	id INTEGER PRIMARY KEY,
	book_id INTEGER NOT NULL UNIQUE REFERENCES books,
	image BLOB
);
CREATE VIEW titles AS SELECT title FROM books;
`

func openSQLite(t *testing.T, name string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(librarySchema)
	require.NoError(t, err)
	return db
}

func TestIntrospect_SQLite(t *testing.T) {
	db := openSQLite(t, "introspect")

	schema, err := Introspect(context.Background(), db, SQLite{}, "")
	require.NoError(t, err)
	assert.Equal(t, "main", schema.Name)
	require.Len(t, schema.Tables, 4)

	authors := schema.Table("authors")
	require.NotNil(t, authors)
	assert.Equal(t, []string{"id"}, PrimaryKeyColumns(*authors))
	assert.False(t, authors.Columns[0].IsNullable)
	assert.True(t, authors.Columns[1].IsNullable)

	books := schema.Table("books")
	require.NotNil(t, books)
	require.Len(t, books.ForeignKeys, 1)
	assert.Equal(t, "authors", books.ForeignKeys[0].ReferencedTable)
	assert.Equal(t, "id", books.ForeignKeys[0].ReferencedColumn)

	covers := schema.Table("covers")
	require.NotNil(t, covers)
	require.Len(t, covers.ForeignKeys, 1)
	assert.Equal(t, "id", covers.ForeignKeys[0].ReferencedColumn)
	assert.True(t, HasUniqueKey(*covers, []string{"book_id"}))

	titles := schema.Table("titles")
	require.NotNil(t, titles)
	assert.True(t, titles.IsView)
}

func TestSQLite_EndToEndAnnotations(t *testing.T) {
	db := openSQLite(t, "annotations")

	schema, err := Introspect(context.Background(), db, SQLite{}, "")
	require.NoError(t, err)

	entities, err := schema.Entities(context.Background(), naming.Default(), EntityOptions{Suffix: "Model"})
	require.NoError(t, err)
	require.Len(t, entities, 4)

	got := make(map[string]map[string]string, len(entities))
	for _, e := range entities {
		fields, err := annotation.BuildAnnotations(e)
		require.NoError(t, err, e.Name)
		got[e.Name] = fields.AsStrings()
	}

	assert.Equal(t, map[string]string{
		"id":    "Int!",
		"name":  "String",
		"books": "[Book!]!",
	}, got["AuthorModel"])
	assert.Equal(t, map[string]string{
		"id":        "Int!",
		"title":     "String!",
		"author_id": "Int!",
		"author":    "Author!",
		"cover":     "Cover",
	}, got["BookModel"])
	assert.Equal(t, map[string]string{
		"id":      "Int!",
		"book_id": "Int!",
		"image":   "Bytes",
		"book":    "Book!",
	}, got["CoverModel"])
	assert.Equal(t, map[string]string{
		"title": "String",
	}, got["TitleModel"])
}

func TestSQLite_ReservedColumnName(t *testing.T) {
	db, err := sql.Open("sqlite", "file:reserved?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, __meta TEXT, meta_ TEXT)`)
	require.NoError(t, err)

	schema, err := Introspect(context.Background(), db, SQLite{}, "")
	require.NoError(t, err)
	entities, err := schema.Entities(context.Background(), naming.Default(), EntityOptions{Suffix: "Model"})
	require.NoError(t, err)
	require.Len(t, entities, 1)

	fields, err := annotation.BuildAnnotations(entities[0])
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"id":     "Int!",
		"meta_":  "String",
		"meta_2": "String",
	}, fields.AsStrings())
}
