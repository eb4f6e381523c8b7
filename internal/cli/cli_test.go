package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"sqlmodel-graphql/internal/config"
	"sqlmodel-graphql/internal/logging"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(BuildInfo{Version: "1.2.3", Commit: "abc"})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--observability.logging.level=error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sqlmodel-graphql 1.2.3 (abc)\n", out)
}

func TestAnnotate_Text(t *testing.T) {
	out, err := runCommand(t, "annotate", "--definitions.path", "testdata/library.yaml")
	require.NoError(t, err)
	assert.Equal(t, `Author (AuthorModel)
  id           Int!
  name         String
  books        [Book!]!
  displayName  String!

Book (BookModel)
  id            Int!
  title         String!
  published_on  Date
  author        Author!
`, out)
}

func TestAnnotate_JSON(t *testing.T) {
	out, err := runCommand(t, "annotate", "--definitions.path", "testdata/library.yaml", "--output.format", "json")
	require.NoError(t, err)

	var decls []jsonDeclaration
	require.NoError(t, json.Unmarshal([]byte(out), &decls))
	require.Len(t, decls, 2)
	assert.Equal(t, "Book", decls[1].Type)
	assert.Equal(t, "BookModel", decls[1].Entity)
	assert.Equal(t, jsonField{Name: "author", Annotation: "Author!"}, decls[1].Fields[3])
}

func TestSDL_CamelCase(t *testing.T) {
	out, err := runCommand(t, "sdl", "--definitions.path", "testdata/library.yaml", "--output.camel_case")
	require.NoError(t, err)
	assert.Contains(t, out, "scalar Date")
	assert.Contains(t, out, "type Book {")
	assert.Contains(t, out, "publishedOn: Date")
	assert.Contains(t, out, "books: [Book!]!")
}

func TestAnnotate_SQLiteDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE books (
	id INTEGER PRIMARY KEY,
	title VARCHAR(200) NOT NULL,
	author_id INTEGER NOT NULL REFERENCES authors(id)
);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := runCommand(t, "annotate",
		"--source", "database",
		"--database.driver", "sqlite",
		"--database.path", path,
		"--output.format", "json",
	)
	require.NoError(t, err)

	var decls []jsonDeclaration
	require.NoError(t, json.Unmarshal([]byte(out), &decls))
	require.Len(t, decls, 2)
	assert.Equal(t, "Author", decls[0].Type)
	assert.Equal(t, "AuthorModel", decls[0].Entity)
	assert.Equal(t, "Book", decls[1].Type)
}

func TestAnnotate_InvalidConfig(t *testing.T) {
	_, err := runCommand(t, "annotate", "--source", "definitions", "--output.format", "yaml", "--definitions.path", "testdata/library.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
	assert.Contains(t, err.Error(), "output.format")
}

func TestAnnotate_MissingDefinitions(t *testing.T) {
	_, err := runCommand(t, "annotate", "--definitions.path", "testdata/missing.yaml")
	require.Error(t, err)
}

func TestServe_StopsOnSignal(t *testing.T) {
	state := &runState{
		info: BuildInfo{Version: "test"},
		cfg: &config.Config{
			Source:      config.SourceDefinitions,
			Definitions: config.DefinitionsConfig{Path: "testdata/library.yaml"},
			Mapping:     config.MappingConfig{ModelSuffix: "Model"},
			Server: config.ServerConfig{
				Port:                     0,
				SchemaRefreshMinInterval: time.Minute,
				SchemaRefreshMaxInterval: time.Minute,
				ShutdownTimeout:          2 * time.Second,
			},
		},
		logger: logging.NewLogger(logging.Config{Level: "error", Format: "text"}),
	}

	stop := make(chan os.Signal, 1)
	stop <- syscall.SIGTERM

	require.NoError(t, state.serve(context.Background(), stop))
}
