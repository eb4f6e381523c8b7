package dbconn

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	_ "modernc.org/sqlite"

	"sqlmodel-graphql/internal/config"
	"sqlmodel-graphql/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "error", Format: "text"})
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	seed, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = seed.Exec(`CREATE TABLE author (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	conn, err := Open(context.Background(), config.DatabaseConfig{
		Driver: "sqlite3",
		Path:   path,
		Pool:   config.PoolConfig{MaxOpen: 1, MaxIdle: 1},
	}, config.ObservabilityConfig{}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	assert.Equal(t, config.DriverSQLite, conn.Driver)
	var count int
	require.NoError(t, conn.DB.QueryRow(`SELECT count(*) FROM author`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestOpen_Instrumented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	conn, err := Open(context.Background(), config.DatabaseConfig{
		Driver:           "sqlite",
		ConnectionString: "file:" + path,
	}, config.ObservabilityConfig{MetricsEnabled: true, TracingEnabled: true}, testLogger())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"}, config.ObservabilityConfig{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")

	_, err = Open(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, config.ObservabilityConfig{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.path is required")
}

func TestWaitForDatabase_RetriesUntilReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing()

	err = WaitForDatabase(context.Background(), db, time.Second, time.Millisecond, testLogger())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForDatabase_ZeroTimeoutPingsOnce(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	err = WaitForDatabase(context.Background(), db, 0, time.Millisecond, testLogger())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitForDatabase_GivesUpAfterTimeout(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 10; i++ {
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	}

	err = WaitForDatabase(context.Background(), db, 5*time.Millisecond, 2*time.Millisecond, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not available after")
}

func TestWaitForDatabase_ContextCanceled(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err = WaitForDatabase(ctx, db, time.Minute, time.Minute, testLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDBSystem(t *testing.T) {
	assert.Equal(t, semconv.DBSystemMySQL, DBSystem(config.DriverMySQL))
	assert.Equal(t, semconv.DBSystemPostgreSQL, DBSystem(config.DriverPostgres))
	assert.Equal(t, semconv.DBSystemSqlite, DBSystem(config.DriverSQLite))
}
