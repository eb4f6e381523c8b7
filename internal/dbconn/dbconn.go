// Package dbconn opens the database pool used for introspection, with
// optional OpenTelemetry instrumentation and a startup readiness wait.
package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"sqlmodel-graphql/internal/config"
	"sqlmodel-graphql/internal/logging"
)

const maxRetryInterval = 30 * time.Second

// Conn is an open, verified connection pool.
type Conn struct {
	DB     *sql.DB
	Driver string

	statsReg interface{ Unregister() error }
	logger   *logging.Logger
}

// Close unregisters pool metrics and closes the pool.
func (c *Conn) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	if c.statsReg != nil {
		if err := c.statsReg.Unregister(); err != nil && c.logger != nil {
			c.logger.Warn("failed to unregister DB stats metrics", slog.String("error", err.Error()))
		}
	}
	return c.DB.Close()
}

// Open connects using the database and observability settings and waits
// until the database answers a ping.
func Open(ctx context.Context, dbCfg config.DatabaseConfig, obs config.ObservabilityConfig, logger *logging.Logger) (*Conn, error) {
	if logger == nil {
		logger = &logging.Logger{Logger: slog.Default()}
	}

	// verify-ca and verify-full need the TLS config registered before Open.
	if err := dbCfg.RegisterTLS(); err != nil {
		return nil, fmt.Errorf("failed to register database TLS config: %w", err)
	}

	dsn, err := dbCfg.DSN()
	if err != nil {
		return nil, err
	}
	driver := dbCfg.DriverName()

	logger.Info("connecting to database",
		slog.String("driver", driver),
		slog.String("host", dbCfg.Host),
		slog.Int("port", dbCfg.Port),
		slog.String("database", dbCfg.Database),
		slog.String("path", dbCfg.Path),
	)

	conn := &Conn{Driver: driver, logger: logger}
	if obs.MetricsEnabled || obs.TracingEnabled {
		conn.DB, conn.statsReg, err = openInstrumented(driver, dsn, obs, logger)
	} else {
		conn.DB, err = sql.Open(driver, dsn)
	}
	if err != nil {
		return nil, err
	}

	conn.DB.SetMaxOpenConns(dbCfg.Pool.MaxOpen)
	conn.DB.SetMaxIdleConns(dbCfg.Pool.MaxIdle)
	conn.DB.SetConnMaxLifetime(dbCfg.Pool.MaxLifetime)

	if err := WaitForDatabase(ctx, conn.DB, dbCfg.ConnectionTimeout, dbCfg.ConnectionRetryInterval, logger); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("connected to database",
		slog.String("driver", driver),
		slog.Int("pool_max_open", dbCfg.Pool.MaxOpen),
		slog.Int("pool_max_idle", dbCfg.Pool.MaxIdle),
		slog.Duration("pool_max_lifetime", dbCfg.Pool.MaxLifetime),
	)
	return conn, nil
}

func openInstrumented(driver, dsn string, obs config.ObservabilityConfig, logger *logging.Logger) (*sql.DB, interface{ Unregister() error }, error) {
	system := DBSystem(driver)
	opts := []otelsql.Option{
		otelsql.WithAttributes(system),
	}

	if obs.TracingEnabled {
		opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{
			DisableErrSkip: true,
		}))
	}

	commenter := obs.SQLCommenterEnabled && obs.TracingEnabled
	if commenter {
		opts = append(opts, otelsql.WithSQLCommenter(true))
		logger.Info("SQLCommenter enabled - trace context will be injected into SQL queries")
	} else if obs.SQLCommenterEnabled {
		logger.Warn("SQLCommenter requires tracing to be enabled - skipping SQLCommenter")
	}

	db, err := otelsql.Open(driver, dsn, opts...)
	if err != nil {
		return nil, nil, err
	}

	var statsReg interface{ Unregister() error }
	if obs.MetricsEnabled {
		statsReg, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(system))
		if err != nil {
			logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
		}
	}

	logger.Info("database instrumentation enabled",
		slog.Bool("metrics", obs.MetricsEnabled),
		slog.Bool("tracing", obs.TracingEnabled),
		slog.Bool("sqlcommenter", commenter),
	)
	return db, statsReg, nil
}

// DBSystem returns the db.system attribute for a driver name.
func DBSystem(driver string) attribute.KeyValue {
	switch driver {
	case config.DriverPostgres:
		return semconv.DBSystemPostgreSQL
	case config.DriverSQLite:
		return semconv.DBSystemSqlite
	default:
		return semconv.DBSystemMySQL
	}
}

// WaitForDatabase pings db until it answers. A zero timeout pings once.
// Otherwise it retries with exponential backoff, capped at 30s, until the
// timeout elapses or ctx is done.
func WaitForDatabase(ctx context.Context, db *sql.DB, timeout, interval time.Duration, logger *logging.Logger) error {
	if timeout == 0 {
		return db.PingContext(ctx)
	}
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.Now().Add(timeout)
	attempt := 0
	for {
		attempt++
		err := db.PingContext(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("database connection established", slog.Int("attempts", attempt))
			}
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("database not available after %v: %w", timeout, err)
		}

		logger.Warn("database not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", interval),
			slog.String("error", err.Error()),
		)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		interval = min(interval*2, maxRetryInterval)
	}
}
