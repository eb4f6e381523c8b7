package serverapp

import (
	"context"
	"fmt"
	"log/slog"

	"sqlmodel-graphql/internal/annotation"
	"sqlmodel-graphql/internal/dbconn"
	"sqlmodel-graphql/internal/introspection"
	"sqlmodel-graphql/internal/pipeline"
)

// Init initializes all runtime resources. It is idempotent.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	if a.loggerProvider != nil {
		cleanup.push("logger provider", func(shutdownCtx context.Context) error {
			return a.loggerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	meterProvider, mappingMetrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	if meterProvider != nil {
		cleanup.push("meter provider", func(shutdownCtx context.Context) error {
			return meterProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	if tracerProvider != nil {
		cleanup.push("tracer provider", func(shutdownCtx context.Context) error {
			return tracerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	var conn *dbconn.Conn
	var queryer introspection.Queryer
	if pipeline.RequiresConnection(a.cfg) {
		conn, err = dbconn.Open(ctx, a.cfg.Database, a.cfg.Observability, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		cleanup.push("database", func(_ context.Context) error {
			return conn.Close()
		})
		queryer = conn.DB
	}

	source, err := pipeline.SourceFromConfig(a.cfg, queryer, a.logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to configure entity source: %w", err)
	}
	mapper := annotation.New(a.cfg.Mapping.Annotation(), a.logger.Logger)
	p := pipeline.New(source, mapper, mappingMetrics, a.logger)

	a.logger.Info("building schema", slog.String("source", source.Name()))
	manager, schemaCancel, err := startSchemaManager(ctx, a.cfg, a.logger, p)
	if err != nil {
		return fmt.Errorf("failed to initialize schema refresh manager: %w", err)
	}
	cleanup.push("schema manager", func(shutdownCtx context.Context) error {
		schemaCancel()
		return manager.Wait(shutdownCtx)
	})

	adminHandler, err := buildAdminHandler(a.cfg, a.logger, manager)
	if err != nil {
		return fmt.Errorf("failed to initialize admin handler: %w", err)
	}

	mux := buildRouter(a.cfg, a.logger, healthCheckFor(conn, manager), manager, adminHandler, meterProvider)
	handler := wrapHTTPHandler(a.cfg, a.logger, mux)

	serverAddr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv, err := buildServer(a.cfg, a.logger, handler, serverAddr)
	if err != nil {
		return err
	}
	cleanup.push("HTTP server", func(shutdownCtx context.Context) error {
		return srv.Shutdown(shutdownCtx)
	})

	a.stateMu.Lock()
	a.meterProvider = meterProvider
	a.mappingMetrics = mappingMetrics
	a.tracerProvider = tracerProvider
	a.conn = conn
	a.manager = manager
	a.schemaCancel = schemaCancel
	a.mux = mux
	a.handler = handler
	a.serverAddr = serverAddr
	a.srv = srv
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}
