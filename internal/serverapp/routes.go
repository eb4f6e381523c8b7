package serverapp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"sqlmodel-graphql/internal/config"
	"sqlmodel-graphql/internal/dbconn"
	"sqlmodel-graphql/internal/gqlrequest"
	"sqlmodel-graphql/internal/logging"
	"sqlmodel-graphql/internal/middleware"
	"sqlmodel-graphql/internal/observability"
	"sqlmodel-graphql/internal/pipeline"
	"sqlmodel-graphql/internal/schemarefresh"
)

const (
	graphqlPath      = "/graphql"
	healthPath       = "/health"
	schemaSDLPath    = "/schema.graphql"
	schemaReloadPath = "/admin/reload-schema"
	metricsPath      = "/metrics"

	schemaReloadTimeout = 15 * time.Second
)

type snapshotter interface {
	CurrentSnapshot() *schemarefresh.Snapshot
}

type schemaReloader interface {
	snapshotter
	RefreshNowContext(ctx context.Context) error
}

// schemaServer serves GraphQL requests against the active snapshot.
type schemaServer interface {
	http.Handler
	snapshotter
}

func startSchemaManager(ctx context.Context, cfg *config.Config, logger *logging.Logger, p *pipeline.Pipeline) (*schemarefresh.Manager, context.CancelFunc, error) {
	manager, err := schemarefresh.NewManager(ctx, schemarefresh.Config{
		Pipeline: p,
		Build: schemarefresh.BuildOptions{
			CamelCase: cfg.Output.CamelCase,
			Naming:    cfg.Naming,
			GraphiQL:  cfg.Server.GraphiQLEnabled,
			Logger:    logger.Logger,
		},
		Logger:      logger,
		MinInterval: cfg.Server.SchemaRefreshMinInterval,
		MaxInterval: cfg.Server.SchemaRefreshMaxInterval,
	})
	if err != nil {
		return nil, nil, err
	}

	// The refresh loop outlives Init; it stops through the returned cancel.
	refreshCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	manager.Start(refreshCtx)
	return manager, cancel, nil
}

func buildAdminHandler(cfg *config.Config, logger *logging.Logger, manager schemaReloader) (http.Handler, error) {
	if !cfg.Server.Admin.SchemaReloadEnabled {
		return nil, nil
	}

	authMiddleware, err := middleware.AdminTokenAuthMiddleware(middleware.AdminTokenAuthConfig{
		Token: cfg.Server.Admin.AuthToken,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("admin schema reload enabled", slog.String("path", schemaReloadPath))
	return authMiddleware(schemaReloadHandler(manager)), nil
}

func buildRouter(cfg *config.Config, logger *logging.Logger, check healthCheck, schemas schemaServer, adminHandler http.Handler, meterProvider *observability.MeterProvider) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(graphqlPath, middleware.GraphQLRequestMiddleware(middleware.GraphQLRequestConfig{
		Limits: gqlrequest.Limits{
			MaxDepth:  cfg.Server.GraphQLMaxDepth,
			MaxFields: cfg.Server.GraphQLMaxFields,
		},
		Fingerprint: func() string {
			if snapshot := schemas.CurrentSnapshot(); snapshot != nil {
				return snapshot.Fingerprint
			}
			return ""
		},
	})(schemas))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, graphqlPath, http.StatusFound)
			return
		}
		http.NotFound(w, r)
	})

	mux.HandleFunc(healthPath, healthHandler(check, cfg.Server.HealthCheckTimeout))
	mux.HandleFunc(schemaSDLPath, sdlHandler(schemas))
	if cfg.Server.Admin.SchemaReloadEnabled && adminHandler != nil {
		mux.Handle(schemaReloadPath, adminHandler)
	}

	if cfg.Observability.MetricsEnabled && meterProvider != nil {
		mux.Handle(metricsPath, promhttp.Handler())
		logger.Info("metrics endpoint enabled", slog.String("path", metricsPath))
	}

	return mux
}

// wrapHTTPHandler applies, from the inside out, request logging, OTel HTTP
// instrumentation, CORS and rate limiting.
func wrapHTTPHandler(cfg *config.Config, logger *logging.Logger, handler http.Handler) http.Handler {
	handler = middleware.LoggingMiddleware(logger)(handler)

	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return httpRootSpanName(r)
			}),
		)
		logger.Debug("HTTP instrumentation enabled")
	}

	handler = middleware.CORSMiddleware(middleware.CORSConfig{
		Enabled:          cfg.Server.CORSEnabled,
		AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
		AllowedMethods:   cfg.Server.CORSAllowedMethods,
		AllowedHeaders:   cfg.Server.CORSAllowedHeaders,
		ExposeHeaders:    cfg.Server.CORSExposeHeaders,
		AllowCredentials: cfg.Server.CORSAllowCredentials,
		MaxAge:           cfg.Server.CORSMaxAge,
	})(handler)

	return middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Enabled: cfg.Server.RateLimitEnabled,
		RPS:     cfg.Server.RateLimitRPS,
		Burst:   cfg.Server.RateLimitBurst,
	})(handler)
}

func httpRootSpanName(r *http.Request) string {
	if r == nil {
		return "HTTP /*"
	}
	method := strings.TrimSpace(r.Method)
	if method == "" {
		method = "HTTP"
	}
	return method + " " + normalizeHTTPSpanRoute(r.URL.Path)
}

// normalizeHTTPSpanRoute keeps span names low-cardinality.
func normalizeHTTPSpanRoute(rawPath string) string {
	switch rawPath {
	case "/", graphqlPath, healthPath, schemaSDLPath, metricsPath, schemaReloadPath:
		return rawPath
	default:
		return "/*"
	}
}

// healthCheck reports whether the server can answer schema requests.
type healthCheck func(ctx context.Context) (healthStatus, error)

type healthStatus struct {
	Status      string `json:"status"`
	Source      string `json:"source,omitempty"`
	Types       int    `json:"types"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Database    string `json:"database,omitempty"`
}

var errSchemaNotReady = &statusError{component: "schema"}

type statusError struct {
	component string
	err       error
}

func (e *statusError) Error() string {
	if e.err == nil {
		return e.component + " not ready"
	}
	return e.component + ": " + e.err.Error()
}

func (e *statusError) Unwrap() error { return e.err }

// healthCheckFor checks the active snapshot and, when entities come from a
// database, the connection.
func healthCheckFor(conn *dbconn.Conn, snapshots snapshotter) healthCheck {
	return func(ctx context.Context) (healthStatus, error) {
		status := healthStatus{Status: "healthy"}
		snapshot := snapshots.CurrentSnapshot()
		if snapshot == nil {
			return healthStatus{Status: "unhealthy"}, errSchemaNotReady
		}
		status.Source = snapshot.Source
		status.Types = snapshot.Types
		status.Fingerprint = snapshot.Fingerprint

		if conn != nil {
			if err := conn.DB.PingContext(ctx); err != nil {
				return healthStatus{Status: "unhealthy", Database: "failed"}, &statusError{component: "database", err: err}
			}
			status.Database = "ok"
		}
		return status, nil
	}
}

func healthHandler(check healthCheck, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		status, err := check(ctx)
		if err != nil {
			reqLogger.Error("health check failed", slog.String("error", err.Error()))
			// The body carries no error detail.
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}

		reqLogger.Debug("health check passed")
		writeJSON(w, http.StatusOK, status)
	}
}

// sdlHandler serves the SDL of the active snapshot.
func sdlHandler(snapshots snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		snapshot := snapshots.CurrentSnapshot()
		if snapshot == nil {
			http.Error(w, "schema not ready", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("ETag", `"`+snapshot.Fingerprint+`"`)
		_, _ = w.Write([]byte(snapshot.SDL))
	}
}

func schemaReloadHandler(manager schemaReloader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())

		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}

		logAttrs := []any{
			slog.String("operation", "schema_reload"),
			slog.String("remote_addr", r.RemoteAddr),
		}
		if id, ok := middleware.AdminIdentityFromContext(r.Context()); ok {
			logAttrs = append(logAttrs,
				slog.String("auth_method", id.Method),
				slog.String("auth_header", id.Header),
			)
		}
		reqLogger.Info("admin endpoint accessed", logAttrs...)

		refreshCtx, cancel := context.WithTimeout(r.Context(), schemaReloadTimeout)
		defer cancel()

		if err := manager.RefreshNowContext(refreshCtx); err != nil {
			reqLogger.Error("schema reload failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"status":  "error",
				"message": "schema reload failed",
			})
			return
		}

		body := map[string]string{"status": "ok"}
		if snapshot := manager.CurrentSnapshot(); snapshot != nil {
			body["fingerprint"] = snapshot.Fingerprint
		}
		reqLogger.Info("schema reloaded successfully", logAttrs...)
		writeJSON(w, http.StatusOK, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
