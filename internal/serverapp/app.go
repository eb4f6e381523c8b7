// Package serverapp wires configuration, telemetry, the mapping pipeline and
// the HTTP server into one lifecycle: New, Init, Start, WaitForStop and
// Shutdown.
package serverapp

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"sqlmodel-graphql/internal/config"
	"sqlmodel-graphql/internal/dbconn"
	"sqlmodel-graphql/internal/logging"
	"sqlmodel-graphql/internal/observability"
	"sqlmodel-graphql/internal/schemarefresh"
)

// App owns runtime resources for the serve command.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider
	meterProvider  *observability.MeterProvider
	mappingMetrics *observability.MappingMetrics
	tracerProvider *observability.TracerProvider

	// conn is nil when entities come from a definitions file.
	conn *dbconn.Conn

	manager      *schemarefresh.Manager
	schemaCancel context.CancelFunc

	mux     *http.ServeMux
	handler http.Handler

	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors chan error

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Handler returns the fully wrapped HTTP handler. It is nil before Init.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}
