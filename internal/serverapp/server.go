package serverapp

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"sqlmodel-graphql/internal/config"
	"sqlmodel-graphql/internal/logging"
	"sqlmodel-graphql/internal/tlscert"
)

func buildServer(cfg *config.Config, logger *logging.Logger, handler http.Handler, serverAddr string) (*http.Server, error) {
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	source, err := tlscert.New(tlscert.Config{
		Mode:        tlscert.Mode(cfg.Server.TLSMode),
		CertFile:    cfg.Server.TLSCertFile,
		KeyFile:     cfg.Server.TLSKeyFile,
		AutoCertDir: cfg.Server.TLSAutoCertDir,
	}, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize TLS: %w", err)
	}
	if source != nil {
		srv.TLSConfig = source.TLSConfig()
		logger.Info("HTTPS enabled",
			slog.String("certificate_source", source.String()),
			slog.String("min_tls_version", tls.VersionName(tlscert.MinTLSVersion)),
		)
	}
	return srv, nil
}

// startServer binds the listener synchronously so address errors surface
// on the returned channel right away, then serves in a goroutine.
func startServer(cfg *config.Config, logger *logging.Logger, srv *http.Server, serverAddr string) chan error {
	serverErrors := make(chan error, 1)

	listener, err := net.Listen("tcp", serverAddr)
	if err != nil {
		serverErrors <- fmt.Errorf("failed to listen on %s: %w", serverAddr, err)
		return serverErrors
	}
	protocol := "http"
	if srv.TLSConfig != nil {
		listener = tls.NewListener(listener, srv.TLSConfig)
		protocol = "https"
	}

	logAttrs := []any{
		slog.String("address", listener.Addr().String()),
		slog.String("protocol", protocol),
		slog.String("graphql_endpoint", graphqlPath),
		slog.String("health_endpoint", healthPath),
		slog.String("sdl_endpoint", schemaSDLPath),
		slog.Bool("graphiql", cfg.Server.GraphiQLEnabled),
		slog.String("source", cfg.Source),
	}
	if cfg.Observability.MetricsEnabled {
		logAttrs = append(logAttrs, slog.String("metrics_endpoint", metricsPath))
	}
	if cfg.Server.Admin.SchemaReloadEnabled {
		logAttrs = append(logAttrs, slog.String("admin_endpoint", schemaReloadPath))
	}
	if cfg.Server.RateLimitEnabled {
		logAttrs = append(logAttrs,
			slog.Float64("rate_limit_rps", cfg.Server.RateLimitRPS),
			slog.Int("rate_limit_burst", cfg.Server.RateLimitBurst),
		)
	}
	logger.Info("server starting", logAttrs...)

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()
	return serverErrors
}
