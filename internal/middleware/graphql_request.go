package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"sqlmodel-graphql/internal/gqlrequest"
	"sqlmodel-graphql/internal/logging"
	"sqlmodel-graphql/internal/observability"
)

// GraphQLRequestConfig configures GraphQLRequestMiddleware.
type GraphQLRequestConfig struct {
	Limits gqlrequest.Limits
	// Fingerprint returns the fingerprint of the schema serving the request.
	Fingerprint func() string
}

// GraphQLRequestMiddleware analyzes each GraphQL request once, records the
// operation on the request logger and an execution span, and rejects
// operations that exceed the configured limits before they execute.
func GraphQLRequestMiddleware(cfg GraphQLRequestConfig) func(http.Handler) http.Handler {
	tracer := otel.Tracer("sqlmodel-graphql/graphql")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			analysis := gqlrequest.Analyze(r)
			if analysis.Envelope.Query == "" {
				next.ServeHTTP(w, r)
				return
			}

			fingerprint := ""
			if cfg.Fingerprint != nil {
				fingerprint = cfg.Fingerprint()
			}

			ctx, span := tracer.Start(r.Context(), "graphql.execute")
			defer span.End()
			if span.IsRecording() {
				span.SetAttributes(observability.GraphQLSpanAttributes(analysis, fingerprint)...)
			}

			logger := logging.FromContext(ctx)
			if fields := observability.GraphQLLogFields(ctx, analysis, fingerprint); len(fields) > 0 {
				logger = logger.WithFields(fields...)
			}
			ctx = logging.WithLogger(gqlrequest.WithAnalysis(ctx, analysis), logger)

			if err := analysis.Check(cfg.Limits); err != nil {
				span.SetStatus(codes.Error, err.Error())
				logger.Warn("GraphQL operation rejected",
					slog.Int("depth", analysis.SelectionDepth),
					slog.Int("fields", analysis.FieldCount),
					slog.String("error", err.Error()),
				)
				writeGraphQLError(w, http.StatusBadRequest, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeGraphQLError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"errors": []map[string]string{{"message": message}},
	})
}
