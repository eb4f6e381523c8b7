package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sqlmodel-graphql/internal/gqlrequest"
)

// GraphQLSpanAttributes describes an analyzed request for the execution span.
func GraphQLSpanAttributes(a *gqlrequest.Analysis, fingerprint string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 8)
	if a != nil {
		if a.Envelope.OperationName != "" {
			attrs = append(attrs, attribute.String("graphql.operation.requested_name", a.Envelope.OperationName))
		}
		if a.OperationName != "" {
			attrs = append(attrs,
				attribute.String("graphql.operation.name", a.OperationName),
				attribute.String("graphql.operation.type", a.OperationType),
				attribute.String("graphql.operation.hash", a.OperationHash),
				attribute.Int("graphql.query.field_count", a.FieldCount),
				attribute.Int("graphql.query.depth", a.SelectionDepth),
				attribute.Int("graphql.query.variable_count", a.VariableCount),
			)
		}
		if a.Envelope.SizeBytes > 0 {
			attrs = append(attrs, attribute.Int("graphql.document.size_bytes", a.Envelope.SizeBytes))
		}
	}
	if fingerprint != "" {
		attrs = append(attrs, attribute.String("schema.fingerprint", fingerprint))
	}
	return attrs
}

// GraphQLLogFields returns the request log fields for an analyzed request.
func GraphQLLogFields(ctx context.Context, a *gqlrequest.Analysis, fingerprint string) []any {
	fields := make([]any, 0, 5)
	if a != nil && a.OperationName != "" {
		fields = append(fields,
			slog.String("operation_name", a.OperationName),
			slog.String("operation_type", a.OperationType),
			slog.String("operation_hash", a.OperationHash),
		)
	}
	if fingerprint != "" {
		fields = append(fields, slog.String("schema_fingerprint", fingerprint))
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields, slog.String("trace_id", spanCtx.TraceID().String()))
	}
	return fields
}
