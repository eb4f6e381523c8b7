package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"sqlmodel-graphql/internal/annotation"
)

// MappingMetrics holds metrics for annotation runs: how many entities were
// declared, what kind of fields they produced, and why runs failed.
type MappingMetrics struct {
	runCounter      metric.Int64Counter
	entityCounter   metric.Int64Counter
	fieldCounter    metric.Int64Counter
	failureCounter  metric.Int64Counter
	durationHist    metric.Float64Histogram
	lastSuccessUnix atomic.Int64
}

// InitMappingMetrics creates the mapping instruments on the global meter.
func InitMappingMetrics(logger *slog.Logger) (*MappingMetrics, error) {
	meter := otel.Meter("sqlmodel-graphql")

	runCounter, err := meter.Int64Counter(
		"mapping.runs.total",
		metric.WithDescription("Total number of annotation runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping run counter: %w", err)
	}

	entityCounter, err := meter.Int64Counter(
		"mapping.entities.total",
		metric.WithDescription("Total number of entities declared as GraphQL types"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping entity counter: %w", err)
	}

	fieldCounter, err := meter.Int64Counter(
		"mapping.fields.total",
		metric.WithDescription("Total number of annotated fields by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping field counter: %w", err)
	}

	failureCounter, err := meter.Int64Counter(
		"mapping.failures.total",
		metric.WithDescription("Total number of failed annotation runs by error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping failure counter: %w", err)
	}

	durationHist, err := meter.Float64Histogram(
		"mapping.duration",
		metric.WithDescription("Duration of annotation runs in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping duration histogram: %w", err)
	}

	lastSuccessGauge, err := meter.Int64ObservableGauge(
		"mapping.last_success_unix",
		metric.WithDescription("Unix timestamp of the last successful annotation run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping last success gauge: %w", err)
	}

	metrics := &MappingMetrics{
		runCounter:     runCounter,
		entityCounter:  entityCounter,
		fieldCounter:   fieldCounter,
		failureCounter: failureCounter,
		durationHist:   durationHist,
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			if value := metrics.lastSuccessUnix.Load(); value > 0 {
				observer.ObserveInt64(lastSuccessGauge, value)
			}
			return nil
		},
		lastSuccessGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register mapping gauge callback: %w", err)
	}

	logger.Debug("mapping metrics initialized")
	return metrics, nil
}

// FieldKind labels an annotation for the field counter.
func FieldKind(a annotation.Annotation) string {
	switch {
	case a.List:
		return "list"
	case a.IsReference():
		return "reference"
	default:
		return "scalar"
	}
}

// RecordDeclarations records a successful run. source is "definitions" or
// "database".
func (m *MappingMetrics) RecordDeclarations(ctx context.Context, source string, decls []annotation.Declaration, duration time.Duration) {
	if m == nil {
		return
	}
	sourceAttr := attribute.String("source", source)
	m.runCounter.Add(ctx, 1, metric.WithAttributes(sourceAttr, attribute.Bool("success", true)))
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(sourceAttr, attribute.Bool("success", true)))
	m.entityCounter.Add(ctx, int64(len(decls)), metric.WithAttributes(sourceAttr))

	kinds := make(map[string]int64, 3)
	for _, decl := range decls {
		for _, f := range decl.Fields.Fields() {
			kinds[FieldKind(f.Annotation)]++
		}
	}
	for kind, n := range kinds {
		m.fieldCounter.Add(ctx, n, metric.WithAttributes(sourceAttr, attribute.String("kind", kind)))
	}

	m.lastSuccessUnix.Store(time.Now().Unix())
}

// RecordFailure records a failed run labelled with annotation.ErrorKind.
func (m *MappingMetrics) RecordFailure(ctx context.Context, source string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	sourceAttr := attribute.String("source", source)
	m.runCounter.Add(ctx, 1, metric.WithAttributes(sourceAttr, attribute.Bool("success", false)))
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(sourceAttr, attribute.Bool("success", false)))
	m.failureCounter.Add(ctx, 1, metric.WithAttributes(sourceAttr, attribute.String("kind", annotation.ErrorKind(err))))
}

// LastSuccess returns the time of the last successful run, or the zero time.
func (m *MappingMetrics) LastSuccess() time.Time {
	if m == nil {
		return time.Time{}
	}
	value := m.lastSuccessUnix.Load()
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0)
}
