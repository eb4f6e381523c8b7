// Package pipeline turns an entity source into exposed type declarations.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"sqlmodel-graphql/internal/annotation"
	"sqlmodel-graphql/internal/logging"
	"sqlmodel-graphql/internal/model"
	"sqlmodel-graphql/internal/observability"
)

// Result is the outcome of one pipeline run.
type Result struct {
	Source       string
	Entities     []model.Entity
	Declarations []annotation.Declaration
	Duration     time.Duration
}

// Pipeline loads entities from a source and declares them with a mapper.
type Pipeline struct {
	source  Source
	mapper  *annotation.Mapper
	metrics *observability.MappingMetrics
	logger  *logging.Logger
}

// New creates a pipeline. metrics may be nil.
func New(source Source, mapper *annotation.Mapper, metrics *observability.MappingMetrics, logger *logging.Logger) *Pipeline {
	if mapper == nil {
		mapper = annotation.Default()
	}
	if logger == nil {
		logger = &logging.Logger{Logger: slog.Default()}
	}
	return &Pipeline{
		source:  source,
		mapper:  mapper,
		metrics: metrics,
		logger:  logger.WithFields(slog.String("source", source.Name())),
	}
}

// Run loads the model set and declares every entity. It fails as a whole.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx, span := otel.Tracer("sqlmodel-graphql/pipeline").Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("mapping.source", p.source.Name()))

	start := time.Now()
	fail := func(err error) (*Result, error) {
		duration := time.Since(start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.RecordFailure(ctx, p.source.Name(), err, duration)
		p.logger.Error("mapping failed",
			slog.String("error", err.Error()),
			slog.String("kind", annotation.ErrorKind(err)),
			slog.Duration("duration", duration),
		)
		return nil, err
	}

	models, err := p.source.Load(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to load entities from %s: %w", p.source.Name(), err))
	}
	p.logger.Debug("entities loaded", slog.Int("count", len(models.Entities)))

	decls, err := p.mapper.DeclareAll(models.Entities, models.Extras)
	if err != nil {
		return fail(err)
	}

	duration := time.Since(start)
	p.metrics.RecordDeclarations(ctx, p.source.Name(), decls, duration)
	span.SetAttributes(attribute.Int("mapping.types", len(decls)))
	p.logger.Info("mapping complete",
		slog.Int("types", len(decls)),
		slog.Duration("duration", duration),
	)

	return &Result{
		Source:       p.source.Name(),
		Entities:     models.Entities,
		Declarations: decls,
		Duration:     duration,
	}, nil
}
