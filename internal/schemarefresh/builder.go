package schemarefresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/graphql-go/handler"

	"sqlmodel-graphql/internal/naming"
	"sqlmodel-graphql/internal/pipeline"
	"sqlmodel-graphql/internal/schemabuild"
	"sqlmodel-graphql/internal/sdl"
)

// BuildOptions controls how declarations become a served schema.
type BuildOptions struct {
	CamelCase bool
	Naming    naming.Config
	GraphiQL  bool
	Logger    *slog.Logger
}

// BuildSnapshot runs the pipeline once and assembles an immutable snapshot:
// the graphql-go schema, its HTTP handler and the validated SDL. The
// fingerprint is the SHA-256 of the SDL, so equal model sets produce equal
// fingerprints regardless of where they were read from.
func BuildSnapshot(ctx context.Context, p *pipeline.Pipeline, opts BuildOptions) (*Snapshot, error) {
	if p == nil {
		return nil, fmt.Errorf("schema builder requires a pipeline")
	}

	result, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}

	namer := naming.New(opts.Naming, opts.Logger)
	schema, err := schemabuild.Build(result.Declarations, schemabuild.Options{
		CamelCaseFields: opts.CamelCase,
		Namer:           namer,
		Logger:          opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	source, err := sdl.RenderValid(result.Declarations, sdl.Options{
		CamelCaseFields: opts.CamelCase,
		Namer:           namer,
	})
	if err != nil {
		return nil, err
	}

	graphqlHandler := handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: opts.GraphiQL,
	})

	return &Snapshot{
		Schema:      &schema,
		Handler:     graphqlHandler,
		SDL:         source,
		Types:       len(result.Declarations),
		Source:      result.Source,
		BuiltAt:     time.Now(),
		Fingerprint: Fingerprint(source),
	}, nil
}

// Fingerprint hashes an SDL document.
func Fingerprint(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
