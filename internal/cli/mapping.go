package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"sqlmodel-graphql/internal/annotation"
	"sqlmodel-graphql/internal/dbconn"
	"sqlmodel-graphql/internal/introspection"
	"sqlmodel-graphql/internal/naming"
	"sqlmodel-graphql/internal/pipeline"
	"sqlmodel-graphql/internal/schemabuild"
	"sqlmodel-graphql/internal/sdl"
)

func newAnnotateCommand(state *runState) *cobra.Command {
	return &cobra.Command{
		Use:   "annotate",
		Short: "Print the annotation map of every exposed type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			decls, err := state.declarations(cmd.Context())
			if err != nil {
				return err
			}
			if state.cfg.Output.Format == "json" {
				return writeAnnotationsJSON(cmd.OutOrStdout(), decls)
			}
			return writeAnnotationsText(cmd.OutOrStdout(), decls)
		},
	}
}

func newSDLCommand(state *runState) *cobra.Command {
	return &cobra.Command{
		Use:   "sdl",
		Short: "Print the validated GraphQL SDL of the exposed types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			decls, err := state.declarations(cmd.Context())
			if err != nil {
				return err
			}

			namer := naming.New(state.cfg.Naming, state.logger.Logger)
			// The served schema must build too, not only parse.
			if _, err := schemabuild.Build(decls, schemabuild.Options{
				CamelCaseFields: state.cfg.Output.CamelCase,
				Namer:           namer,
				Logger:          state.logger.Logger,
			}); err != nil {
				return fmt.Errorf("failed to build GraphQL schema: %w", err)
			}

			source, err := sdl.RenderValid(decls, sdl.Options{
				CamelCaseFields: state.cfg.Output.CamelCase,
				Namer:           namer,
			})
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), source)
			return err
		},
	}
}

// declarations runs the mapping pipeline once against the configured source.
func (s *runState) declarations(ctx context.Context) ([]annotation.Declaration, error) {
	var queryer introspection.Queryer
	if pipeline.RequiresConnection(s.cfg) {
		conn, err := dbconn.Open(ctx, s.cfg.Database, s.cfg.Observability, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		defer conn.Close()
		queryer = conn.DB
	}

	source, err := pipeline.SourceFromConfig(s.cfg, queryer, s.logger.Logger)
	if err != nil {
		return nil, err
	}
	mapper := annotation.New(s.cfg.Mapping.Annotation(), s.logger.Logger)
	result, err := pipeline.New(source, mapper, nil, s.logger).Run(ctx)
	if err != nil {
		return nil, err
	}
	return result.Declarations, nil
}

func writeAnnotationsText(w io.Writer, decls []annotation.Declaration) error {
	var b strings.Builder
	for i, decl := range decls {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s (%s)\n", decl.Name, decl.Entity)
		width := 0
		for _, name := range decl.Fields.Keys() {
			width = max(width, len(name))
		}
		for _, f := range decl.Fields.Fields() {
			fmt.Fprintf(&b, "  %-*s  %s\n", width, f.Name, f.Annotation)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type jsonDeclaration struct {
	Type        string      `json:"type"`
	Entity      string      `json:"entity"`
	Description string      `json:"description,omitempty"`
	Fields      []jsonField `json:"fields"`
}

type jsonField struct {
	Name       string `json:"name"`
	Annotation string `json:"annotation"`
}

func writeAnnotationsJSON(w io.Writer, decls []annotation.Declaration) error {
	out := make([]jsonDeclaration, 0, len(decls))
	for _, decl := range decls {
		fields := make([]jsonField, 0, decl.Fields.Len())
		for _, f := range decl.Fields.Fields() {
			fields = append(fields, jsonField{Name: f.Name, Annotation: f.Annotation.String()})
		}
		out = append(out, jsonDeclaration{
			Type:        decl.Name,
			Entity:      decl.Entity,
			Description: decl.Description,
			Fields:      fields,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
