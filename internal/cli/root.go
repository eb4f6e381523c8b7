// Package cli defines the sqlmodel-graphql command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sqlmodel-graphql/internal/config"
	"sqlmodel-graphql/internal/logging"
	"sqlmodel-graphql/internal/observability"
	"sqlmodel-graphql/internal/serverapp"
)

// BuildInfo identifies the binary. It is set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
}

// runState is what PersistentPreRunE hands to the subcommands.
type runState struct {
	info           BuildInfo
	cfg            *config.Config
	logger         *logging.Logger
	loggerProvider *observability.LoggerProvider
}

// NewRootCommand builds the command tree. Every subcommand except version
// shares the configuration flags and loads configuration before running.
func NewRootCommand(info BuildInfo) *cobra.Command {
	state := &runState{info: info}

	root := &cobra.Command{
		Use:   "sqlmodel-graphql",
		Short: "Derive GraphQL types from relational entity models",
		Long: `sqlmodel-graphql maps relational entities, read from a YAML definitions
file or by introspecting a MySQL, PostgreSQL or SQLite database, to GraphQL
type annotations. It prints the annotations or the SDL, or serves the schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return state.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return state.close(cmd.Context())
		},
	}
	config.DefineFlags(root.PersistentFlags())

	root.AddCommand(
		newAnnotateCommand(state),
		newSDLCommand(state),
		newServeCommand(state),
		newVersionCommand(state),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute(info BuildInfo) {
	if err := NewRootCommand(info).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (s *runState) load(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = s.info.Version
	}

	logger, loggerProvider, err := serverapp.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	runID := logging.NewRunID()
	logger = logger.WithRunID(runID).WithFields(slog.String("command", cmd.Name()))

	result := cfg.Validate(cmd.Name() == "serve")
	for _, warn := range result.Warnings {
		logger.Warn("configuration warning",
			slog.String("field", warn.Field),
			slog.String("message", warn.Message),
			slog.String("hint", warn.Hint),
		)
	}
	if result.HasErrors() {
		for _, verr := range result.Errors {
			logger.Error("configuration error",
				slog.String("field", verr.Field),
				slog.String("message", verr.Message),
				slog.String("hint", verr.Hint),
			)
		}
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(context.Background(), logger.Logger)
		}
		return fmt.Errorf("configuration validation failed: %s", result.Error())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithRunIDContext(logging.WithLogger(ctx, logger), runID)
	cmd.SetContext(ctx)

	s.cfg = cfg
	s.logger = logger
	s.loggerProvider = loggerProvider
	return nil
}

func (s *runState) close(ctx context.Context) error {
	if s.loggerProvider == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	provider := s.loggerProvider
	s.loggerProvider = nil
	return provider.Shutdown(ctx, s.logger.Logger)
}

func newVersionCommand(state *runState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// version needs no configuration.
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "sqlmodel-graphql %s (%s)\n", state.info.Version, state.info.Commit)
			return err
		},
	}
}
