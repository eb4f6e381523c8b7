package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sqlmodel-graphql/internal/serverapp"
)

func newServeCommand(state *runState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the GraphQL schema over HTTP",
		Long: `Serve builds the schema from the configured source and serves it on
/graphql. The schema is rebuilt in the background and swapped in when the
entity model set changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(stop)
			return state.serve(cmd.Context(), stop)
		},
	}
}

func (s *runState) serve(ctx context.Context, stop <-chan os.Signal) error {
	app, err := serverapp.New(s.cfg, s.logger)
	if err != nil {
		return err
	}
	// The app shuts the logger provider down with everything else.
	app.AttachLoggerProvider(s.loggerProvider)
	s.loggerProvider = nil

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		return app.Shutdown(shutdownCtx)
	}

	if err := app.Init(ctx); err != nil {
		_ = shutdown()
		return err
	}

	serverErrors, err := app.Start()
	if err != nil {
		_ = shutdown()
		return err
	}

	_, waitErr := app.WaitForStop(stop, serverErrors)

	s.logger.Info("shutting down server gracefully")
	shutdownErr := shutdown()
	if waitErr != nil {
		return waitErr
	}
	if shutdownErr != nil {
		return shutdownErr
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
