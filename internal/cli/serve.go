package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/churnpipe/internal/predict"
	"github.com/roach88/churnpipe/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Model    string
	RunID    string
	Addr     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve churn estimates over a stored feature table",
		Long: `Serve the churn prediction API over a previously stored feature table.

Loads one run's feature table from the SQLite database and a frozen model
artifact, builds the session graph, and answers POST /api/predict requests
until interrupted. Without --run the latest run is served.

Example:
  churnpipe serve --db churn.db --model model.json
  churnpipe serve --db churn.db --model model.json --run 0190a5... --addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Model, "model", "", "path to model artifact JSON (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to serve (default: latest)")
	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	run, err := resolveRun(parentCtx, st, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to resolve run", err)
	}
	slog.Info("serving run", "run_id", run.ID, "sessions", run.Sessions)

	table, err := st.ReadFeatures(parentCtx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load feature table", err)
	}

	scorer, err := predict.LoadScorer(opts.Model)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load model", err)
	}

	svc, err := predict.NewService(table, scorer)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build predict service", err)
	}

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: predict.Router(svc),
	}

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("prediction API listening", "addr", opts.Addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "server shutdown failed", err)
		}
		slog.Info("server stopped")
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "server failed", err)
	}
}

func resolveRun(ctx context.Context, st *store.Store, runID string) (store.Run, error) {
	if runID == "" {
		return st.LatestRun(ctx)
	}
	return st.GetRun(ctx, runID)
}
