package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/townscope/townscope/internal/api"
	"github.com/townscope/townscope/internal/catalog"
	"github.com/townscope/townscope/internal/ingestion"
	"github.com/townscope/townscope/pkg/config"
)

func newServeCmd() *cobra.Command {
	var (
		in   inputFlags
		port string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a local townscope API server",
		Long: `Loads the project's towns into an in-memory catalog and serves the
townscope REST API on localhost. Ranking reports are written under the
project's cache directory.

Example:
  townscope serve --towns 'data/**/*.json'
  curl -s localhost:7700/api/v1/rank -d @profile-request.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), in, port)
		},
	}

	addInputFlags(cmd, &in)
	cmd.Flags().StringVar(&port, "port", "7700", "Port to serve on")

	return cmd
}

func runServe(ctx context.Context, in inputFlags, port string) error {
	s, err := openSession(in)
	if err != nil {
		return err
	}
	towns, err := loadTowns(s.proj.townPatterns(in.towns))
	if err != nil {
		return err
	}

	store := catalog.NewMemory(towns...)
	storeDir := filepath.Join(config.CacheDir(s.proj.root), "blobs")
	storage := ingestion.NewLocalStorage(storeDir)
	ingestSvc := ingestion.NewService(store, storage, s.engine)
	handler := api.NewHandler(store, ingestSvc, s.engine, api.Options{Cache: api.NewLRUResultCache(64)})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              "localhost:" + port,
		Handler:           api.Chain(mux, api.Metrics, api.CORS()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "Townscope API server\n")
	fmt.Fprintf(os.Stderr, "  Project:    %s\n", s.proj.root)
	fmt.Fprintf(os.Stderr, "  Towns:      %d\n", len(towns))
	fmt.Fprintf(os.Stderr, "  Blobs:      %s\n", storeDir)
	fmt.Fprintf(os.Stderr, "  Listening:  http://localhost:%s\n", port)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
