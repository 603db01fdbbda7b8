package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/readingdna/readingdna/internal/config"
	"github.com/readingdna/readingdna/internal/handlers"
	"github.com/readingdna/readingdna/internal/ingest"
	"github.com/readingdna/readingdna/internal/ratelimit"
	"github.com/readingdna/readingdna/internal/search"
	"github.com/readingdna/readingdna/internal/storage"
)

// sweepInterval is how often idle rate limit buckets are dropped
const sweepInterval = 10 * time.Minute

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Reading DNA HTTP API",
		Long: `Starts the HTTP API on the configured port.

Uploads, generated profiles, connection graphs and recommendations are kept
in the data directory. Set STATIC_DIR (or server.static_dir) to also serve a
built client.`,
		Example: `  # Start server on default port 5000
  readingdna serve

  # Start server on custom port with a config file
  readingdna serve --port 3000 --config readingdna.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// A badger store takes the data directory lock itself
			if cfg.Storage.Backend == config.BackendFile {
				lock, err := lockDataDir(cfg.Storage.DataDir)
				if err != nil {
					return err
				}
				defer lock.Unlock()
			}

			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			svc, err := newAnalysis(cfg, store)
			if err != nil {
				return err
			}

			index, err := newSearchIndex(ctx, cfg, store)
			if err != nil {
				return err
			}

			var limiter *ratelimit.Limiter
			if cfg.RateLimit.Enabled {
				limiter = ratelimit.New(
					ratelimit.Window{Name: ratelimit.Hourly.Name, Max: cfg.RateLimit.PerHour, Period: ratelimit.Hourly.Period},
					ratelimit.Window{Name: ratelimit.Daily.Name, Max: cfg.RateLimit.PerDay, Period: ratelimit.Daily.Period},
				)
				go limiter.Run(ctx, sweepInterval)
			}

			handler := handlers.New(handlers.Options{
				Pipeline:                    ingest.NewPipeline(store),
				Analysis:                    svc,
				Search:                      index,
				Limiter:                     limiter,
				UploadDir:                   cfg.UploadDir(),
				MaxUpload:                   cfg.Server.MaxUploadMB << 20,
				CORSOrigins:                 cfg.Server.CORSOrigins,
				StaticDir:                   cfg.Server.StaticDir,
				RecommendationsPreferShared: cfg.Generation.RecommendationsPreferShared,
			})

			addr := ":" + cfg.Server.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Reading DNA API available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"storage", cfg.Storage.Backend,
					"provider", cfg.Generation.Provider,
					"rate_limit", cfg.RateLimit.Enabled)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "5000", "Port to listen on")

	return cmd
}

// newSearchIndex builds the configured autocomplete source. A local source
// over the file backend is invalidated as collection files change on disk.
func newSearchIndex(ctx context.Context, cfg *config.Config, store *storage.Store) (*search.Index, error) {
	if cfg.Search.Backend == config.SearchRemote {
		return search.NewIndex(search.NewRemoteSource(cfg.Search.RemoteURL, cfg.Search.Timeout)), nil
	}

	local := search.NewLocalSource(store)
	if cfg.Storage.Backend == config.BackendFile {
		if err := search.Watch(ctx, cfg.Storage.DataDir, local); err != nil {
			return nil, err
		}
	}
	return search.NewIndex(local), nil
}
