package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/planviz/planviz/internal/server"
	"github.com/planviz/planviz/pkg/cache"
)

// serveCommand creates the serve command for running the layout HTTP server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noCache   bool
		redisAddr string
		redisDB   int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout HTTP server",
		Long: `Run the layout HTTP server.

The server accepts plan hierarchies on POST /api/layout, settles the layout,
and stores the resulting frame as a scene. Scenes are fetched by ID from
GET /api/scenes/{id}.

By default scenes and layouts are cached on disk. With --redis the cache is
shared across replicas.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache, redisAddr, redisDB)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching (scenes will not persist)")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address (e.g. localhost:6379)")
	cmd.Flags().IntVar(&redisDB, "redis-db", 0, "redis database number")

	return cmd
}

// runServe builds the cache backend and serves until the context is cancelled.
func (c *CLI) runServe(ctx context.Context, addr string, noCache bool, redisAddr string, redisDB int) error {
	var (
		store cache.Cache
		err   error
	)
	switch {
	case noCache:
		store = cache.NewNullCache()
	case redisAddr != "":
		store, err = cache.NewRedisCache(ctx, redisAddr, "", redisDB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		c.Logger.Info("using redis cache", "addr", redisAddr)
	default:
		store, err = newCache(false)
		if err != nil {
			return fmt.Errorf("initialize cache: %w", err)
		}
	}

	srv := server.New(store, c.Logger)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		c.Logger.Info("server stopped")
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
