package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/elicitlabs/elicit/internal/api"
	"github.com/elicitlabs/elicit/pkg/cache"
	"github.com/elicitlabs/elicit/pkg/store"
)

// serveCommand creates the serve command, which exposes the rule collection
// over HTTP until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		port    int
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the rule collection over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			artifacts, err := c.openCache(ctx, noCache)
			if err != nil {
				logger.Warn("cache unavailable, serving without one", "error", err)
				artifacts = cache.NewNullCache()
			}
			defer artifacts.Close()

			svc, err := api.NewService(ctx, st, artifacts, logger)
			if err != nil {
				return err
			}

			// External edits to the collection file are picked up live. The
			// store resolves its own default path, so ask it rather than the
			// config, which may leave the path empty.
			if fs, ok := st.(*store.FileStore); ok {
				path := fs.Path()
				go func() {
					if err := api.Watch(ctx, svc, path); err != nil {
						logger.Error("file watcher failed", "error", err)
					}
				}()
			}

			if port == 0 {
				port = c.Config.Server.Port
			}

			root := chi.NewRouter()
			root.Mount("/api", api.NewRouter(svc))

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           root,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
				logger.Info("server stopped")
				return nil
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render artifact cache")
	return cmd
}
