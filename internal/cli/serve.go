package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openclaw/wheelhouse/internal/dashboard"
)

// shutdownGrace is how long in-flight dashboard requests may run after a
// termination signal.
const shutdownGrace = 10 * time.Second

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON dashboard server",
		Long: `Run the dashboard HTTP server until interrupted.

The server exposes read-only JSON endpoints for quotes, recommendations,
positions, and the account summary. When an auth token is configured, all
endpoints except /health require it via the X-Auth-Token header.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			port := app.Config.Dashboard.Port
			if flagPort, _ := cmd.Flags().GetInt("port"); flagPort > 0 {
				port = flagPort
			}

			server := dashboard.NewServer(dashboard.Config{
				Port:      port,
				AuthToken: app.Config.Dashboard.AuthToken,
			}, app.Engine, app.Portfolio, app.Quotes, app.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				app.Logger.Info("Shutting down dashboard server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			return g.Wait()
		},
	}

	cmd.Flags().Int("port", 0, "override the configured dashboard port")

	return cmd
}
