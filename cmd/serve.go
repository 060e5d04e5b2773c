package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/bnema/chatsim/internal/adapters/presenter/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serveReadHeaderTimeout = 5 * time.Second
	serveShutdownTimeout   = 10 * time.Second
)

func newServeCmd(app *app) *cobra.Command {
	var listen string
	var noAuto bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversations over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("listen") {
				listen = app.config.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			logger := app.logger.Named("serve")
			hub := websocket.NewHub(app.logger.Named("hub"))
			engine, err := app.newEngine(ctx, hub)
			if err != nil {
				return err
			}
			defer engine.Close()

			listener, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", listen, err)
			}

			server := &http.Server{
				Handler: websocket.NewHandler(engine, hub, websocket.Options{
					BurstThreshold: app.config.BurstGap,
					HistoryLimit:   app.config.HistoryLimit,
					Logger:         app.logger.Named("http"),
				}),
				ReadHeaderTimeout: serveReadHeaderTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)

			if !noAuto {
				if _, err := startGroupSchedulers(gctx, app, engine); err != nil {
					_ = listener.Close()
					return err
				}
			}

			g.Go(func() error {
				if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve http: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown http: %w", err)
				}
				return nil
			})

			logger.Info("serving", zap.String("addr", listener.Addr().String()))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", listener.Addr())

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8787", "Address to listen on (overrides serve.listen)")
	cmd.Flags().BoolVar(&noAuto, "no-auto", false, "Do not let group conversations talk on their own")

	return cmd
}
