package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/healthops/observe"
)

// DefaultShutdownTimeout bounds graceful shutdown of the server.
const DefaultShutdownTimeout = 10 * time.Second

type serveOptions struct {
	addr            string
	shutdownTimeout time.Duration
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health endpoints over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			return serve(ctx, app, opts.shutdownTimeout, func(addr net.Addr) {
				fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
			})
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address, overrides server.addr")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", DefaultShutdownTimeout, "graceful shutdown budget")
	return cmd
}

// serve runs the HTTP server until ctx is done, then shuts it down and
// closes app.
func serve(ctx context.Context, app *App, shutdownTimeout time.Duration, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", app.Config.Server.Addr)
	if err != nil {
		return errors.Join(fmt.Errorf("listen %s: %w", app.Config.Server.Addr, err), app.Close(context.WithoutCancel(ctx)))
	}
	if ready != nil {
		ready(ln.Addr())
	}

	srv := &http.Server{
		Handler:           NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	app.Logger.Info(ctx, "server started", observe.F("http.addr", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		app.Logger.Info(sctx, "server stopping")
		return errors.Join(srv.Shutdown(sctx), app.Close(sctx))
	})
	return g.Wait()
}
