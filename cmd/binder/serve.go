package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/binder/internal/live"
	"github.com/recera/binder/pkg/binder"
	"github.com/recera/binder/pkg/scheduler"
)

func newServeCommand(a *app) *cobra.Command {
	var statePath string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve TEMPLATE",
		Short: "Serve a live preview of a bound template",
		Long: `Serves the bound target in a page. Browser events are sent over a
websocket and dispatched on the server-side render target; after every
update the new markup and its mutations are pushed to every open page.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", a.cfg.Addr())
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving %s on http://%s\n", args[0], ln.Addr())
			return a.serve(ctx, ln, args[0], statePath, watch)
		},
	}

	cmd.Flags().StringVarP(&statePath, "state", "s", "", "state fixture (YAML)")
	cmd.Flags().StringP("host", "H", "localhost", "host to bind the server to")
	cmd.Flags().IntP("port", "p", 5173, "port to run the server on")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload the state fixture when it changes")
	bindFlags(a.v, cmd.Flags(), map[string]string{
		"serve.host": "host",
		"serve.port": "port",
	})
	return cmd
}

// serve runs the preview server on ln until ctx is done
func (a *app) serve(ctx context.Context, ln net.Listener, templatePath, statePath string, watch bool) error {
	loop := scheduler.NewLoop(a.logger)
	s, err := a.openSession(templatePath, statePath, loop)
	if err != nil {
		ln.Close()
		return err
	}
	host := live.NewHost(loop, s.binder)
	loop.Start()
	defer loop.Stop()

	ls := live.NewServer(host, filepath.Base(templatePath), a.logger)
	srv := &http.Server{
		Handler:           ls.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if watch && statePath != "" {
		go func() {
			err := watchFiles(ctx, []string{statePath}, a.cfg.Watch.Debounce, a.logger, func(map[string]bool) {
				err := host.Do(func(*binder.Binder) error { return s.reloadState() })
				if err != nil {
					a.logger.Error("reload failed", "err", err)
					return
				}
				a.logger.Info("state reloaded", "state", statePath)
			})
			if err != nil {
				a.logger.Error("watch failed", "err", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		ls.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ls.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
