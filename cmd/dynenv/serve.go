// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacklok/dynenv/inject"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		path    string
		nosniff bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the injection script over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.settings.Addr
			}

			var opts []inject.Option
			if nosniff {
				opts = append(opts, inject.WithHeader("X-Content-Type-Options", "nosniff"))
			}
			inj, err := a.injector(opts...)
			if err != nil {
				return err
			}
			p, err := a.errorPolicy()
			if err != nil {
				return err
			}
			client, err := a.client(p)
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle(path, inj.Handler(inject.FromAccessor(client)))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $DYNENV_ADDR or :8080)")
	cmd.Flags().StringVar(&path, "path", "/env.js", "URL path of the script")
	cmd.Flags().BoolVar(&nosniff, "nosniff", true, "send X-Content-Type-Options: nosniff")
	return cmd
}

// serve runs srv until ctx is done, then shuts it down gracefully.
func (a *app) serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving injection script", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}
