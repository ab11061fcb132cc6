// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/cmd/subscriber-api/service"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
)

// handleHTTPServer builds the API handler and serves it on addr until ctx is
// cancelled. Serve errors are reported on errc.
func handleHTTPServer(ctx context.Context, addr string, cfg service.Config, wg *sync.WaitGroup, errc chan error) {
	backend := service.MembershipBackend(ctx, cfg)
	api := service.NewSubscriberAPI(service.SubscriberOrchestrator(ctx, cfg), backend)
	handler := service.NewRouter(api, service.AuthService(ctx, cfg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(handler, "subscriber-api"),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			slog.InfoContext(ctx, "HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()

		<-ctx.Done()
		slog.InfoContext(ctx, "shutting down HTTP server", "addr", addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "failed to shut down HTTP server", "error", err)
		}
	}()
}
