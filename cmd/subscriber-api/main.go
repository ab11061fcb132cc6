// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// The subscriber-api command serves the mailing list subscriber API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/cmd/subscriber-api/service"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	logging "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/log"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/utils"
)

const (
	defaultPort             = "8080"
	gracefulShutdownTimeout = 25 * time.Second
)

func main() {
	var (
		port = flag.String("p", "", "listen port (overrides PORT)")
		bind = flag.String("bind", "*", "interface to bind on")
		dbgF = flag.Bool("d", false, "enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-p port] [-bind addr] [-d]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *dbgF {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			log.Fatalf("failed to enable debug logging: %v", err)
		}
	}
	logging.InitStructureLogConfig()

	ctx := context.Background()

	cfg, err := service.ConfigFromEnv()
	if err != nil {
		log.Fatalf("%v", err)
	}

	otelShutdown, err := utils.SetupOTelSDK(ctx)
	if err != nil {
		log.Fatalf("failed to set up OpenTelemetry: %v", err)
	}

	listenPort := *port
	if listenPort == "" {
		listenPort = os.Getenv("PORT")
	}
	if listenPort == "" {
		listenPort = defaultPort
	}
	host := *bind
	if host == "*" {
		host = ""
	}
	addr := net.JoinHostPort(host, listenPort)

	slog.InfoContext(ctx, "starting subscriber api",
		"addr", addr,
		"backend", cfg.BackendSource,
		"auth", cfg.AuthSource,
		"list_cache", cfg.ListCache,
		"events", cfg.EventsEnabled,
	)

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)

	service.SeedMailingLists(ctx, cfg)

	if cfg.EventsEnabled && cfg.BackendSource != constants.BackendSourceMock {
		if err := handleConfirmationSync(ctx, cfg, &wg); err != nil {
			cancel()
			log.Fatalf("failed to start confirmation sync: %v", err)
		}
	}

	handleHTTPServer(ctx, addr, cfg, &wg, errc)

	slog.InfoContext(ctx, "exiting", "reason", <-errc)

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	service.CloseResources(shutdownCtx)
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "failed to shut down OpenTelemetry", "error", err)
	}
	slog.InfoContext(shutdownCtx, "graceful shutdown completed")
}
