// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"io"
	"log"
	"log/slog"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/infrastructure/auth"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/infrastructure/engine"
	infrastructure "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/infrastructure/mock"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/infrastructure/nats"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/infrastructure/postgres"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/infrastructure/redis"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/httpclient"
)

var (
	natsClient *nats.Client
	natsDoOnce sync.Once

	backend       port.MembershipBackend
	backendDoOnce sync.Once

	closersMu sync.Mutex
	closers   []io.Closer
)

func registerCloser(c io.Closer) {
	closersMu.Lock()
	defer closersMu.Unlock()
	closers = append(closers, c)
}

// CloseResources releases connections opened by the providers, most recent first.
func CloseResources(ctx context.Context) {
	closersMu.Lock()
	defer closersMu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "error", err)
		}
	}
	closers = nil
}

func natsInit(ctx context.Context, cfg Config) {
	natsDoOnce.Do(func() {
		config := nats.Config{
			URL:           cfg.NATSURL,
			Timeout:       cfg.NATSTimeout,
			MaxReconnect:  cfg.NATSMaxReconnect,
			ReconnectWait: cfg.NATSReconnectWait,
			CreateBuckets: cfg.NATSCreateBuckets,
		}

		client, errNewClient := nats.NewClient(ctx, config)
		if errNewClient != nil {
			log.Fatalf("failed to create NATS client: %v", errNewClient)
		}
		natsClient = client
		registerCloser(client)
	})
}

// GetNATSClient returns the shared NATS client, connecting on first use.
func GetNATSClient(ctx context.Context, cfg Config) *nats.Client {
	natsInit(ctx, cfg)
	return natsClient
}

// MembershipBackend initializes the backend selected by BACKEND_SOURCE,
// decorated with the Redis list cache when LIST_CACHE is redis.
func MembershipBackend(ctx context.Context, cfg Config) port.MembershipBackend {
	backendDoOnce.Do(func() {
		backend = newBackend(ctx, cfg)

		if cfg.ListCache == "redis" {
			slog.InfoContext(ctx, "enabling redis list cache", "addr", cfg.RedisAddr, "ttl", cfg.ListCacheTTL)
			rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
			registerCloser(rdb)
			backend = redis.NewListCache(backend, rdb, cfg.ListCacheTTL)
		}
	})
	return backend
}

func newBackend(ctx context.Context, cfg Config) port.MembershipBackend {
	switch cfg.BackendSource {
	case constants.BackendSourceMock:
		slog.InfoContext(ctx, "initializing mock membership backend")
		return infrastructure.NewSampleMembershipBackend()

	case constants.BackendSourceNATS:
		slog.InfoContext(ctx, "initializing NATS membership backend")
		return nats.NewStorage(GetNATSClient(ctx, cfg))

	case constants.BackendSourcePostgres:
		slog.InfoContext(ctx, "initializing postgres membership backend")
		storage, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to initialize postgres backend: %v", err)
		}
		registerCloser(storage)
		if cfg.PostgresAutoMigrate {
			if err := storage.Migrate(ctx); err != nil {
				log.Fatalf("failed to migrate postgres schema: %v", err)
			}
		}
		return storage

	case constants.BackendSourceEngine:
		slog.InfoContext(ctx, "initializing engine membership backend", "base_url", cfg.EngineBaseURL)
		httpConfig := httpclient.DefaultConfig()
		httpConfig.Timeout = cfg.EngineTimeout
		httpConfig.MaxRetries = cfg.EngineMaxRetries
		httpConfig.RetryDelay = cfg.EngineRetryDelay

		client, err := engine.NewClient(engine.Config{
			BaseURL:  cfg.EngineBaseURL,
			APIToken: cfg.EngineAPIToken,
			HTTP:     httpConfig,
		})
		if err != nil {
			log.Fatalf("failed to initialize engine backend: %v", err)
		}
		return client

	default:
		log.Fatalf("unsupported membership backend implementation: %s", cfg.BackendSource)
	}
	return nil
}

// SubscriptionConfirmer returns the backend's confirmation side.
func SubscriptionConfirmer(ctx context.Context, cfg Config) port.SubscriptionConfirmer {
	confirmer, ok := MembershipBackend(ctx, cfg).(port.SubscriptionConfirmer)
	if !ok {
		log.Fatalf("membership backend %s does not support confirmation", cfg.BackendSource)
	}
	return confirmer
}

// MessagePublisher initializes the subscription event publisher. It returns
// nil when events are disabled.
func MessagePublisher(ctx context.Context, cfg Config) port.MessagePublisher {
	if !cfg.EventsEnabled {
		slog.InfoContext(ctx, "subscription events disabled")
		return nil
	}
	if cfg.BackendSource == constants.BackendSourceMock {
		slog.InfoContext(ctx, "initializing mock message publisher")
		return infrastructure.NewMockMessagePublisher()
	}

	slog.InfoContext(ctx, "initializing NATS message publisher")
	return nats.NewMessagePublisher(GetNATSClient(ctx, cfg))
}

// AuthService initializes the authentication service implementation
func AuthService(ctx context.Context, cfg Config) port.Authenticator {
	switch cfg.AuthSource {
	case "mock":
		slog.InfoContext(ctx, "initializing mock authentication service")
		return infrastructure.NewMockAuthService()
	case "token":
		slog.InfoContext(ctx, "initializing API token authentication service", "header", cfg.APIAuthTokenHeader)
		tokenAuth, err := auth.NewTokenAuth(auth.TokenAuthConfig{
			Header: cfg.APIAuthTokenHeader,
			Tokens: cfg.APIAuthTokens,
		})
		if err != nil {
			log.Fatalf("failed to initialize token authentication service: %v", err)
		}
		return tokenAuth
	case "jwt":
		slog.InfoContext(ctx, "initializing JWT authentication service")
		jwtAuth, err := auth.NewJWTAuth(auth.JWTAuthConfig{
			JWKSURL:  cfg.JWKSURL,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			log.Fatalf("failed to initialize JWT authentication service: %v", err)
		}
		return jwtAuth
	default:
		log.Fatalf("unsupported authentication service implementation: %s", cfg.AuthSource)
	}
	return nil
}

// SubscriberOrchestrator wires the orchestrator to the configured backend and publisher.
func SubscriberOrchestrator(ctx context.Context, cfg Config) service.SubscriberOrchestrator {
	return service.NewSubscriberOrchestrator(
		service.WithMembershipBackend(MembershipBackend(ctx, cfg)),
		service.WithMessagePublisher(MessagePublisher(ctx, cfg)),
		service.WithRecipientDelimiters(cfg.RecipientDelimiters),
		service.WithAggregatorWorkers(cfg.AggregatorWorkers),
	)
}

// SeedMailingLists registers SEED_MAILING_LISTS on backends with their own
// list registry. Failures are logged and do not stop startup.
func SeedMailingLists(ctx context.Context, cfg Config) {
	if len(cfg.SeedMailingLists) == 0 {
		return
	}
	provisioner, ok := MembershipBackend(ctx, cfg).(port.ListProvisioner)
	if !ok {
		slog.WarnContext(ctx, "membership backend cannot provision lists, skipping seed", "backend", cfg.BackendSource)
		return
	}
	for _, list := range cfg.SeedMailingLists {
		if err := provisioner.CreateMailingList(ctx, list); err != nil {
			slog.ErrorContext(ctx, "failed to seed mailing list", "mailing_list", list, "error", err)
			continue
		}
		slog.InfoContext(ctx, "seeded mailing list", "mailing_list", list)
	}
}
