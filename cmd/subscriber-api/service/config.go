// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/address"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
)

// Config is the service configuration read from the environment.
type Config struct {
	BackendSource string `validate:"oneof=nats postgres engine mock"`

	NATSURL           string        `validate:"required_if=BackendSource nats"`
	NATSTimeout       time.Duration `validate:"gt=0"`
	NATSMaxReconnect  int           `validate:"gte=-1"`
	NATSReconnectWait time.Duration `validate:"gte=0"`
	NATSCreateBuckets bool

	PostgresDSN         string `validate:"required_if=BackendSource postgres"`
	PostgresAutoMigrate bool

	EngineBaseURL    string `validate:"required_if=BackendSource engine"`
	EngineAPIToken   string
	EngineTimeout    time.Duration `validate:"gt=0"`
	EngineMaxRetries int           `validate:"gte=0,lte=10"`
	EngineRetryDelay time.Duration `validate:"gte=0"`

	ListCache    string        `validate:"oneof=none redis"`
	RedisAddr    string        `validate:"required_if=ListCache redis"`
	ListCacheTTL time.Duration `validate:"gt=0"`

	AuthSource         string `validate:"oneof=token jwt mock"`
	APIAuthTokenHeader string `validate:"required"`
	APIAuthTokens      []string
	JWKSURL            string
	JWTAudience        string

	RecipientDelimiters []string
	AggregatorWorkers   int `validate:"min=1,max=256"`
	EventsEnabled       bool
	SeedMailingLists    []string `validate:"dive,email"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key, def string) (time.Duration, error) {
	raw := envOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration %q: %w", key, raw, err)
	}
	return d, nil
}

func envInt(key, def string) (int, error) {
	raw := envOrDefault(key, def)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return b, nil
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ConfigFromEnv reads and validates the configuration.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		BackendSource:      envOrDefault(constants.EnvBackendSource, constants.BackendSourceNATS),
		NATSURL:            envOrDefault(constants.EnvNATSURL, "nats://localhost:4222"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		EngineBaseURL:      os.Getenv("ENGINE_BASE_URL"),
		EngineAPIToken:     os.Getenv("ENGINE_API_TOKEN"),
		ListCache:          envOrDefault("LIST_CACHE", "none"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		AuthSource:         envOrDefault(constants.EnvAuthSource, "token"),
		APIAuthTokenHeader: envOrDefault("API_AUTH_TOKEN_HEADER", constants.DefaultAPITokenHeader),
		APIAuthTokens:      envList("API_AUTH_TOKENS"),
		JWKSURL:            os.Getenv("JWKS_URL"),
		JWTAudience:        os.Getenv("JWT_AUDIENCE"),
		SeedMailingLists:   envList("SEED_MAILING_LISTS"),
	}

	var err error
	if cfg.NATSTimeout, err = envDuration("NATS_TIMEOUT", "10s"); err != nil {
		return cfg, err
	}
	if cfg.NATSMaxReconnect, err = envInt("NATS_MAX_RECONNECT", "3"); err != nil {
		return cfg, err
	}
	if cfg.NATSReconnectWait, err = envDuration("NATS_RECONNECT_WAIT", "2s"); err != nil {
		return cfg, err
	}
	if cfg.NATSCreateBuckets, err = envBool("NATS_CREATE_BUCKETS", false); err != nil {
		return cfg, err
	}
	if cfg.PostgresAutoMigrate, err = envBool("POSTGRES_AUTO_MIGRATE", true); err != nil {
		return cfg, err
	}
	if cfg.EngineTimeout, err = envDuration("ENGINE_TIMEOUT", "30s"); err != nil {
		return cfg, err
	}
	if cfg.EngineMaxRetries, err = envInt("ENGINE_MAX_RETRIES", "2"); err != nil {
		return cfg, err
	}
	if cfg.EngineRetryDelay, err = envDuration("ENGINE_RETRY_DELAY", "1s"); err != nil {
		return cfg, err
	}
	if cfg.ListCacheTTL, err = envDuration("LIST_CACHE_TTL", "30s"); err != nil {
		return cfg, err
	}
	if cfg.AggregatorWorkers, err = envInt("AGGREGATOR_MAX_WORKERS", "8"); err != nil {
		return cfg, err
	}
	if cfg.EventsEnabled, err = envBool("EVENTS_ENABLED", true); err != nil {
		return cfg, err
	}

	cfg.RecipientDelimiters = address.ParseDelimiters(os.Getenv("RECIPIENT_DELIMITERS"))

	return cfg, cfg.Validate()
}

// Validate checks field constraints and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.AuthSource == "token" && len(c.APIAuthTokens) == 0 {
		return fmt.Errorf("invalid configuration: API_AUTH_TOKENS is required when AUTH_SOURCE is token")
	}
	return nil
}
