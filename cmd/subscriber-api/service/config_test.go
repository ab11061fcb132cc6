// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("API_AUTH_TOKENS", "a, b")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "nats", cfg.BackendSource)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, 10*time.Second, cfg.NATSTimeout)
	assert.Equal(t, "none", cfg.ListCache)
	assert.Equal(t, 30*time.Second, cfg.ListCacheTTL)
	assert.Equal(t, "token", cfg.AuthSource)
	assert.Equal(t, "X-API-AUTH-TOKEN", cfg.APIAuthTokenHeader)
	assert.Equal(t, []string{"a", "b"}, cfg.APIAuthTokens)
	assert.Equal(t, []string{"+"}, cfg.RecipientDelimiters)
	assert.Equal(t, 8, cfg.AggregatorWorkers)
	assert.True(t, cfg.EventsEnabled)
	assert.True(t, cfg.PostgresAutoMigrate)
}

func TestConfigFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown backend",
			env:  map[string]string{"BACKEND_SOURCE": "sqlite", "AUTH_SOURCE": "mock"},
		},
		{
			name: "postgres without DSN",
			env:  map[string]string{"BACKEND_SOURCE": "postgres", "AUTH_SOURCE": "mock"},
		},
		{
			name: "engine without base URL",
			env:  map[string]string{"BACKEND_SOURCE": "engine", "AUTH_SOURCE": "mock"},
		},
		{
			name: "redis cache without address",
			env:  map[string]string{"BACKEND_SOURCE": "mock", "AUTH_SOURCE": "mock", "LIST_CACHE": "redis"},
		},
		{
			name: "token auth without tokens",
			env:  map[string]string{"BACKEND_SOURCE": "mock"},
		},
		{
			name: "bad duration",
			env:  map[string]string{"AUTH_SOURCE": "mock", "NATS_TIMEOUT": "ten seconds"},
		},
		{
			name: "zero workers",
			env:  map[string]string{"AUTH_SOURCE": "mock", "AGGREGATOR_MAX_WORKERS": "0"},
		},
		{
			name: "bad seed list",
			env:  map[string]string{"AUTH_SOURCE": "mock", "SEED_MAILING_LISTS": "dev@example.com,not-a-list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := ConfigFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("BACKEND_SOURCE", "engine")
	t.Setenv("ENGINE_BASE_URL", "https://engine.example.com/api")
	t.Setenv("ENGINE_MAX_RETRIES", "0")
	t.Setenv("AUTH_SOURCE", "jwt")
	t.Setenv("RECIPIENT_DELIMITERS", "+, -")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("LIST_CACHE", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LIST_CACHE_TTL", "1m")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "engine", cfg.BackendSource)
	assert.Equal(t, 0, cfg.EngineMaxRetries)
	assert.Equal(t, []string{"+", "-"}, cfg.RecipientDelimiters)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, time.Minute, cfg.ListCacheTTL)
}
