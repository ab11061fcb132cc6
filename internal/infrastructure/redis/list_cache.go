// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package redis caches backend list enumerations in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

// DefaultTTL is used when the configured TTL is not positive.
const DefaultTTL = 30 * time.Second

// ListCache wraps a backend and serves ListExistingMailLists from Redis.
// Every other call goes straight to the backend.
type ListCache struct {
	port.MembershipBackend
	rdb *goredis.Client
	ttl time.Duration
}

// NewListCache decorates backend with a Redis cache.
func NewListCache(backend port.MembershipBackend, rdb *goredis.Client, ttl time.Duration) *ListCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ListCache{MembershipBackend: backend, rdb: rdb, ttl: ttl}
}

// cacheKey is independent of domain order and case.
func cacheKey(domains []string) string {
	if domains == nil {
		return constants.RedisKeyExistingListsPrefix + "*"
	}
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(d)))
	}
	sort.Strings(normalized)
	return constants.RedisKeyExistingListsPrefix + model.HashKey(strings.Join(normalized, ","))
}

// ListExistingMailLists returns cached results when present. Redis failures
// are logged and the backend is used instead.
func (c *ListCache) ListExistingMailLists(ctx context.Context, domains []string) ([]string, error) {
	key := cacheKey(domains)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var lists []string
		if jsonErr := json.Unmarshal(cached, &lists); jsonErr == nil && lists != nil {
			slog.DebugContext(ctx, "list cache hit", "key", key, "count", len(lists))
			return lists, nil
		}
		slog.WarnContext(ctx, "discarding malformed list cache entry", "key", key)
	case !errors.Is(err, goredis.Nil):
		slog.WarnContext(ctx, "list cache unavailable, using backend", "error", err)
	}

	lists, err := c.MembershipBackend.ListExistingMailLists(ctx, domains)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(lists)
	if err == nil {
		err = c.rdb.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to populate list cache", "key", key, "error", err)
	}
	return lists, nil
}

// ConfirmSubscriber forwards to the backend when it supports confirmation.
func (c *ListCache) ConfirmSubscriber(ctx context.Context, list, subscriber string) (model.SubscriptionMode, error) {
	confirmer, ok := c.MembershipBackend.(port.SubscriptionConfirmer)
	if !ok {
		return "", errs.NewUnexpected("backend does not support subscription confirmation")
	}
	return confirmer.ConfirmSubscriber(ctx, list, subscriber)
}

// CreateMailingList forwards to the backend when it keeps a list registry,
// then drops every cached enumeration.
func (c *ListCache) CreateMailingList(ctx context.Context, list string) error {
	provisioner, ok := c.MembershipBackend.(port.ListProvisioner)
	if !ok {
		return errs.NewUnexpected("backend does not support list provisioning")
	}
	if err := provisioner.CreateMailingList(ctx, list); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// invalidate deletes all keys under the enumeration prefix. There is one key
// per distinct domain set.
func (c *ListCache) invalidate(ctx context.Context) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, constants.RedisKeyExistingListsPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.WarnContext(ctx, "failed to scan list cache", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.WarnContext(ctx, "failed to invalidate list cache", "error", err, "keys", len(keys))
	}
}

// IsReady reports the backend's readiness. An unreachable Redis only
// degrades caching and is logged.
func (c *ListCache) IsReady(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		slog.WarnContext(ctx, "list cache ping failed", "error", err)
	}
	return c.MembershipBackend.IsReady(ctx)
}
