// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package nats provides the NATS connection, the JetStream KV membership
// backend and the subscription event publisher.
package nats

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Client owns one NATS connection and the KV buckets bound on it.
type Client struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	buckets map[string]jetstream.KeyValue
	timeout time.Duration
}

// NewClient connects to NATS and binds every configured bucket.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if err := validate.Struct(config); err != nil {
		return nil, errs.NewValidation("invalid NATS configuration", err)
	}
	slog.InfoContext(ctx, "connecting to NATS", "url", config.URL, "timeout", config.Timeout)

	conn, err := nats.Connect(config.URL, connectionOptions(ctx, config)...)
	if err != nil {
		return nil, errs.NewServiceUnavailable("failed to connect to NATS", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errs.NewServiceUnavailable("failed to create JetStream context", err)
	}

	client := &Client{
		conn:    conn,
		js:      js,
		buckets: make(map[string]jetstream.KeyValue),
		timeout: config.Timeout,
	}

	names := config.Buckets
	if len(names) == 0 {
		names = []string{constants.KVBucketNameSubscribers}
	}
	for _, name := range names {
		if err := client.bind(ctx, name, config.CreateBuckets); err != nil {
			conn.Close()
			return nil, errs.NewServiceUnavailable("failed to bind NATS key-value bucket", err)
		}
	}

	slog.InfoContext(ctx, "connected to NATS", "connected_url", conn.ConnectedUrl(), "buckets", names)
	return client, nil
}

func connectionOptions(ctx context.Context, config Config) []nats.Option {
	return []nats.Option{
		nats.Name(constants.ServiceName),
		nats.Timeout(config.Timeout),
		nats.MaxReconnects(config.MaxReconnect),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.WarnContext(ctx, "NATS disconnected", "error", err, "status", nc.Status())
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.InfoContext(ctx, "NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			attrs := []any{"error", err}
			if sub != nil {
				attrs = append(attrs, "subject", sub.Subject, "queue", sub.Queue)
			}
			slog.ErrorContext(ctx, "async NATS error", attrs...)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed")
		}),
	}
}

// bind looks up the bucket and, when create is set, provisions it on first
// start. Membership documents only need their latest revision.
func (c *Client) bind(ctx context.Context, name string, create bool) error {
	kv, err := c.js.KeyValue(ctx, name)
	if errors.Is(err, jetstream.ErrBucketNotFound) && create {
		slog.InfoContext(ctx, "creating NATS key-value bucket", "bucket", name)
		kv, err = c.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      name,
			Description: "mailing list membership",
			History:     1,
		})
	}
	if err != nil {
		slog.ErrorContext(ctx, "unable to bind NATS key-value bucket", "bucket", name, "error", err)
		return err
	}
	c.buckets[name] = kv
	return nil
}

// Bucket returns a bound KV bucket, or nil when name was never bound.
func (c *Client) Bucket(name string) jetstream.KeyValue {
	return c.buckets[name]
}

// QueueSubscribe joins queue on subject so replicas share deliveries.
func (c *Client) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	if c.conn == nil || !c.conn.IsConnected() {
		return nil, errs.NewServiceUnavailable("NATS connection not ready")
	}
	return c.conn.QueueSubscribe(subject, queue, handler)
}

// IsReady reports an error unless the connection is up and not draining.
func (c *Client) IsReady(ctx context.Context) error {
	if c.conn == nil {
		return errs.NewServiceUnavailable("NATS client is not initialized")
	}
	if c.conn.IsConnected() && !c.conn.IsDraining() {
		return nil
	}
	slog.WarnContext(ctx, "NATS client is not ready",
		"connected", c.conn.IsConnected(),
		"draining", c.conn.IsDraining(),
	)
	return errs.NewServiceUnavailable("NATS connection is not established or is draining")
}

// Close drains the connection, falling back to a hard close.
func (c *Client) Close() error {
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}
