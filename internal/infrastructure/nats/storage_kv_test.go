// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	errs "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

// newJetStreamStorage starts an embedded JetStream server and returns a
// storage bound to a freshly created bucket, seeded with lists.
func newJetStreamStorage(t *testing.T, lists ...string) Storage {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	client, err := NewClient(context.Background(), Config{
		URL:           srv.ClientURL(),
		Timeout:       5 * time.Second,
		MaxReconnect:  0,
		ReconnectWait: 10 * time.Millisecond,
		CreateBuckets: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s := NewStorage(client)
	for _, l := range lists {
		require.NoError(t, s.CreateMailingList(context.Background(), l))
	}
	return s
}

func TestNewClient_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"missing url", Config{Timeout: time.Second}},
		{"malformed url", Config{URL: "not a url", Timeout: time.Second}},
		{"zero timeout", Config{URL: "nats://127.0.0.1:4222"}},
		{"empty bucket name", Config{URL: "nats://127.0.0.1:4222", Timeout: time.Second, Buckets: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tt.config)
			var v errs.Validation
			assert.ErrorAs(t, err, &v)
		})
	}
}

func TestStorageKV_UnknownListIsNoSuchAccount(t *testing.T) {
	s := newJetStreamStorage(t, "dev@example.com")
	ctx := context.Background()
	const missing = "missing@example.com"

	tests := []struct {
		name string
		call func() error
	}{
		{"get", func() error { _, err := s.GetSubscribers(ctx, missing); return err }},
		{"add", func() error { return s.AddSubscribers(ctx, missing, []string{"a@example.com"}, model.ModeNormal, false) }},
		{"remove", func() error { return s.RemoveSubscribers(ctx, missing, []string{"a@example.com"}) }},
		{"remove all", func() error { return s.RemoveAllSubscribers(ctx, missing) }},
		{"has", func() error { _, _, err := s.HasSubscriber(ctx, missing, "a@example.com"); return err }},
		{"confirm", func() error { _, err := s.ConfirmSubscriber(ctx, missing, "a@example.com"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var notFound errs.NotFound
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, "NO_SUCH_ACCOUNT", errs.Message(err))
		})
	}
}

func TestStorageKV_AddAndGet(t *testing.T) {
	s := newJetStreamStorage(t, "dev@example.com")
	ctx := context.Background()

	require.NoError(t, s.AddSubscribers(ctx, "dev@example.com", []string{"bob@example.com", "alice@example.com"}, model.ModeDigest, false))
	require.NoError(t, s.AddSubscribers(ctx, "dev@example.com", []string{"carol@example.com", "bob+ci@example.com"}, model.ModeNormal, false))
	require.NoError(t, s.AddSubscribers(ctx, "dev@example.com", []string{}, model.ModeNoMail, false))

	got, err := s.GetSubscribers(ctx, "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, map[model.SubscriptionMode][]string{
		model.ModeNormal: {"bob+ci@example.com", "carol@example.com"},
		model.ModeDigest: {"alice@example.com", "bob@example.com"},
		model.ModeNoMail: {},
	}, got)

	// re-adding changes the mode in place
	require.NoError(t, s.AddSubscribers(ctx, "dev@example.com", []string{"alice@example.com"}, model.ModeNoMail, false))
	found, mode, err := s.HasSubscriber(ctx, "dev@example.com", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, model.ModeNoMail, mode)
}

func TestStorageKV_PendingUntilConfirmed(t *testing.T) {
	s := newJetStreamStorage(t, "dev@example.com")
	ctx := context.Background()

	require.NoError(t, s.AddSubscribers(ctx, "dev@example.com", []string{"dana@example.com"}, model.ModeDigest, true))

	found, _, err := s.HasSubscriber(ctx, "dev@example.com", "dana@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	got, err := s.GetSubscribers(ctx, "dev@example.com")
	require.NoError(t, err)
	assert.Empty(t, got[model.ModeDigest])

	mode, err := s.ConfirmSubscriber(ctx, "dev@example.com", "dana@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.ModeDigest, mode)

	found, mode, err = s.HasSubscriber(ctx, "dev@example.com", "dana@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, model.ModeDigest, mode)

	// an active member stays active when re-added with confirmation
	require.NoError(t, s.AddSubscribers(ctx, "dev@example.com", []string{"dana@example.com"}, model.ModeNormal, true))
	found, mode, err = s.HasSubscriber(ctx, "dev@example.com", "dana@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, model.ModeNormal, mode)

	_, err = s.ConfirmSubscriber(ctx, "dev@example.com", "nobody@example.com")
	var notFound errs.NotFound
	require.ErrorAs(t, err, &notFound)
	assert.NotEqual(t, "NO_SUCH_ACCOUNT", errs.Message(err))
}

func TestStorageKV_Remove(t *testing.T) {
	s := newJetStreamStorage(t, "dev@example.com", "ops@example.com")
	ctx := context.Background()

	require.NoError(t, s.AddSubscribers(ctx, "dev@example.com", []string{"a@example.com", "a+old@example.com", "b@example.com"}, model.ModeNormal, false))
	require.NoError(t, s.AddSubscribers(ctx, "ops@example.com", []string{"a@example.com"}, model.ModeNormal, false))

	t.Run("absent subscriber succeeds", func(t *testing.T) {
		assert.NoError(t, s.RemoveSubscribers(ctx, "dev@example.com", []string{"nobody@example.com"}))
	})

	t.Run("tagged address is removed alone", func(t *testing.T) {
		require.NoError(t, s.RemoveSubscribers(ctx, "dev@example.com", []string{"a+old@example.com"}))

		found, _, err := s.HasSubscriber(ctx, "dev@example.com", "a+old@example.com")
		require.NoError(t, err)
		assert.False(t, found)

		found, _, err = s.HasSubscriber(ctx, "dev@example.com", "a@example.com")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("remove all only touches its list", func(t *testing.T) {
		require.NoError(t, s.RemoveAllSubscribers(ctx, "dev@example.com"))

		got, err := s.GetSubscribers(ctx, "dev@example.com")
		require.NoError(t, err)
		assert.Empty(t, got[model.ModeNormal])

		found, _, err := s.HasSubscriber(ctx, "ops@example.com", "a@example.com")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("remove all on an empty list succeeds", func(t *testing.T) {
		assert.NoError(t, s.RemoveAllSubscribers(ctx, "dev@example.com"))
	})
}

func TestStorageKV_ListExistingMailLists(t *testing.T) {
	s := newJetStreamStorage(t, "dev@example.com", "announce@example.com", "users@example.org")
	ctx := context.Background()

	tests := []struct {
		name    string
		domains []string
		want    []string
	}{
		{"all lists", nil, []string{"announce@example.com", "dev@example.com", "users@example.org"}},
		{"one domain", []string{"example.com"}, []string{"announce@example.com", "dev@example.com"}},
		{"several domains", []string{"example.org", "example.com"}, []string{"announce@example.com", "dev@example.com", "users@example.org"}},
		{"unknown domain", []string{"example.net"}, []string{}},
		{"no domains", []string{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListExistingMailLists(ctx, tt.domains)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStorageKV_CreateMailingListIsIdempotent(t *testing.T) {
	s := newJetStreamStorage(t, "dev@example.com")
	ctx := context.Background()

	require.NoError(t, s.AddSubscribers(ctx, "dev@example.com", []string{"a@example.com"}, model.ModeDigest, false))
	require.NoError(t, s.CreateMailingList(ctx, "dev@example.com"))

	lists, err := s.ListExistingMailLists(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev@example.com"}, lists)

	found, mode, err := s.HasSubscriber(ctx, "dev@example.com", "a@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, model.ModeDigest, mode)
}
