// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
)

func TestMockMembershipBackend_AddAndRead(t *testing.T) {
	ctx := context.Background()
	backend := NewMockMembershipBackend()
	backend.AddList("dev@example.com")

	require.NoError(t, backend.AddSubscribers(ctx, "dev@example.com", []string{"b@example.com", "a@example.com"}, model.ModeDigest, false))
	require.NoError(t, backend.AddSubscribers(ctx, "dev@example.com", []string{"c@example.com"}, model.ModeNormal, false))

	got, err := backend.GetSubscribers(ctx, "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, map[model.SubscriptionMode][]string{
		model.ModeNormal: {"c@example.com"},
		model.ModeDigest: {"a@example.com", "b@example.com"},
		model.ModeNoMail: {},
	}, got)

	ok, mode, err := backend.HasSubscriber(ctx, "dev@example.com", "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.ModeDigest, mode)
}

func TestMockMembershipBackend_PendingUntilConfirmed(t *testing.T) {
	ctx := context.Background()
	backend := NewMockMembershipBackend()
	backend.AddList("dev@example.com")

	require.NoError(t, backend.AddSubscribers(ctx, "dev@example.com", []string{"a@example.com"}, model.ModeNoMail, true))

	ok, _, err := backend.HasSubscriber(ctx, "dev@example.com", "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok, "pending records are invisible")

	mode, err := backend.ConfirmSubscriber(ctx, "dev@example.com", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.ModeNoMail, mode)

	ok, _, err = backend.HasSubscriber(ctx, "dev@example.com", "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMockMembershipBackend_RemoveAbsentAndAll(t *testing.T) {
	ctx := context.Background()
	backend := NewSampleMembershipBackend()

	require.NoError(t, backend.RemoveSubscribers(ctx, "dev@example.com", []string{"nobody@example.com"}))
	require.NoError(t, backend.RemoveAllSubscribers(ctx, "dev@example.com"))

	got, err := backend.GetSubscribers(ctx, "dev@example.com")
	require.NoError(t, err)
	for _, subscribers := range got {
		assert.Empty(t, subscribers)
	}
}

func TestMockMembershipBackend_ListExistingMailLists(t *testing.T) {
	ctx := context.Background()
	backend := NewSampleMembershipBackend()

	all, err := backend.ListExistingMailLists(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"announce@example.com", "dev@example.com", "users@example.org"}, all)

	scoped, err := backend.ListExistingMailLists(ctx, []string{"example.org"})
	require.NoError(t, err)
	assert.Equal(t, []string{"users@example.org"}, scoped)

	none, err := backend.ListExistingMailLists(ctx, []string{"nowhere.net"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMockMembershipBackend_RecordsCalls(t *testing.T) {
	ctx := context.Background()
	backend := NewMockMembershipBackend()
	backend.AddList("dev@example.com")

	require.NoError(t, backend.AddSubscribers(ctx, "dev@example.com", []string{}, model.ModeNormal, true))

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "AddSubscribers", calls[0].Operation)
	assert.Empty(t, calls[0].Subscribers)
	assert.True(t, calls[0].RequireConfirm)
}
