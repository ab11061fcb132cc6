// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

func TestErrorSimulation(t *testing.T) {
	ctx := context.Background()

	t.Run("list error simulation", func(t *testing.T) {
		backend := NewMockMembershipBackend()
		backend.AddList("dev@example.com")

		expectedErr := pkgerrors.NewServiceUnavailable("simulated outage")
		backend.SetErrorForList("dev@example.com", expectedErr)

		_, err := backend.GetSubscribers(ctx, "dev@example.com")
		require.Error(t, err)
		assert.True(t, errors.Is(err, expectedErr))
	})

	t.Run("operation error simulation", func(t *testing.T) {
		backend := NewMockMembershipBackend()
		backend.AddList("dev@example.com")

		expectedErr := pkgerrors.NewConflict("simulated conflict")
		backend.SetErrorForOperation("AddSubscribers", expectedErr)

		err := backend.AddSubscribers(ctx, "dev@example.com", []string{"a@example.com"}, "normal", false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, expectedErr))

		_, err = backend.GetSubscribers(ctx, "dev@example.com")
		assert.NoError(t, err, "other operations are unaffected")
	})

	t.Run("global error takes precedence", func(t *testing.T) {
		backend := NewMockMembershipBackend()
		listErr := pkgerrors.NewNotFound("list error")
		globalErr := pkgerrors.NewUnexpected("global error")

		backend.SetErrorForList("dev@example.com", listErr)
		backend.SetGlobalError(globalErr)

		_, _, err := backend.HasSubscriber(ctx, "dev@example.com", "a@example.com")
		require.Error(t, err)
		assert.True(t, errors.Is(err, globalErr))
		assert.False(t, errors.Is(err, listErr))
		assert.Error(t, backend.IsReady(ctx))
	})

	t.Run("operation error over list error", func(t *testing.T) {
		backend := NewMockMembershipBackend()
		listErr := pkgerrors.NewNotFound("list error")
		operationErr := pkgerrors.NewConflict("operation error")

		backend.SetErrorForList("dev@example.com", listErr)
		backend.SetErrorForOperation("RemoveSubscribers", operationErr)

		err := backend.RemoveSubscribers(ctx, "dev@example.com", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, operationErr))
	})

	t.Run("clear error simulation", func(t *testing.T) {
		backend := NewMockMembershipBackend()
		backend.SetGlobalError(pkgerrors.NewUnexpected("global error"))
		backend.ClearErrorSimulation()

		_, err := backend.GetSubscribers(ctx, "missing@example.com")
		require.Error(t, err)
		var notFound pkgerrors.NotFound
		assert.True(t, errors.As(err, &notFound))
		assert.Equal(t, "NO_SUCH_ACCOUNT", err.Error())
	})
}
