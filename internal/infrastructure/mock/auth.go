// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
)

const defaultMockPrincipal = "local-dev"

// MockAuthService accepts every request.
type MockAuthService struct{}

// Authenticate returns the principal from AUTH_MOCK_PRINCIPAL, or a fixed
// development principal.
func (m *MockAuthService) Authenticate(ctx context.Context, _ http.Header) (string, error) {
	principal := os.Getenv("AUTH_MOCK_PRINCIPAL")
	if principal == "" {
		principal = defaultMockPrincipal
	}

	slog.DebugContext(ctx, "mock authentication accepted request", "principal", principal)
	return principal, nil
}

// NewMockAuthService creates a new mock authenticator.
func NewMockAuthService() port.Authenticator {
	return &MockAuthService{}
}
