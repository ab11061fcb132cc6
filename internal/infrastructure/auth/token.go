// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package auth implements request authenticators.
package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

// TokenPrincipal is the principal of requests authenticated by a static token.
const TokenPrincipal = "api-token"

// TokenAuthConfig configures static API token authentication.
type TokenAuthConfig struct {
	Header string
	Tokens []string
}

// TokenAuth accepts requests carrying one of the configured tokens.
type TokenAuth struct {
	header string
	tokens [][]byte
}

var _ port.Authenticator = (*TokenAuth)(nil)

// NewTokenAuth creates a token authenticator. Blank tokens are ignored and
// at least one token is required.
func NewTokenAuth(cfg TokenAuthConfig) (*TokenAuth, error) {
	header := cfg.Header
	if header == "" {
		header = constants.DefaultAPITokenHeader
	}

	a := &TokenAuth{header: header}
	for _, t := range cfg.Tokens {
		if t = strings.TrimSpace(t); t != "" {
			a.tokens = append(a.tokens, []byte(t))
		}
	}
	if len(a.tokens) == 0 {
		return nil, errors.NewValidation("at least one API token is required")
	}
	return a, nil
}

// Authenticate implements port.Authenticator.
func (a *TokenAuth) Authenticate(ctx context.Context, header http.Header) (string, error) {
	presented := []byte(header.Get(a.header))
	if len(presented) == 0 {
		slog.DebugContext(ctx, "missing API token", "header", a.header)
		return "", errors.NewUnauthorized(constants.ErrCodeInvalidCredentials)
	}

	for _, t := range a.tokens {
		if subtle.ConstantTimeCompare(presented, t) == 1 {
			return TokenPrincipal, nil
		}
	}

	slog.WarnContext(ctx, "rejected API token", "header", a.header)
	return "", errors.NewUnauthorized(constants.ErrCodeInvalidCredentials)
}
