// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

const (
	// PS256 is the signature algorithm Heimdall signs with
	signatureAlgorithm = validator.PS256

	defaultIssuer       = "heimdall"
	defaultJWKSURL      = "http://lfx-platform-heimdall.lfx.svc.cluster.local:4457/.well-known/jwks"
	defaultAudience     = "lfx-v2-mailing-list-subscriber-service"
	defaultJWKSCacheTTL = 5 * time.Minute
	allowedClockSkew    = 5 * time.Second
)

// JWTAuthConfig configures bearer token validation.
type JWTAuthConfig struct {
	JWKSURL  string
	Audience string
	Issuer   string
}

// HeimdallClaims carries the principal claim added by the gateway.
type HeimdallClaims struct {
	Principal string `json:"principal"`
	Email     string `json:"email,omitempty"`
}

// Validate implements validator.CustomClaims.
func (c *HeimdallClaims) Validate(context.Context) error {
	if c.Principal == "" {
		return fmt.Errorf("principal claim is required")
	}
	return nil
}

// JWTAuth validates bearer tokens against a JWKS endpoint.
type JWTAuth struct {
	validator *validator.Validator
}

var _ port.Authenticator = (*JWTAuth)(nil)

// NewJWTAuth creates a JWT authenticator, applying defaults for empty fields.
func NewJWTAuth(cfg JWTAuthConfig) (*JWTAuth, error) {
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}
	if cfg.Audience == "" {
		cfg.Audience = defaultAudience
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}

	jwksURL, err := url.Parse(cfg.JWKSURL)
	if err != nil || jwksURL.Scheme == "" || jwksURL.Host == "" {
		return nil, errors.NewValidation(fmt.Sprintf("invalid JWKS URL %q", cfg.JWKSURL), err)
	}
	issuerURL, err := url.Parse(cfg.Issuer)
	if err != nil {
		return nil, errors.NewValidation("invalid issuer", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, defaultJWKSCacheTTL, jwks.WithCustomJWKSURI(jwksURL))

	v, err := validator.New(
		provider.KeyFunc,
		signatureAlgorithm,
		issuerURL.String(),
		[]string{cfg.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &HeimdallClaims{}
		}),
		validator.WithAllowedClockSkew(allowedClockSkew),
	)
	if err != nil {
		return nil, errors.NewValidation("failed to create JWT validator", err)
	}

	return &JWTAuth{validator: v}, nil
}

func bearerToken(header http.Header) (string, bool) {
	value := header.Get(constants.AuthorizationHeader)
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate implements port.Authenticator.
func (j *JWTAuth) Authenticate(ctx context.Context, header http.Header) (string, error) {
	token, ok := bearerToken(header)
	if !ok {
		return "", errors.NewUnauthorized(constants.ErrCodeInvalidCredentials)
	}

	parsed, err := j.validator.ValidateToken(ctx, token)
	if err != nil {
		slog.WarnContext(ctx, "JWT validation failed", "error", err)
		return "", errors.NewUnauthorized(constants.ErrCodeInvalidCredentials, err)
	}

	claims, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		return "", errors.NewUnexpected("unexpected JWT claims type")
	}
	custom, ok := claims.CustomClaims.(*HeimdallClaims)
	if !ok || custom.Principal == "" {
		return "", errors.NewUnauthorized(constants.ErrCodeInvalidCredentials)
	}

	return custom.Principal, nil
}
