// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/log"
)

// AuthMiddleware rejects unauthenticated requests with 401 and an
// INVALID_CREDENTIALS envelope. The principal of accepted requests is
// stored in the context.
func AuthMiddleware(authenticator port.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticator.Authenticate(r.Context(), r.Header)
			if err != nil {
				slog.WarnContext(r.Context(), "authentication failed",
					"path", r.URL.Path,
					"error", err,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(model.Outcome{Message: constants.ErrCodeInvalidCredentials})
				return
			}

			ctx := context.WithValue(r.Context(), constants.PrincipalContextID, principal)
			ctx = log.AppendCtx(ctx, slog.String("principal", principal))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
