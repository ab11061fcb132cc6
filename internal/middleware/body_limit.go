// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
)

// DefaultBodyLimit caps form submissions to 1MB.
const DefaultBodyLimit int64 = 1 << 20

// BodyLimitMiddleware limits the size of request bodies so form parsing
// cannot exhaust memory. Reads past the limit fail and the handler reports
// the error.
func BodyLimitMiddleware(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
