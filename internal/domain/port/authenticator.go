// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials carried by an API request and
// returns the authenticated principal.
type Authenticator interface {
	Authenticate(ctx context.Context, header http.Header) (string, error)
}
