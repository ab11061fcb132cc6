// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package httpclient

import "net/http"

// HeaderRoundTripper sets a fixed header on every request, typically an API token.
type HeaderRoundTripper struct {
	Name  string
	Value string
}

// RoundTrip implements RoundTripper.
func (h HeaderRoundTripper) RoundTrip(req *http.Request, next func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	if h.Value != "" {
		req = req.Clone(req.Context())
		req.Header.Set(h.Name, h.Value)
	}
	return next(req)
}
