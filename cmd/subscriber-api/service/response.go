// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
)

// writeOutcome renders the result envelope. Handled outcomes, failures
// included, use status 200.
func writeOutcome(w http.ResponseWriter, r *http.Request, operation string, data any, err error) {
	if err != nil {
		logError(r.Context(), operation, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if encErr := json.NewEncoder(w).Encode(model.NewOutcome(data, err)); encErr != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "operation", operation, "error", encErr)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
