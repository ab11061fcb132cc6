// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

// Outcome is the result envelope of every API operation.
// Data is set only on success and Message only on failure.
type Outcome struct {
	Success bool
	Data    any
	Message string
}

// NewOutcome builds the envelope from an operation's payload and error.
func NewOutcome(data any, err error) Outcome {
	if err != nil {
		return Outcome{Message: errors.Message(err)}
	}
	return Outcome{Success: true, Data: data}
}

// MarshalJSON renders {"_success": ..., "_data"|"_msg": ...}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	body := map[string]any{"_success": o.Success}
	if o.Success && o.Data != nil {
		body["_data"] = o.Data
	}
	if !o.Success && o.Message != "" {
		body["_msg"] = o.Message
	}
	return json.Marshal(body)
}

// UnmarshalJSON accepts the same envelope, leaving Data as raw JSON.
func (o *Outcome) UnmarshalJSON(b []byte) error {
	var wire struct {
		Success bool            `json:"_success"`
		Data    json.RawMessage `json:"_data"`
		Message string          `json:"_msg"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	o.Success = wire.Success
	o.Message = wire.Message
	o.Data = nil
	if len(wire.Data) > 0 {
		o.Data = wire.Data
	}
	return nil
}
