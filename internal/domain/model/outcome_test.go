// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

func TestNewOutcome(t *testing.T) {
	tests := []struct {
		name string
		data any
		err  error
		want Outcome
	}{
		{
			name: "success with data",
			data: []string{"a@example.com"},
			want: Outcome{Success: true, Data: []string{"a@example.com"}},
		},
		{
			name: "success without data",
			want: Outcome{Success: true},
		},
		{
			name: "typed error uses its message",
			data: "ignored",
			err:  errors.NewNotFound("NO_SUCH_ACCOUNT", stderrors.New("list missing")),
			want: Outcome{Message: "NO_SUCH_ACCOUNT"},
		},
		{
			name: "wrapped typed error",
			err:  fmt.Errorf("add stage: %w", errors.NewValidation("INVALID_SUBSCRIBER")),
			want: Outcome{Message: "INVALID_SUBSCRIBER"},
		},
		{
			name: "plain error",
			err:  stderrors.New("boom"),
			want: Outcome{Message: "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewOutcome(tt.data, tt.err))
		})
	}
}

func TestOutcome_MarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{"bare success", Outcome{Success: true}, `{"_success":true}`},
		{"success with data", Outcome{Success: true, Data: []string{"a@example.com"}}, `{"_success":true,"_data":["a@example.com"]}`},
		{"empty list is still data", Outcome{Success: true, Data: []string{}}, `{"_success":true,"_data":[]}`},
		{"failure with message", Outcome{Message: "NO_SUCH_ACCOUNT"}, `{"_success":false,"_msg":"NO_SUCH_ACCOUNT"}`},
		{"bare failure", Outcome{}, `{"_success":false}`},
		{"message ignored on success", Outcome{Success: true, Message: "x"}, `{"_success":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.outcome)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestOutcome_UnmarshalJSON(t *testing.T) {
	var o Outcome
	require.NoError(t, json.Unmarshal([]byte(`{"_success":true,"_data":{"subscribed":true}}`), &o))
	assert.True(t, o.Success)
	assert.JSONEq(t, `{"subscribed":true}`, string(o.Data.(json.RawMessage)))

	o = Outcome{}
	require.NoError(t, json.Unmarshal([]byte(`{"_success":false,"_msg":"NO_SUCH_ACCOUNT"}`), &o))
	assert.False(t, o.Success)
	assert.Equal(t, "NO_SUCH_ACCOUNT", o.Message)
	assert.Nil(t, o.Data)
}
