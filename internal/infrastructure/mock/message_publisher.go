// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
)

var _ port.MessagePublisher = (*MockMessagePublisher)(nil)

// MockMessagePublisher keeps published events in memory.
type MockMessagePublisher struct {
	mu     sync.Mutex
	events []*model.SubscriptionEvent
	err    error
}

// NewMockMessagePublisher creates a publisher that records every event.
func NewMockMessagePublisher() *MockMessagePublisher {
	return &MockMessagePublisher{}
}

// Subscription records event, or fails with the configured error.
func (m *MockMessagePublisher) Subscription(ctx context.Context, event *model.SubscriptionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)

	slog.DebugContext(ctx, "mock subscription event published",
		"subject", event.Action.Subject(),
		"mailing_list", event.MailingList,
	)
	return nil
}

// SetError makes subsequent publishes fail.
func (m *MockMessagePublisher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Events returns what was published so far.
func (m *MockMessagePublisher) Events() []*model.SubscriptionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}
