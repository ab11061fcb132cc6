// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"strings"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/address"
)

const defaultAggregatorWorkers = 8

// SubscriberReader answers membership queries.
type SubscriberReader interface {
	// GetSubscribers returns the list's subscribers grouped by mode. Every
	// mode is present, possibly with an empty slice.
	GetSubscribers(ctx context.Context, list string) (map[model.SubscriptionMode][]string, error)
	// GetSubscriberAddresses returns the list's subscribers as one sorted set.
	GetSubscriberAddresses(ctx context.Context, list string) ([]string, error)
	// HasSubscriber checks one subscriber against one list.
	HasSubscriber(ctx context.Context, list, subscriber string) (model.MembershipCheck, error)
	// SubscribedLists returns the lists the subscriber belongs to, in the
	// order the backend enumerated them.
	SubscribedLists(ctx context.Context, subscriber string, scopeAllLists bool) ([]model.ListMembership, error)
}

// SubscriberWriter changes list membership from raw API input.
type SubscriberWriter interface {
	AddSubscribers(ctx context.Context, list, rawSubscribers, rawMode string, requireConfirm bool) error
	RemoveSubscribers(ctx context.Context, list, rawSubscribers string) error
	UpdateSubscribers(ctx context.Context, list string, req UpdateRequest) error
	SubscribeToLists(ctx context.Context, subscriber, rawLists, rawMode string, requireConfirm bool) error
}

// UpdateRequest is a combined add and remove against one list. A nil stage
// is skipped.
type UpdateRequest struct {
	Add            *string
	Remove         *string
	Mode           string
	RequireConfirm bool
}

// subscriberOrchestratorOption defines a function type for setting options on the orchestrator
type subscriberOrchestratorOption func(*subscriberOrchestrator)

// WithMembershipBackend sets the backend every operation is delegated to
func WithMembershipBackend(backend port.MembershipBackend) subscriberOrchestratorOption {
	return func(o *subscriberOrchestrator) {
		o.backend = backend
	}
}

// WithMessagePublisher sets the publisher for subscription events
func WithMessagePublisher(publisher port.MessagePublisher) subscriberOrchestratorOption {
	return func(o *subscriberOrchestrator) {
		o.publisher = publisher
	}
}

// WithRecipientDelimiters sets the delimiters used when a tagged address
// (user+tag@domain) is not a member and its base address is tried instead
func WithRecipientDelimiters(delimiters []string) subscriberOrchestratorOption {
	return func(o *subscriberOrchestrator) {
		o.delimiters = delimiters
	}
}

// WithAggregatorWorkers bounds the concurrent membership checks of SubscribedLists
func WithAggregatorWorkers(workers int) subscriberOrchestratorOption {
	return func(o *subscriberOrchestrator) {
		if workers > 0 {
			o.workers = workers
		}
	}
}

type subscriberOrchestrator struct {
	backend    port.MembershipBackend
	publisher  port.MessagePublisher
	delimiters []string
	workers    int
}

// SubscriberOrchestrator combines the read and write sides.
type SubscriberOrchestrator interface {
	SubscriberReader
	SubscriberWriter
}

// NewSubscriberOrchestrator creates an orchestrator using the option pattern.
// The publisher is optional; without it no events are emitted.
func NewSubscriberOrchestrator(opts ...subscriberOrchestratorOption) SubscriberOrchestrator {
	o := &subscriberOrchestrator{
		delimiters: address.DefaultDelimiters,
		workers:    defaultAggregatorWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *subscriberOrchestrator) requireBackend() {
	if o.backend == nil {
		panic("membership backend dependency is required but was not provided")
	}
}

// normalizeList lower-cases a list address taken from a request path.
func normalizeList(list string) string {
	return strings.ToLower(strings.TrimSpace(list))
}

// cleanSubscribers turns raw comma-separated input into the set sent to the
// backend. Invalid tokens are dropped; addresses are otherwise kept as given.
func (o *subscriberOrchestrator) cleanSubscribers(raw string) []string {
	return address.SplitList(raw)
}

// matchCandidates lists the addresses tried, in order, when looking up a
// member: the address itself, then its base address when it carries a tag.
func (o *subscriberOrchestrator) matchCandidates(subscriber string) []string {
	base := address.StripExtension(subscriber, o.delimiters)
	if base == subscriber {
		return []string{subscriber}
	}
	return []string{subscriber, base}
}

// lookup asks the backend for each match candidate until one is a member.
func (o *subscriberOrchestrator) lookup(ctx context.Context, list, subscriber string) (bool, model.SubscriptionMode, error) {
	for _, candidate := range o.matchCandidates(subscriber) {
		found, mode, err := o.backend.HasSubscriber(ctx, list, candidate)
		if err != nil || found {
			return found, mode, err
		}
	}
	return false, "", nil
}
