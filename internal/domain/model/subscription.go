// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/redaction"
)

// SubscriptionMode is the delivery style of a subscription.
type SubscriptionMode string

const (
	// ModeNormal delivers every message individually.
	ModeNormal SubscriptionMode = "normal"
	// ModeDigest delivers periodic digests.
	ModeDigest SubscriptionMode = "digest"
	// ModeNoMail keeps the membership without delivering mail.
	ModeNoMail SubscriptionMode = "nomail"
)

// SubscriptionModes returns the valid modes in canonical order.
func SubscriptionModes() []SubscriptionMode {
	return []SubscriptionMode{ModeNormal, ModeDigest, ModeNoMail}
}

// IsValid reports whether m is one of the known modes.
func (m SubscriptionMode) IsValid() bool {
	switch m {
	case ModeNormal, ModeDigest, ModeNoMail:
		return true
	}
	return false
}

// ResolveMode maps raw input to a mode. Anything that is not an exact match
// of a known mode resolves to ModeNormal.
func ResolveMode(raw string) SubscriptionMode {
	mode := SubscriptionMode(raw)
	if mode.IsValid() {
		return mode
	}
	return ModeNormal
}

// SubscriptionStatus tells whether a record is live or awaiting confirmation.
type SubscriptionStatus string

const (
	// StatusActive records are visible to reads.
	StatusActive SubscriptionStatus = "active"
	// StatusPending records wait for the subscriber to confirm.
	StatusPending SubscriptionStatus = "pending"
)

// SubscriptionRecord is one subscriber's membership of one list.
type SubscriptionRecord struct {
	MailingList  string             `json:"mailing_list"`
	Subscriber   string             `json:"subscriber"`
	Subscription SubscriptionMode   `json:"subscription"`
	Status       SubscriptionStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Active reports whether the record is visible to membership reads.
func (r *SubscriptionRecord) Active() bool {
	return r != nil && r.Status != StatusPending
}

// BuildIndexKey returns the storage key suffix identifying the record,
// "<sha256(list)>.<sha256(subscriber)>".
func (r *SubscriptionRecord) BuildIndexKey(ctx context.Context) string {
	key := HashKey(r.MailingList) + "." + HashKey(r.Subscriber)

	slog.DebugContext(ctx, "subscription index key built",
		"mailing_list", r.MailingList,
		"subscriber", redaction.RedactEmail(r.Subscriber),
		"key", key,
	)

	return key
}

// MailingList is a list known to the backend.
type MailingList struct {
	Address   string    `json:"address"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// BuildIndexKey returns "<sha256(domain)>.<sha256(address)>".
func (l *MailingList) BuildIndexKey() string {
	return HashKey(l.Domain) + "." + HashKey(l.Address)
}

// HashKey hashes a trimmed, lower-cased value into a KV-safe key token.
func HashKey(value string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(value))))
	return hex.EncodeToString(sum[:])
}

// ListMembership is one entry of a subscriber's cross-list lookup.
type ListMembership struct {
	Mail         string           `json:"mail"`
	Subscription SubscriptionMode `json:"subscription"`
}

// MembershipCheck is the result of checking one subscriber against one list.
type MembershipCheck struct {
	Subscribed   bool             `json:"subscribed"`
	Subscription SubscriptionMode `json:"subscription,omitempty"`
}
