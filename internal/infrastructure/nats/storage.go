// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/address"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/redaction"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/utils"
)

var (
	_ port.MembershipBackend     = (*storage)(nil)
	_ port.SubscriptionConfirmer = (*storage)(nil)
)

// conflictRetry bounds the read-modify-write loop on concurrent record writes.
var conflictRetry = utils.NewRetryConfig(4, 20*time.Millisecond, 200*time.Millisecond).
	WithRetryable(isRevisionConflict)

type storage struct {
	client *Client
	bucket string
}

func listKey(list string) string {
	l := model.MailingList{Address: list, Domain: address.Domain(list)}
	return constants.KVKeyListPrefix + "." + l.BuildIndexKey()
}

func domainFilter(domain string) string {
	return constants.KVKeyListPrefix + "." + model.HashKey(domain) + ".>"
}

func memberKey(ctx context.Context, list, subscriber string) string {
	r := model.SubscriptionRecord{MailingList: list, Subscriber: subscriber}
	return constants.KVKeyMemberPrefix + "." + r.BuildIndexKey(ctx)
}

func memberFilter(list string) string {
	return constants.KVKeyMemberPrefix + "." + model.HashKey(list) + ".>"
}

// isRevisionConflict matches both a Create on an existing key and an Update
// with a stale revision.
func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

func (s *storage) kv() (jetstream.KeyValue, error) {
	kv := s.client.Bucket(s.bucket)
	if kv == nil {
		return nil, errs.NewServiceUnavailable(constants.ErrCodeBackendUnavailable)
	}
	return kv, nil
}

func (s *storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.client.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.client.timeout)
}

func unavailable(ctx context.Context, msg string, err error, args ...any) error {
	slog.ErrorContext(ctx, msg, append([]any{"error", err}, args...)...)
	return errs.NewServiceUnavailable(constants.ErrCodeBackendUnavailable, err)
}

// getList loads a list definition; a missing key is NO_SUCH_ACCOUNT.
func (s *storage) getList(ctx context.Context, kv jetstream.KeyValue, list string) (*model.MailingList, error) {
	entry, err := kv.Get(ctx, listKey(list))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			slog.DebugContext(ctx, "mailing list not found", "mailing_list", list)
			return nil, errs.NewNotFound(constants.ErrCodeNoSuchAccount)
		}
		return nil, unavailable(ctx, "failed to get mailing list", err, "mailing_list", list)
	}

	ml := &model.MailingList{}
	if err := json.Unmarshal(entry.Value(), ml); err != nil {
		return nil, errs.NewUnexpected("failed to decode mailing list", err)
	}
	return ml, nil
}

// getRecord returns the record and its revision, or nil when absent.
func (s *storage) getRecord(ctx context.Context, kv jetstream.KeyValue, key string) (*model.SubscriptionRecord, uint64, error) {
	entry, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	record := &model.SubscriptionRecord{}
	if err := json.Unmarshal(entry.Value(), record); err != nil {
		return nil, 0, errs.NewUnexpected("failed to decode subscription record", err)
	}
	return record, entry.Revision(), nil
}

// keys lists the keys matching filter. No match is an empty result.
func (s *storage) keys(ctx context.Context, kv jetstream.KeyValue, filter string) ([]string, error) {
	lister, err := kv.ListKeysFiltered(ctx, filter)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *storage) memberRecords(ctx context.Context, kv jetstream.KeyValue, list string) ([]*model.SubscriptionRecord, error) {
	keys, err := s.keys(ctx, kv, memberFilter(list))
	if err != nil {
		return nil, err
	}

	records := make([]*model.SubscriptionRecord, 0, len(keys))
	for _, key := range keys {
		record, _, err := s.getRecord(ctx, kv, key)
		if err != nil {
			return nil, err
		}
		// deleted between listing and reading
		if record == nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// GetSubscribers returns the active subscribers grouped by mode, sorted.
func (s *storage) GetSubscribers(ctx context.Context, list string) (map[model.SubscriptionMode][]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	kv, err := s.kv()
	if err != nil {
		return nil, err
	}
	if _, err := s.getList(ctx, kv, list); err != nil {
		return nil, err
	}

	records, err := s.memberRecords(ctx, kv, list)
	if err != nil {
		return nil, unavailable(ctx, "failed to list subscribers", err, "mailing_list", list)
	}

	result := make(map[model.SubscriptionMode][]string)
	for _, mode := range model.SubscriptionModes() {
		result[mode] = []string{}
	}
	for _, r := range records {
		if r.Active() {
			result[r.Subscription] = append(result[r.Subscription], r.Subscriber)
		}
	}
	for mode := range result {
		sort.Strings(result[mode])
	}

	slog.DebugContext(ctx, "nats storage: subscribers retrieved",
		"mailing_list", list,
		"records", len(records),
	)
	return result, nil
}

// AddSubscribers creates or updates one record per subscriber. An active
// record stays active when re-added with confirmation required.
func (s *storage) AddSubscribers(ctx context.Context, list string, subscribers []string, mode model.SubscriptionMode, requireConfirm bool) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	kv, err := s.kv()
	if err != nil {
		return err
	}
	if _, err := s.getList(ctx, kv, list); err != nil {
		return err
	}

	for _, subscriber := range subscribers {
		key := memberKey(ctx, list, subscriber)
		err := utils.RetryWithExponentialBackoff(ctx, conflictRetry, func() error {
			return s.upsertRecord(ctx, kv, key, list, subscriber, mode, requireConfirm)
		})
		if err != nil {
			return unavailable(ctx, "failed to store subscription", err,
				"mailing_list", list,
				"subscriber", redaction.RedactEmail(subscriber),
			)
		}
	}

	slog.DebugContext(ctx, "nats storage: subscribers added",
		"mailing_list", list,
		"count", len(subscribers),
		"subscription", mode,
	)
	return nil
}

func (s *storage) upsertRecord(ctx context.Context, kv jetstream.KeyValue, key, list, subscriber string, mode model.SubscriptionMode, requireConfirm bool) error {
	existing, revision, err := s.getRecord(ctx, kv, key)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	record := &model.SubscriptionRecord{
		MailingList:  list,
		Subscriber:   subscriber,
		Subscription: mode,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
	}
	if requireConfirm && !existing.Active() {
		record.Status = model.StatusPending
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errs.NewUnexpected("failed to encode subscription record", err)
	}

	if existing == nil {
		_, err = kv.Create(ctx, key, data)
		return err
	}
	_, err = kv.Update(ctx, key, data, revision)
	return err
}

// RemoveSubscribers deletes the records of subscribers. Deleting an absent
// key succeeds.
func (s *storage) RemoveSubscribers(ctx context.Context, list string, subscribers []string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	kv, err := s.kv()
	if err != nil {
		return err
	}
	if _, err := s.getList(ctx, kv, list); err != nil {
		return err
	}

	for _, subscriber := range subscribers {
		if err := kv.Delete(ctx, memberKey(ctx, list, subscriber)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return unavailable(ctx, "failed to remove subscriber", err,
				"mailing_list", list,
				"subscriber", redaction.RedactEmail(subscriber),
			)
		}
	}
	return nil
}

// RemoveAllSubscribers deletes every record of list.
func (s *storage) RemoveAllSubscribers(ctx context.Context, list string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	kv, err := s.kv()
	if err != nil {
		return err
	}
	if _, err := s.getList(ctx, kv, list); err != nil {
		return err
	}

	keys, err := s.keys(ctx, kv, memberFilter(list))
	if err != nil {
		return unavailable(ctx, "failed to list subscribers", err, "mailing_list", list)
	}
	for _, key := range keys {
		if err := kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return unavailable(ctx, "failed to remove subscriber", err, "mailing_list", list)
		}
	}

	slog.DebugContext(ctx, "nats storage: all subscribers removed", "mailing_list", list, "count", len(keys))
	return nil
}

// HasSubscriber reports whether an active record exists.
func (s *storage) HasSubscriber(ctx context.Context, list, subscriber string) (bool, model.SubscriptionMode, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	kv, err := s.kv()
	if err != nil {
		return false, "", err
	}
	if _, err := s.getList(ctx, kv, list); err != nil {
		return false, "", err
	}

	record, _, err := s.getRecord(ctx, kv, memberKey(ctx, list, subscriber))
	if err != nil {
		return false, "", unavailable(ctx, "failed to get subscription", err, "mailing_list", list)
	}
	if !record.Active() {
		return false, "", nil
	}
	return true, record.Subscription, nil
}

// ListExistingMailLists returns the sorted addresses of the lists under
// domains, or of every list when domains is nil.
func (s *storage) ListExistingMailLists(ctx context.Context, domains []string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	kv, err := s.kv()
	if err != nil {
		return nil, err
	}

	filters := []string{constants.KVKeyListPrefix + ".>"}
	if domains != nil {
		filters = filters[:0]
		for _, d := range domains {
			filters = append(filters, domainFilter(d))
		}
	}

	lists := []string{}
	for _, filter := range filters {
		keys, err := s.keys(ctx, kv, filter)
		if err != nil {
			return nil, unavailable(ctx, "failed to list mailing lists", err, "filter", filter)
		}
		for _, key := range keys {
			entry, err := kv.Get(ctx, key)
			if err != nil {
				if errors.Is(err, jetstream.ErrKeyNotFound) {
					continue
				}
				return nil, unavailable(ctx, "failed to get mailing list", err, "key", key)
			}
			var ml model.MailingList
			if err := json.Unmarshal(entry.Value(), &ml); err != nil {
				return nil, errs.NewUnexpected("failed to decode mailing list", err)
			}
			lists = append(lists, ml.Address)
		}
	}

	sort.Strings(lists)
	return lists, nil
}

// ConfirmSubscriber activates a pending record.
func (s *storage) ConfirmSubscriber(ctx context.Context, list, subscriber string) (model.SubscriptionMode, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	kv, err := s.kv()
	if err != nil {
		return "", err
	}
	if _, err := s.getList(ctx, kv, list); err != nil {
		return "", err
	}

	key := memberKey(ctx, list, subscriber)
	var mode model.SubscriptionMode
	err = utils.RetryWithExponentialBackoff(ctx, conflictRetry, func() error {
		record, revision, err := s.getRecord(ctx, kv, key)
		if err != nil {
			return err
		}
		if record == nil {
			return errs.NewNotFound("subscription not found")
		}
		mode = record.Subscription
		if record.Active() {
			return nil
		}

		record.Status = model.StatusActive
		record.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(record)
		if err != nil {
			return errs.NewUnexpected("failed to encode subscription record", err)
		}
		_, err = kv.Update(ctx, key, data, revision)
		return err
	})
	if err != nil {
		var notFound errs.NotFound
		if errors.As(err, &notFound) {
			return "", notFound
		}
		return "", unavailable(ctx, "failed to confirm subscription", err, "mailing_list", list)
	}
	return mode, nil
}

// CreateMailingList registers a list so subscriptions can be attached to it.
// An existing list is left untouched.
func (s *storage) CreateMailingList(ctx context.Context, list string) error {
	kv, err := s.kv()
	if err != nil {
		return err
	}

	data, err := json.Marshal(model.MailingList{
		Address:   list,
		Domain:    address.Domain(list),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return errs.NewUnexpected("failed to encode mailing list", err)
	}

	if _, err := kv.Create(ctx, listKey(list), data); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return nil
		}
		return unavailable(ctx, "failed to create mailing list", err, "mailing_list", list)
	}
	return nil
}

// IsReady checks the underlying connection.
func (s *storage) IsReady(ctx context.Context) error {
	return s.client.IsReady(ctx)
}

// Storage is the JetStream KV membership backend.
type Storage interface {
	port.MembershipBackend
	port.SubscriptionConfirmer
	port.ListProvisioner
}

// NewStorage creates the KV backend on the subscribers bucket.
func NewStorage(client *Client) Storage {
	return &storage{
		client: client,
		bucket: constants.KVBucketNameSubscribers,
	}
}
