// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package mock provides in-memory implementations of the service ports for
// tests and local runs.
package mock

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/address"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

var (
	_ port.MembershipBackend     = (*MockMembershipBackend)(nil)
	_ port.SubscriptionConfirmer = (*MockMembershipBackend)(nil)
)

// Call records one backend invocation.
type Call struct {
	Operation      string
	List           string
	Subscribers    []string
	Mode           model.SubscriptionMode
	RequireConfirm bool
}

// MockMembershipBackend keeps lists and subscriptions in memory.
type MockMembershipBackend struct {
	mu      sync.RWMutex
	lists   map[string]*model.MailingList                    // address -> list
	records map[string]map[string]*model.SubscriptionRecord // list -> subscriber -> record
	calls   []Call

	// error simulation; precedence is global, then operation, then list
	globalError     error
	operationErrors map[string]error
	listErrors      map[string]error
	delays          map[string]time.Duration
}

// NewMockMembershipBackend creates an empty backend.
func NewMockMembershipBackend() *MockMembershipBackend {
	return &MockMembershipBackend{
		lists:           make(map[string]*model.MailingList),
		records:         make(map[string]map[string]*model.SubscriptionRecord),
		operationErrors: make(map[string]error),
		listErrors:      make(map[string]error),
		delays:          make(map[string]time.Duration),
	}
}

// NewSampleMembershipBackend creates a backend seeded with a few lists so a
// locally started service has something to answer with.
func NewSampleMembershipBackend() *MockMembershipBackend {
	m := NewMockMembershipBackend()
	m.AddList("announce@example.com")
	m.AddList("dev@example.com")
	m.AddList("users@example.org")
	m.AddRecord(&model.SubscriptionRecord{MailingList: "announce@example.com", Subscriber: "alice@example.com", Subscription: model.ModeNormal})
	m.AddRecord(&model.SubscriptionRecord{MailingList: "dev@example.com", Subscriber: "alice@example.com", Subscription: model.ModeDigest})
	m.AddRecord(&model.SubscriptionRecord{MailingList: "dev@example.com", Subscriber: "bob@example.com", Subscription: model.ModeNoMail})
	return m
}

// AddList registers a list.
func (m *MockMembershipBackend) AddList(list string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list = strings.ToLower(list)
	m.lists[list] = &model.MailingList{Address: list, Domain: address.Domain(list), CreatedAt: time.Now()}
	if m.records[list] == nil {
		m.records[list] = make(map[string]*model.SubscriptionRecord)
	}
}

// DeleteList drops a list and its records.
func (m *MockMembershipBackend) DeleteList(list string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, list)
	delete(m.records, list)
}

// AddRecord stores a record directly, registering its list if needed.
// An empty status is stored as active.
func (m *MockMembershipBackend) AddRecord(record *model.SubscriptionRecord) {
	if _, ok := m.list(record.MailingList); !ok {
		m.AddList(record.MailingList)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := *record
	if r.Status == "" {
		r.Status = model.StatusActive
	}
	m.records[r.MailingList][r.Subscriber] = &r
}

// Record returns a copy of the stored record, pending or not.
func (m *MockMembershipBackend) Record(list, subscriber string) (*model.SubscriptionRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[list][subscriber]
	if !ok {
		return nil, false
	}
	c := *r
	return &c, true
}

// Calls returns the recorded invocations in order.
func (m *MockMembershipBackend) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.calls)
}

// SetGlobalError makes every operation fail with err.
func (m *MockMembershipBackend) SetGlobalError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalError = err
}

// SetErrorForOperation makes the named operation fail with err.
func (m *MockMembershipBackend) SetErrorForOperation(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationErrors[operation] = err
}

// SetErrorForList makes every operation on list fail with err.
func (m *MockMembershipBackend) SetErrorForList(list string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErrors[list] = err
}

// SetDelayForList delays HasSubscriber on list.
func (m *MockMembershipBackend) SetDelayForList(list string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[list] = d
}

// ClearErrorSimulation removes every simulated error and delay.
func (m *MockMembershipBackend) ClearErrorSimulation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalError = nil
	m.operationErrors = make(map[string]error)
	m.listErrors = make(map[string]error)
	m.delays = make(map[string]time.Duration)
}

func (m *MockMembershipBackend) simulatedError(operation, list string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.globalError != nil {
		return m.globalError
	}
	if err, ok := m.operationErrors[operation]; ok {
		return err
	}
	if err, ok := m.listErrors[list]; ok {
		return err
	}
	return nil
}

func (m *MockMembershipBackend) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Subscribers = slices.Clone(c.Subscribers)
	m.calls = append(m.calls, c)
}

func (m *MockMembershipBackend) list(list string) (*model.MailingList, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lists[list]
	return l, ok
}

func noSuchAccount() error {
	return errors.NewNotFound(constants.ErrCodeNoSuchAccount)
}

// begin records the call and returns a simulated or missing-list error.
func (m *MockMembershipBackend) begin(c Call) error {
	m.record(c)
	if err := m.simulatedError(c.Operation, c.List); err != nil {
		return err
	}
	if _, ok := m.list(c.List); !ok {
		return noSuchAccount()
	}
	return nil
}

// GetSubscribers returns active subscribers grouped by mode, sorted.
func (m *MockMembershipBackend) GetSubscribers(ctx context.Context, list string) (map[model.SubscriptionMode][]string, error) {
	if err := m.begin(Call{Operation: "GetSubscribers", List: list}); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[model.SubscriptionMode][]string)
	for _, mode := range model.SubscriptionModes() {
		result[mode] = []string{}
	}
	for subscriber, r := range m.records[list] {
		if r.Active() {
			result[r.Subscription] = append(result[r.Subscription], subscriber)
		}
	}
	for mode := range result {
		sort.Strings(result[mode])
	}

	return result, nil
}

// AddSubscribers enrolls subscribers, replacing the mode of existing ones.
func (m *MockMembershipBackend) AddSubscribers(ctx context.Context, list string, subscribers []string, mode model.SubscriptionMode, requireConfirm bool) error {
	err := m.begin(Call{Operation: "AddSubscribers", List: list, Subscribers: subscribers, Mode: mode, RequireConfirm: requireConfirm})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for _, s := range subscribers {
		status := model.StatusActive
		existing, ok := m.records[list][s]
		if requireConfirm && !(ok && existing.Active()) {
			status = model.StatusPending
		}
		created := now
		if ok {
			created = existing.CreatedAt
		}
		m.records[list][s] = &model.SubscriptionRecord{
			MailingList:  list,
			Subscriber:   s,
			Subscription: mode,
			Status:       status,
			CreatedAt:    created,
			UpdatedAt:    now,
		}
	}

	slog.DebugContext(ctx, "mock subscribers added", "mailing_list", list, "count", len(subscribers))
	return nil
}

// RemoveSubscribers deletes the given subscribers; absent ones are ignored.
func (m *MockMembershipBackend) RemoveSubscribers(ctx context.Context, list string, subscribers []string) error {
	if err := m.begin(Call{Operation: "RemoveSubscribers", List: list, Subscribers: subscribers}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range subscribers {
		delete(m.records[list], s)
	}
	return nil
}

// RemoveAllSubscribers empties the list.
func (m *MockMembershipBackend) RemoveAllSubscribers(ctx context.Context, list string) error {
	if err := m.begin(Call{Operation: "RemoveAllSubscribers", List: list}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[list] = make(map[string]*model.SubscriptionRecord)
	return nil
}

// HasSubscriber reports whether subscriber is an active member of list.
func (m *MockMembershipBackend) HasSubscriber(ctx context.Context, list, subscriber string) (bool, model.SubscriptionMode, error) {
	if err := m.begin(Call{Operation: "HasSubscriber", List: list, Subscribers: []string{subscriber}}); err != nil {
		return false, "", err
	}

	m.mu.RLock()
	delay := m.delays[list]
	m.mu.RUnlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, "", ctx.Err()
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[list][subscriber]
	if !ok || !r.Active() {
		return false, "", nil
	}
	return true, r.Subscription, nil
}

// ListExistingMailLists returns the sorted addresses of lists under domains,
// or every list when domains is nil.
func (m *MockMembershipBackend) ListExistingMailLists(ctx context.Context, domains []string) ([]string, error) {
	m.record(Call{Operation: "ListExistingMailLists", Subscribers: domains})
	if err := m.simulatedError("ListExistingMailLists", ""); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	lists := []string{}
	for addr, l := range m.lists {
		if domains == nil || slices.Contains(domains, l.Domain) {
			lists = append(lists, addr)
		}
	}
	sort.Strings(lists)
	return lists, nil
}

// ConfirmSubscriber activates a pending record.
func (m *MockMembershipBackend) ConfirmSubscriber(ctx context.Context, list, subscriber string) (model.SubscriptionMode, error) {
	if err := m.begin(Call{Operation: "ConfirmSubscriber", List: list, Subscribers: []string{subscriber}}); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[list][subscriber]
	if !ok {
		return "", errors.NewNotFound("subscription not found")
	}
	r.Status = model.StatusActive
	r.UpdatedAt = time.Now().UTC()
	return r.Subscription, nil
}

// IsReady fails only when a global or IsReady error is simulated.
func (m *MockMembershipBackend) IsReady(ctx context.Context) error {
	return m.simulatedError("IsReady", "")
}

// CreateMailingList implements port.ListProvisioner.
func (m *MockMembershipBackend) CreateMailingList(ctx context.Context, list string) error {
	if err := m.simulatedError("CreateMailingList", list); err != nil {
		return err
	}
	if _, ok := m.list(list); !ok {
		m.AddList(list)
	}
	return nil
}
