// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package postgres implements the membership backend on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/model"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/domain/port"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/address"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
	errs "github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/errors"
)

var (
	_ port.MembershipBackend     = (*Storage)(nil)
	_ port.SubscriptionConfirmer = (*Storage)(nil)
)

// Schema creates the tables used by Storage.
const Schema = `
CREATE TABLE IF NOT EXISTS mailing_lists (
	address    TEXT PRIMARY KEY,
	domain     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS mailing_lists_domain_idx ON mailing_lists (domain);

CREATE TABLE IF NOT EXISTS mailing_list_subscribers (
	list_address TEXT NOT NULL REFERENCES mailing_lists (address) ON DELETE CASCADE,
	subscriber   TEXT NOT NULL,
	subscription TEXT NOT NULL DEFAULT 'normal',
	status       TEXT NOT NULL DEFAULT 'active',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (list_address, subscriber)
);`

const (
	queryListExists = `SELECT EXISTS (SELECT 1 FROM mailing_lists WHERE address = $1)`

	querySubscribers = `SELECT subscriber, subscription FROM mailing_list_subscribers
WHERE list_address = $1 AND status = 'active' ORDER BY subscriber`

	queryUpsertSubscribers = `INSERT INTO mailing_list_subscribers
	(list_address, subscriber, subscription, status, created_at, updated_at)
SELECT $1, s, $3, $4, $5, $5 FROM unnest($2::text[]) AS s
ON CONFLICT (list_address, subscriber) DO UPDATE SET
	subscription = EXCLUDED.subscription,
	status = CASE WHEN mailing_list_subscribers.status = 'active' THEN 'active' ELSE EXCLUDED.status END,
	updated_at = EXCLUDED.updated_at`

	queryRemoveSubscribers = `DELETE FROM mailing_list_subscribers WHERE list_address = $1 AND subscriber = ANY($2)`

	queryRemoveAll = `DELETE FROM mailing_list_subscribers WHERE list_address = $1`

	queryHasSubscriber = `SELECT subscription FROM mailing_list_subscribers
WHERE list_address = $1 AND subscriber = $2 AND status = 'active'`

	queryAllLists = `SELECT address FROM mailing_lists ORDER BY address`

	queryListsByDomain = `SELECT address FROM mailing_lists WHERE domain = ANY($1) ORDER BY address`

	queryConfirm = `UPDATE mailing_list_subscribers SET status = 'active', updated_at = $3
WHERE list_address = $1 AND subscriber = $2 RETURNING subscription`

	queryCreateList = `INSERT INTO mailing_lists (address, domain) VALUES ($1, $2) ON CONFLICT (address) DO NOTHING`
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage keeps lists and subscriptions in PostgreSQL.
type Storage struct {
	db *sql.DB
}

// NewStorage wraps an open database handle.
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, errs.NewValidation("invalid postgres DSN", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errs.NewServiceUnavailable("failed to connect to postgres", err)
	}
	return NewStorage(db), nil
}

// Migrate creates missing tables.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return errs.NewUnexpected("failed to apply schema", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

func unavailable(ctx context.Context, msg string, err error, args ...any) error {
	slog.ErrorContext(ctx, msg, append([]any{"error", err}, args...)...)
	return errs.NewServiceUnavailable(constants.ErrCodeBackendUnavailable, err)
}

func (s *Storage) requireList(ctx context.Context, q queryer, list string) error {
	var exists bool
	if err := q.QueryRowContext(ctx, queryListExists, list).Scan(&exists); err != nil {
		return unavailable(ctx, "failed to look up mailing list", err, "mailing_list", list)
	}
	if !exists {
		return errs.NewNotFound(constants.ErrCodeNoSuchAccount)
	}
	return nil
}

// GetSubscribers returns active subscribers grouped by mode.
func (s *Storage) GetSubscribers(ctx context.Context, list string) (map[model.SubscriptionMode][]string, error) {
	if err := s.requireList(ctx, s.db, list); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, querySubscribers, list)
	if err != nil {
		return nil, unavailable(ctx, "failed to query subscribers", err, "mailing_list", list)
	}
	defer rows.Close()

	result := make(map[model.SubscriptionMode][]string)
	for _, mode := range model.SubscriptionModes() {
		result[mode] = []string{}
	}
	for rows.Next() {
		var subscriber, mode string
		if err := rows.Scan(&subscriber, &mode); err != nil {
			return nil, unavailable(ctx, "failed to scan subscriber", err, "mailing_list", list)
		}
		m := model.ResolveMode(mode)
		result[m] = append(result[m], subscriber)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(ctx, "failed to read subscribers", err, "mailing_list", list)
	}
	return result, nil
}

// AddSubscribers upserts all subscribers in one transaction.
func (s *Storage) AddSubscribers(ctx context.Context, list string, subscribers []string, mode model.SubscriptionMode, requireConfirm bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(ctx, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.requireList(ctx, tx, list); err != nil {
		return err
	}

	if len(subscribers) > 0 {
		status := model.StatusActive
		if requireConfirm {
			status = model.StatusPending
		}
		_, err = tx.ExecContext(ctx, queryUpsertSubscribers,
			list, pq.Array(subscribers), string(mode), string(status), time.Now().UTC())
		if err != nil {
			return unavailable(ctx, "failed to upsert subscribers", err, "mailing_list", list)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable(ctx, "failed to commit subscribers", err, "mailing_list", list)
	}

	slog.DebugContext(ctx, "postgres storage: subscribers added",
		"mailing_list", list,
		"count", len(subscribers),
	)
	return nil
}

// RemoveSubscribers deletes the given subscribers.
func (s *Storage) RemoveSubscribers(ctx context.Context, list string, subscribers []string) error {
	if err := s.requireList(ctx, s.db, list); err != nil {
		return err
	}
	if len(subscribers) == 0 {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, queryRemoveSubscribers, list, pq.Array(subscribers)); err != nil {
		return unavailable(ctx, "failed to remove subscribers", err, "mailing_list", list)
	}
	return nil
}

// RemoveAllSubscribers deletes every subscription of list.
func (s *Storage) RemoveAllSubscribers(ctx context.Context, list string) error {
	if err := s.requireList(ctx, s.db, list); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, queryRemoveAll, list); err != nil {
		return unavailable(ctx, "failed to remove all subscribers", err, "mailing_list", list)
	}
	return nil
}

// HasSubscriber reports whether subscriber is an active member of list.
func (s *Storage) HasSubscriber(ctx context.Context, list, subscriber string) (bool, model.SubscriptionMode, error) {
	if err := s.requireList(ctx, s.db, list); err != nil {
		return false, "", err
	}

	var mode string
	err := s.db.QueryRowContext(ctx, queryHasSubscriber, list, subscriber).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		return false, "", nil
	}
	if err != nil {
		return false, "", unavailable(ctx, "failed to check subscriber", err, "mailing_list", list)
	}
	return true, model.ResolveMode(mode), nil
}

// ListExistingMailLists returns list addresses, restricted to domains unless nil.
func (s *Storage) ListExistingMailLists(ctx context.Context, domains []string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if domains == nil {
		rows, err = s.db.QueryContext(ctx, queryAllLists)
	} else {
		rows, err = s.db.QueryContext(ctx, queryListsByDomain, pq.Array(domains))
	}
	if err != nil {
		return nil, unavailable(ctx, "failed to query mailing lists", err)
	}
	defer rows.Close()

	lists := []string{}
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, unavailable(ctx, "failed to scan mailing list", err)
		}
		lists = append(lists, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(ctx, "failed to read mailing lists", err)
	}
	return lists, nil
}

// ConfirmSubscriber activates a pending subscription.
func (s *Storage) ConfirmSubscriber(ctx context.Context, list, subscriber string) (model.SubscriptionMode, error) {
	var mode string
	err := s.db.QueryRowContext(ctx, queryConfirm, list, subscriber, time.Now().UTC()).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.requireList(ctx, s.db, list); err != nil {
			return "", err
		}
		return "", errs.NewNotFound("subscription not found")
	}
	if err != nil {
		return "", unavailable(ctx, "failed to confirm subscriber", err, "mailing_list", list)
	}
	return model.ResolveMode(mode), nil
}

// CreateMailingList registers list; an existing list is left untouched.
func (s *Storage) CreateMailingList(ctx context.Context, list string) error {
	if _, err := s.db.ExecContext(ctx, queryCreateList, list, address.Domain(list)); err != nil {
		return unavailable(ctx, "failed to create mailing list", err, "mailing_list", list)
	}
	return nil
}

// IsReady pings the database.
func (s *Storage) IsReady(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.NewServiceUnavailable(constants.ErrCodeBackendUnavailable, err)
	}
	return nil
}
