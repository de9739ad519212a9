// Package postgres stores events, bookings and user projections with GORM.
package postgres

import (
	"context"
	"errors"

	"eventhub/internal/bookings"
	"eventhub/internal/events"
	"eventhub/internal/shared/apperrors"
	"eventhub/internal/users"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres error codes the store reacts to
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// ActiveBookingIndex is the partial unique index allowing one confirmed
// booking per user and event.
const ActiveBookingIndex = "idx_bookings_active_user_event"

// Store implements bookings.Store on PostgreSQL
type Store struct {
	db *gorm.DB
}

// New creates a store over an open GORM connection
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// maxTxAttempts bounds reruns after deadlocks and serialization failures
const maxTxAttempts = 3

// WithinTx runs fn in a database transaction, rerunning it when Postgres
// aborts the transaction over a lock conflict.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx bookings.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			return fn(ctx, &scope{db: gtx, inTx: true})
		})
		if !isRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return storeError(err)
}

// View returns collaborators running each call in its own statement
func (s *Store) View() bookings.Tx {
	return &scope{db: s.db}
}

// scope binds the collaborators to a connection or a transaction
type scope struct {
	db   *gorm.DB
	inTx bool
}

func (s *scope) Events() events.Catalog    { return &eventCatalog{s} }
func (s *scope) Bookings() bookings.Ledger { return &bookingLedger{s} }
func (s *scope) Users() users.Projection   { return &userProjection{s} }

func (s *scope) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// storeError keeps domain errors and reports everything else as transient
func storeError(err error) error {
	if err == nil || apperrors.IsDomain(err) {
		return err
	}
	return apperrors.Transient(err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// isRetryable reports lock conflicts the client can simply retry
func isRetryable(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}
