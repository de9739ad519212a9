package postgres

import (
	"errors"
	"fmt"
	"testing"

	"eventhub/internal/shared/apperrors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	active := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: ActiveBookingIndex}
	other := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "users_pkey"}

	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", active), ActiveBookingIndex))
	assert.False(t, isUniqueViolation(other, ActiveBookingIndex))
	assert.True(t, isUniqueViolation(other, ""))
	assert.False(t, isUniqueViolation(errors.New("duplicate"), ""))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: codeDeadlockDetected}))
	assert.True(t, isRetryable(fmt.Errorf("commit: %w", &pgconn.PgError{Code: codeSerializationFailure})))
	assert.False(t, isRetryable(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, isRetryable(nil))
}

func TestStoreErrorKeepsDomainErrors(t *testing.T) {
	domain := fmt.Errorf("event x: %w", apperrors.ErrInsufficientCapacity)
	assert.Same(t, domain, storeError(domain))

	err := storeError(&pgconn.PgError{Code: "08006", Message: "connection failure"})
	assert.ErrorIs(t, err, apperrors.ErrTransientFailure)

	assert.NoError(t, storeError(nil))
}
