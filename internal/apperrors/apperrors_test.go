package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "uniq_active_borrow"}
	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsUniqueViolation(fmt.Errorf("create borrow: %w", unique)))

	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("23505")), "plain text must not match")
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsLockTimeout(t *testing.T) {
	assert.True(t, IsLockTimeout(&pgconn.PgError{Code: "55P03"}))
	assert.True(t, IsLockTimeout(&pgconn.PgError{Code: "57014"}))
	assert.True(t, IsLockTimeout(fmt.Errorf("borrow: %w", &pgconn.PgError{Code: "55P03"})))

	assert.False(t, IsLockTimeout(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsLockTimeout(errors.New("lock timeout")))
	assert.False(t, IsLockTimeout(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrLockTimeout))
	assert.True(t, IsRetryable(fmt.Errorf("borrow: %w", ErrLockTimeout)))

	// Every other class is terminal for its input.
	for _, err := range []error{
		ErrBookNotFound,
		ErrBookUnavailable,
		ErrAlreadyBorrowed,
		ErrBorrowNotFound,
		ErrForbidden,
		ErrBookHasActiveBorrows,
		ErrCategoryHasBooks,
		ErrISBNTaken,
	} {
		assert.False(t, IsRetryable(err), err.Error())
	}
}
