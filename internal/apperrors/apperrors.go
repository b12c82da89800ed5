package apperrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by the service layer. Handlers map these to
// transport status codes; everything else is treated as an internal error.
var (
	// ErrBookNotFound is returned when the requested book does not exist
	// or has been soft-deleted.
	ErrBookNotFound = errors.New("book not found")

	// ErrCategoryNotFound is returned when the referenced category does not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrBorrowNotFound is returned when the referenced borrow does not exist,
	// belongs to another user, or is already returned. The three cases are
	// deliberately indistinguishable to the caller.
	ErrBorrowNotFound = errors.New("borrow not found")

	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrBookUnavailable is returned when a borrow is attempted against a
	// book with zero stock.
	ErrBookUnavailable = errors.New("book is not available for borrowing")

	// ErrAlreadyBorrowed is returned when the user already holds an active
	// borrow for the same book.
	ErrAlreadyBorrowed = errors.New("you have already borrowed this book")

	// ErrBookHasActiveBorrows blocks deletion of a book that is currently
	// borrowed.
	ErrBookHasActiveBorrows = errors.New("cannot delete book that is currently borrowed")

	// ErrCategoryHasBooks blocks deletion of a category that still has
	// non-deleted books.
	ErrCategoryHasBooks = errors.New("cannot delete category with existing books")

	// ErrForbidden is returned when the entity exists but belongs to a
	// different user.
	ErrForbidden = errors.New("unauthorized access")

	// ErrISBNTaken is returned on a unique-constraint violation for ISBN.
	ErrISBNTaken = errors.New("isbn already exists")

	// ErrEmailTaken is returned on a unique-constraint violation for email.
	ErrEmailTaken = errors.New("email already exists")

	// ErrInvalidCredentials is returned when login fails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLockTimeout is returned when a row-lock wait exceeded the configured
	// bound. It is the only retryable error in the taxonomy.
	ErrLockTimeout = errors.New("operation timed out waiting for a lock, retry")
)

// PostgreSQL error codes. 23505 = unique_violation, 55P03 = lock_not_available.
const (
	pgUniqueViolation   = "23505"
	pgLockNotAvailable  = "55P03"
	pgQueryCanceledCode = "57014"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsLockTimeout reports whether err is a PostgreSQL lock_timeout expiry or a
// statement cancellation, both of which surface as lock contention to callers.
func IsLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgLockNotAvailable || pgErr.Code == pgQueryCanceledCode
}

// IsRetryable reports whether the caller may retry the same call verbatim.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
