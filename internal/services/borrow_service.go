package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"librarium/internal/apperrors"
	"librarium/internal/models"
	"librarium/internal/repositories"
)

// ─── Loan Period Constants ────────────────────────────────────────────────────

const (
	// DefaultLoanPeriodDays is applied when the borrower does not choose a period.
	DefaultLoanPeriodDays = 14

	// MinLoanPeriodDays and MaxLoanPeriodDays bound the borrower's choice.
	MinLoanPeriodDays = 1
	MaxLoanPeriodDays = 30

	// DefaultLockTimeout bounds how long a borrow/return transaction waits on
	// a contended book row before giving up with apperrors.ErrLockTimeout.
	DefaultLockTimeout = 3 * time.Second
)

// ─── Service Interface ────────────────────────────────────────────────────────

// BorrowService is the transactional engine around book stock and borrow
// records. Every mutation runs in a single database transaction with the
// affected book row locked for its full duration.
type BorrowService interface {
	Borrow(ctx context.Context, userID, bookID uuid.UUID, loanPeriodDays int) (*models.Borrow, error)
	Return(ctx context.Context, userID, borrowID uuid.UUID) (*models.Borrow, error)

	GetBorrow(ctx context.Context, userID, borrowID uuid.UUID) (*models.Borrow, error)
	ListBorrows(ctx context.Context, userID uuid.UUID, filter repositories.BorrowFilter, page repositories.Page) ([]models.Borrow, int64, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type borrowService struct {
	db          *gorm.DB
	bookRepo    repositories.BookRepository
	borrowRepo  repositories.BorrowRepository
	lockTimeout time.Duration
}

// NewBorrowService wires up the engine. A non-positive lockTimeout falls back
// to DefaultLockTimeout.
func NewBorrowService(
	db *gorm.DB,
	bookRepo repositories.BookRepository,
	borrowRepo repositories.BorrowRepository,
	lockTimeout time.Duration,
) BorrowService {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &borrowService{
		db:          db,
		bookRepo:    bookRepo,
		borrowRepo:  borrowRepo,
		lockTimeout: lockTimeout,
	}
}

// ─── Borrow ───────────────────────────────────────────────────────────────────

// Borrow implements the transactional borrow flow.
//
// Steps (all in one transaction, book row locked FOR UPDATE throughout):
//  1. Lock and re-read the book row; soft-deleted books read as not found.
//  2. Reject if stock is exhausted.
//  3. Reject if the user already holds an active borrow for this book.
//  4. Insert the borrow record (due date = now + loanPeriodDays).
//  5. Decrement stock by 1.
//
// Concurrent borrows of the same book serialize on the row lock, so the stock
// check always sees the latest committed value and stock can never go negative.
// loanPeriodDays of 0 means "use the default"; out-of-range values are rejected.
func (s *borrowService) Borrow(ctx context.Context, userID, bookID uuid.UUID, loanPeriodDays int) (*models.Borrow, error) {
	if loanPeriodDays == 0 {
		loanPeriodDays = DefaultLoanPeriodDays
	}
	if loanPeriodDays < MinLoanPeriodDays || loanPeriodDays > MaxLoanPeriodDays {
		return nil, fmt.Errorf("loan period must be between %d and %d days", MinLoanPeriodDays, MaxLoanPeriodDays)
	}

	var created *models.Borrow

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyLockTimeout(tx, s.lockTimeout); err != nil {
			return err
		}

		book, err := s.bookRepo.GetByIDForUpdate(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrBookNotFound
			}
			return err
		}

		if !book.IsAvailable() {
			log.Printf("[INFO] Borrow: book %s has no stock, rejecting user %s", bookID, userID)
			return apperrors.ErrBookUnavailable
		}

		hasActive, err := s.borrowRepo.HasActiveForUserAndBook(tx, userID, bookID)
		if err != nil {
			return err
		}
		if hasActive {
			log.Printf("[WARN] Borrow: user %s already holds an active borrow for book %s", userID, bookID)
			return apperrors.ErrAlreadyBorrowed
		}

		now := time.Now().UTC()
		borrow := &models.Borrow{
			UserID:     userID,
			BookID:     bookID,
			BorrowDate: now,
			DueDate:    now.AddDate(0, 0, loanPeriodDays),
		}
		if err := s.borrowRepo.Create(tx, borrow); err != nil {
			// The partial unique index on active (user, book) pairs is the
			// backstop for a race the in-transaction check cannot see.
			if apperrors.IsUniqueViolation(err) {
				return apperrors.ErrAlreadyBorrowed
			}
			log.Printf("[ERROR] Borrow: failed to create borrow record: %v", err)
			return err
		}

		if err := s.bookRepo.AdjustStock(tx, bookID, -1); err != nil {
			log.Printf("[ERROR] Borrow: failed to decrement stock for book %s: %v", bookID, err)
			return err
		}

		created = borrow
		return nil
	})
	if err != nil {
		return nil, s.translate("Borrow", err)
	}

	log.Printf("[INFO] Borrow: borrow created (id=%s) for user %s / book %s, due %s",
		created.ID, userID, bookID, created.DueDate.Format("2006-01-02"))

	// Reload with book, category and user joined for presentation.
	return s.borrowRepo.GetByID(s.db.WithContext(ctx), created.ID)
}

// ─── Return ───────────────────────────────────────────────────────────────────

// Return implements the transactional return flow.
//
// The borrow row is locked FOR UPDATE scoped to the calling user and to
// return_date IS NULL, which collapses "no such borrow", "not yours" and
// "already returned" into one not-found outcome and makes double returns
// race-free: the second caller finds no active row to lock.
func (s *borrowService) Return(ctx context.Context, userID, borrowID uuid.UUID) (*models.Borrow, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyLockTimeout(tx, s.lockTimeout); err != nil {
			return err
		}

		borrow, err := s.borrowRepo.GetActiveForUpdate(tx, userID, borrowID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrBorrowNotFound
			}
			return err
		}

		now := time.Now().UTC()
		if err := s.borrowRepo.MarkReturned(tx, borrow.ID, now); err != nil {
			log.Printf("[ERROR] Return: failed to mark borrow %s returned: %v", borrowID, err)
			return err
		}

		// Exactly one increment per borrow lifecycle: the active-row lock
		// above guarantees this branch runs at most once per borrow.
		if err := s.bookRepo.AdjustStock(tx, borrow.BookID, 1); err != nil {
			log.Printf("[ERROR] Return: failed to increment stock for book %s: %v", borrow.BookID, err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.translate("Return", err)
	}

	log.Printf("[INFO] Return: borrow %s returned by user %s", borrowID, userID)

	return s.borrowRepo.GetByID(s.db.WithContext(ctx), borrowID)
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// GetBorrow fetches one borrow. A borrow that exists but belongs to someone
// else yields ErrForbidden; this is deliberately stricter than Return, which
// never confirms the existence of another user's record.
func (s *borrowService) GetBorrow(ctx context.Context, userID, borrowID uuid.UUID) (*models.Borrow, error) {
	borrow, err := s.borrowRepo.GetByID(s.db.WithContext(ctx), borrowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBorrowNotFound
		}
		return nil, err
	}
	if borrow.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return borrow, nil
}

// ListBorrows returns the user's borrows, newest first. Plain reads, never
// touches the row locks.
func (s *borrowService) ListBorrows(ctx context.Context, userID uuid.UUID, filter repositories.BorrowFilter, page repositories.Page) ([]models.Borrow, int64, error) {
	return s.borrowRepo.ListByUser(s.db.WithContext(ctx), userID, filter, page)
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

// applyLockTimeout bounds lock waits for the current transaction only.
// SET LOCAL reverts automatically on commit or rollback.
func applyLockTimeout(tx *gorm.DB, timeout time.Duration) error {
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())).Error
}

// translate maps infrastructure failures onto the service error taxonomy and
// logs anything unexpected.
func (s *borrowService) translate(op string, err error) error {
	switch {
	case isDomainError(err):
		return err
	case apperrors.IsLockTimeout(err), errors.Is(err, context.DeadlineExceeded):
		log.Printf("[WARN] %s: lock wait exceeded %s: %v", op, s.lockTimeout, err)
		return apperrors.ErrLockTimeout
	default:
		log.Printf("[ERROR] %s: transaction failed: %v", op, err)
		return err
	}
}

func isDomainError(err error) bool {
	for _, domain := range []error{
		apperrors.ErrBookNotFound,
		apperrors.ErrBorrowNotFound,
		apperrors.ErrBookUnavailable,
		apperrors.ErrAlreadyBorrowed,
		apperrors.ErrForbidden,
	} {
		if errors.Is(err, domain) {
			return true
		}
	}
	return false
}
