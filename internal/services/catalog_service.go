package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"librarium/internal/apperrors"
	"librarium/internal/models"
	"librarium/internal/repositories"
)

// BookInput carries the writable fields of a book.
type BookInput struct {
	CategoryID      uuid.UUID
	Title           string
	Author          string
	ISBN            string
	Publisher       *string
	PublicationYear *int
	Stock           int
	Description     *string
}

// CatalogService covers category and book CRUD plus the read-only listings.
// Deletions are guarded against referential state: a borrowed book and a
// populated category cannot be removed.
type CatalogService interface {
	CreateCategory(ctx context.Context, name, description string) (*models.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context, page repositories.Page) ([]models.Category, int64, error)
	CanDeleteCategory(ctx context.Context, id uuid.UUID) (bool, error)

	CreateBook(ctx context.Context, input BookInput) (*models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, input BookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, id uuid.UUID) error
	ListBooks(ctx context.Context, filter repositories.BookFilter, page repositories.Page) ([]models.Book, int64, error)
	CanDeleteBook(ctx context.Context, id uuid.UUID) (bool, error)
}

type catalogService struct {
	db           *gorm.DB
	categoryRepo repositories.CategoryRepository
	bookRepo     repositories.BookRepository
	borrowRepo   repositories.BorrowRepository
	lockTimeout  time.Duration
}

// NewCatalogService wires up the catalogue CRUD service.
func NewCatalogService(
	db *gorm.DB,
	categoryRepo repositories.CategoryRepository,
	bookRepo repositories.BookRepository,
	borrowRepo repositories.BorrowRepository,
	lockTimeout time.Duration,
) CatalogService {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &catalogService{
		db:           db,
		categoryRepo: categoryRepo,
		bookRepo:     bookRepo,
		borrowRepo:   borrowRepo,
		lockTimeout:  lockTimeout,
	}
}

// ─── Categories ───────────────────────────────────────────────────────────────

func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	category := &models.Category{
		Name:        name,
		Description: description,
	}
	if err := s.categoryRepo.Create(s.db.WithContext(ctx), category); err != nil {
		log.Printf("[ERROR] CreateCategory: failed to create category %q: %v", name, err)
		return nil, err
	}
	log.Printf("[INFO] CreateCategory: created category %q (id=%s)", name, category.ID)
	return category, nil
}

func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*models.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Description = description
	if err := s.categoryRepo.Update(s.db.WithContext(ctx), category); err != nil {
		log.Printf("[ERROR] UpdateCategory: failed to update category %s: %v", id, err)
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes a category unless any non-deleted book still
// references it. The check and the delete share one transaction.
func (s *catalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.categoryRepo.GetByID(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrCategoryNotFound
			}
			return err
		}
		count, err := s.categoryRepo.CountBooks(tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			log.Printf("[WARN] DeleteCategory: category %s still has %d book(s)", id, count)
			return apperrors.ErrCategoryHasBooks
		}
		return s.categoryRepo.Delete(tx, id)
	})
	if err == nil {
		log.Printf("[INFO] DeleteCategory: deleted category %s", id)
	}
	return err
}

func (s *catalogService) ListCategories(ctx context.Context, page repositories.Page) ([]models.Category, int64, error) {
	return s.categoryRepo.List(s.db.WithContext(ctx), page)
}

func (s *catalogService) CanDeleteCategory(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return false, err
	}
	count, err := s.categoryRepo.CountBooks(s.db.WithContext(ctx), id)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (s *catalogService) CreateBook(ctx context.Context, input BookInput) (*models.Book, error) {
	if _, err := s.GetCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	book := &models.Book{
		CategoryID:      input.CategoryID,
		Title:           input.Title,
		Author:          input.Author,
		ISBN:            input.ISBN,
		Publisher:       input.Publisher,
		PublicationYear: input.PublicationYear,
		Stock:           input.Stock,
		Description:     input.Description,
	}
	if err := s.bookRepo.Create(s.db.WithContext(ctx), book); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.ErrISBNTaken
		}
		log.Printf("[ERROR] CreateBook: failed to create book %q: %v", input.Title, err)
		return nil, err
	}
	log.Printf("[INFO] CreateBook: created book %q (id=%s) with stock %d", book.Title, book.ID, book.Stock)
	return s.GetBook(ctx, book.ID)
}

func (s *catalogService) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *catalogService) UpdateBook(ctx context.Context, id uuid.UUID, input BookInput) (*models.Book, error) {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.CategoryID != book.CategoryID {
		if _, err := s.GetCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
	}

	book.CategoryID = input.CategoryID
	book.Title = input.Title
	book.Author = input.Author
	book.ISBN = input.ISBN
	book.Publisher = input.Publisher
	book.PublicationYear = input.PublicationYear
	book.Stock = input.Stock
	book.Description = input.Description

	if err := s.bookRepo.Update(s.db.WithContext(ctx), book); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.ErrISBNTaken
		}
		log.Printf("[ERROR] UpdateBook: failed to update book %s: %v", id, err)
		return nil, err
	}
	return s.GetBook(ctx, id)
}

// DeleteBook soft-deletes a book. The row is locked FOR UPDATE first so an
// in-flight borrow on the same book cannot slip past the active-borrow guard.
func (s *catalogService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyLockTimeout(tx, s.lockTimeout); err != nil {
			return err
		}
		if _, err := s.bookRepo.GetByIDForUpdate(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrBookNotFound
			}
			return err
		}
		hasActive, err := s.borrowRepo.HasActiveForBook(tx, id)
		if err != nil {
			return err
		}
		if hasActive {
			log.Printf("[WARN] DeleteBook: book %s has active borrows", id)
			return apperrors.ErrBookHasActiveBorrows
		}
		return s.bookRepo.SoftDelete(tx, id)
	})
	if err != nil {
		if apperrors.IsLockTimeout(err) {
			return apperrors.ErrLockTimeout
		}
		return err
	}
	log.Printf("[INFO] DeleteBook: soft-deleted book %s", id)
	return nil
}

func (s *catalogService) ListBooks(ctx context.Context, filter repositories.BookFilter, page repositories.Page) ([]models.Book, int64, error) {
	return s.bookRepo.List(s.db.WithContext(ctx), filter, page)
}

func (s *catalogService) CanDeleteBook(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := s.GetBook(ctx, id); err != nil {
		return false, err
	}
	hasActive, err := s.borrowRepo.HasActiveForBook(s.db.WithContext(ctx), id)
	if err != nil {
		return false, err
	}
	return !hasActive, nil
}
