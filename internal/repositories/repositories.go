package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"librarium/internal/models"
)

// Page is a 1-based pagination request. Zero values fall back to defaults.
type Page struct {
	Number int
	Size   int
}

const defaultPageSize = 15

// Normalize clamps the page to sane values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 || p.Size > 100 {
		p.Size = defaultPageSize
	}
	return p
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

// BookFilter narrows a book listing. Zero values mean "no filter".
type BookFilter struct {
	CategoryID *uuid.UUID
	Search     string // substring over title, author, isbn
}

// BorrowFilter narrows a borrow listing to one status. Empty means both.
type BorrowFilter struct {
	Status models.BorrowStatus
}

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
}

type CategoryRepository interface {
	Create(db *gorm.DB, category *models.Category) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Category, error)
	Update(db *gorm.DB, category *models.Category) error
	Delete(db *gorm.DB, id uuid.UUID) error
	List(db *gorm.DB, page Page) ([]models.Category, int64, error)
	CountBooks(db *gorm.DB, categoryID uuid.UUID) (int64, error)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	Update(db *gorm.DB, book *models.Book) error
	SoftDelete(db *gorm.DB, id uuid.UUID) error
	AdjustStock(db *gorm.DB, id uuid.UUID, delta int) error
	List(db *gorm.DB, filter BookFilter, page Page) ([]models.Book, int64, error)
}

type BorrowRepository interface {
	Create(db *gorm.DB, borrow *models.Borrow) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Borrow, error)
	GetActiveForUpdate(db *gorm.DB, userID, borrowID uuid.UUID) (*models.Borrow, error)
	HasActiveForUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (bool, error)
	HasActiveForBook(db *gorm.DB, bookID uuid.UUID) (bool, error)
	MarkReturned(db *gorm.DB, borrowID uuid.UUID, returnedAt time.Time) error
	ListByUser(db *gorm.DB, userID uuid.UUID, filter BorrowFilter, page Page) ([]models.Borrow, int64, error)
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(db *gorm.DB, category *models.Category) error {
	if db == nil {
		db = r.db
	}
	return db.Create(category).Error
}

func (r *categoryRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Category, error) {
	if db == nil {
		db = r.db
	}
	var category models.Category
	if err := db.First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) Update(db *gorm.DB, category *models.Category) error {
	if db == nil {
		db = r.db
	}
	return db.Save(category).Error
}

func (r *categoryRepository) Delete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	return db.Delete(&models.Category{}, "id = ?", id).Error
}

func (r *categoryRepository) List(db *gorm.DB, page Page) ([]models.Category, int64, error) {
	if db == nil {
		db = r.db
	}
	page = page.Normalize()

	var total int64
	if err := db.Model(&models.Category{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var categories []models.Category
	err := db.
		Order("name ASC").
		Offset(page.offset()).
		Limit(page.Size).
		Find(&categories).Error
	if err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

func (r *categoryRepository) CountBooks(db *gorm.DB, categoryID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	// Soft-deleted books are excluded by gorm's default scope, so tombstoned
	// books do not block category deletion.
	var count int64
	err := db.Model(&models.Book{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(book).Error
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.Preload("Category").First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetByIDForUpdate locks the book row with SELECT ... FOR UPDATE. The lock is
// held until the surrounding transaction commits or rolls back.
func (r *bookRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) Update(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Save(book).Error
}

func (r *bookRepository) SoftDelete(db *gorm.DB, id uuid.UUID) error {
	if db == nil {
		db = r.db
	}
	// models.Book carries gorm.DeletedAt, so Delete marks the tombstone
	// instead of removing the row.
	return db.Delete(&models.Book{}, "id = ?", id).Error
}

func (r *bookRepository) AdjustStock(db *gorm.DB, id uuid.UUID, delta int) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta)).
		Error
}

func (r *bookRepository) List(db *gorm.DB, filter BookFilter, page Page) ([]models.Book, int64, error) {
	if db == nil {
		db = r.db
	}
	page = page.Normalize()

	query := db.Model(&models.Book{})
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"title ILIKE ? OR author ILIKE ? OR isbn ILIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []models.Book
	err := query.
		Preload("Category").
		Order("title ASC").
		Offset(page.offset()).
		Limit(page.Size).
		Find(&books).Error
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

type borrowRepository struct {
	db *gorm.DB
}

func NewBorrowRepository(db *gorm.DB) BorrowRepository {
	return &borrowRepository{db: db}
}

func (r *borrowRepository) Create(db *gorm.DB, borrow *models.Borrow) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(borrow).Error
}

func (r *borrowRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Borrow, error) {
	if db == nil {
		db = r.db
	}
	var borrow models.Borrow
	// Unscoped preload so borrow history still renders a book that has since
	// been soft-deleted.
	err := db.
		Preload("Book", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Book.Category").
		Preload("User").
		First(&borrow, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &borrow, nil
}

// GetActiveForUpdate locks the active borrow row scoped to its owner. A missing
// row, a row owned by someone else, and an already-returned row all come back
// as gorm.ErrRecordNotFound.
func (r *borrowRepository) GetActiveForUpdate(db *gorm.DB, userID, borrowID uuid.UUID) (*models.Borrow, error) {
	if db == nil {
		db = r.db
	}
	var borrow models.Borrow
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ? AND return_date IS NULL", borrowID, userID).
		First(&borrow).Error
	if err != nil {
		return nil, err
	}
	return &borrow, nil
}

func (r *borrowRepository) HasActiveForUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Borrow{}).
		Where("user_id = ? AND book_id = ? AND return_date IS NULL", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

func (r *borrowRepository) HasActiveForBook(db *gorm.DB, bookID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Borrow{}).
		Where("book_id = ? AND return_date IS NULL", bookID).
		Count(&count).Error
	return count > 0, err
}

func (r *borrowRepository) MarkReturned(db *gorm.DB, borrowID uuid.UUID, returnedAt time.Time) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Borrow{}).
		Where("id = ? AND return_date IS NULL", borrowID).
		Update("return_date", returnedAt).
		Error
}

func (r *borrowRepository) ListByUser(db *gorm.DB, userID uuid.UUID, filter BorrowFilter, page Page) ([]models.Borrow, int64, error) {
	if db == nil {
		db = r.db
	}
	page = page.Normalize()

	query := db.Model(&models.Borrow{}).Where("user_id = ?", userID)
	switch filter.Status {
	case models.BorrowStatusActive:
		query = query.Where("return_date IS NULL")
	case models.BorrowStatusReturned:
		query = query.Where("return_date IS NOT NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var borrows []models.Borrow
	err := query.
		Preload("Book", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Book.Category").
		Preload("User").
		Order("created_at DESC").
		Offset(page.offset()).
		Limit(page.Size).
		Find(&borrows).Error
	if err != nil {
		return nil, 0, err
	}
	return borrows, total, nil
}
