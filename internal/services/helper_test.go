package services

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"librarium/internal/models"
	"librarium/internal/repositories"
)

// testDB connects to the database named by TEST_DATABASE_URL, migrates the
// schema and wipes all rows. Tests that need a database skip when the
// variable is unset.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect test database")

	require.NoError(t, models.Migrate(db), "failed to migrate test database")
	require.NoError(t, db.Exec(`TRUNCATE TABLE borrows, books, categories, users CASCADE`).Error)

	return db
}

func newTestBorrowService(db *gorm.DB) BorrowService {
	return NewBorrowService(
		db,
		repositories.NewBookRepository(db),
		repositories.NewBorrowRepository(db),
		0,
	)
}

func newTestCatalogService(db *gorm.DB) CatalogService {
	return NewCatalogService(
		db,
		repositories.NewCategoryRepository(db),
		repositories.NewBookRepository(db),
		repositories.NewBorrowRepository(db),
		0,
	)
}

func givenUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     "Test Reader",
		Email:    email,
		Password: "irrelevant-hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func givenCategory(t *testing.T, db *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{
		Name:        name,
		Description: "test category",
	}
	require.NoError(t, db.Create(category).Error)
	return category
}

func givenBook(t *testing.T, db *gorm.DB, category *models.Category, isbn string, stock int) *models.Book {
	t.Helper()
	book := &models.Book{
		CategoryID: category.ID,
		Title:      "Test Book " + isbn,
		Author:     "Test Author",
		ISBN:       isbn,
		Stock:      stock,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func currentStock(t *testing.T, db *gorm.DB, book *models.Book) int {
	t.Helper()
	var fresh models.Book
	require.NoError(t, db.Unscoped().First(&fresh, "id = ?", book.ID).Error)
	return fresh.Stock
}
