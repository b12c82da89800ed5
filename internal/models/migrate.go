package models

import "gorm.io/gorm"

// Migrate creates or updates the schema, including the constraints gorm's
// AutoMigrate cannot express: the partial unique index backing the
// at-most-one-active-borrow invariant and the non-negative stock check.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	err := db.AutoMigrate(
		&User{},
		&Category{},
		&Book{},
		&Borrow{},
	)
	if err != nil {
		return err
	}

	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_borrow
		ON borrows (user_id, book_id) WHERE return_date IS NULL`).Error
	if err != nil {
		return err
	}

	if err := db.Exec(`ALTER TABLE books DROP CONSTRAINT IF EXISTS books_stock_nonnegative`).Error; err != nil {
		return err
	}
	return db.Exec(`ALTER TABLE books ADD CONSTRAINT books_stock_nonnegative CHECK (stock >= 0)`).Error
}
