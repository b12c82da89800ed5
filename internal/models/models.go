package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BorrowStatus string

const (
	BorrowStatusActive   BorrowStatus = "active"
	BorrowStatusReturned BorrowStatus = "returned"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"size:2000" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Book struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CategoryID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"category_id"`
	Category        Category       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"category"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Author          string         `gorm:"size:255;not null" json:"author"`
	ISBN            string         `gorm:"size:50;not null;uniqueIndex" json:"isbn"`
	Publisher       *string        `gorm:"size:255" json:"publisher"`
	PublicationYear *int           `json:"publication_year"`
	Stock           int            `gorm:"not null;default:0" json:"stock"`
	Description     *string        `gorm:"size:2000" json:"description"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAvailable reports whether at least one copy is on the shelf.
func (b *Book) IsAvailable() bool {
	return b.Stock > 0
}

type Borrow struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User       User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"user"`
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       Book       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"book"`
	BorrowDate time.Time  `gorm:"not null" json:"borrow_date"`
	DueDate    time.Time  `gorm:"not null" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsActive reports whether the book has not been returned yet.
// Once ReturnDate is set a borrow is terminal; it never reopens.
func (b *Borrow) IsActive() bool {
	return b.ReturnDate == nil
}

// IsOverdueAt reports whether the borrow is still active past the due date.
func (b *Borrow) IsOverdueAt(now time.Time) bool {
	if b.ReturnDate != nil {
		return false
	}
	return now.After(b.DueDate)
}

// IsOverdue is IsOverdueAt against the wall clock.
func (b *Borrow) IsOverdue() bool {
	return b.IsOverdueAt(time.Now().UTC())
}

// Status returns the presentation status of the borrow.
func (b *Borrow) Status() BorrowStatus {
	if b.IsActive() {
		return BorrowStatusActive
	}
	return BorrowStatusReturned
}
