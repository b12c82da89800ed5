package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"librarium/internal/models"
	"librarium/internal/repositories"
	"librarium/internal/services"
)

type borrowBookRequest struct {
	BookID     string `json:"book_id" binding:"required,uuid"`
	BorrowDays *int   `json:"borrow_days" binding:"omitempty,min=1,max=30"`
}

type returnBookRequest struct {
	BorrowID string `json:"borrow_id" binding:"required,uuid"`
}

// borrowView is the presentation shape of a borrow, with the joined book,
// category and user flattened in and the dates rendered as calendar days.
type borrowView struct {
	ID         uuid.UUID           `json:"id"`
	User       borrowUserView      `json:"user"`
	Book       borrowBookView      `json:"book"`
	BorrowDate string              `json:"borrow_date"`
	DueDate    string              `json:"due_date"`
	ReturnDate *string             `json:"return_date"`
	Status     models.BorrowStatus `json:"status"`
	IsOverdue  bool                `json:"is_overdue"`
}

type borrowUserView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type borrowBookView struct {
	ID       uuid.UUID          `json:"id"`
	Title    string             `json:"title"`
	Author   string             `json:"author"`
	ISBN     string             `json:"isbn"`
	Category borrowCategoryView `json:"category"`
}

type borrowCategoryView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

const dateLayout = "2006-01-02"

func newBorrowView(b *models.Borrow) borrowView {
	var returnDate *string
	if b.ReturnDate != nil {
		formatted := b.ReturnDate.Format(dateLayout)
		returnDate = &formatted
	}
	return borrowView{
		ID: b.ID,
		User: borrowUserView{
			ID:    b.User.ID,
			Name:  b.User.Name,
			Email: b.User.Email,
		},
		Book: borrowBookView{
			ID:     b.Book.ID,
			Title:  b.Book.Title,
			Author: b.Book.Author,
			ISBN:   b.Book.ISBN,
			Category: borrowCategoryView{
				ID:   b.Book.Category.ID,
				Name: b.Book.Category.Name,
			},
		},
		BorrowDate: b.BorrowDate.Format(dateLayout),
		DueDate:    b.DueDate.Format(dateLayout),
		ReturnDate: returnDate,
		Status:     b.Status(),
		IsOverdue:  b.IsOverdueAt(time.Now().UTC()),
	}
}

func newBorrowViews(borrows []models.Borrow) []borrowView {
	views := make([]borrowView, 0, len(borrows))
	for i := range borrows {
		views = append(views, newBorrowView(&borrows[i]))
	}
	return views
}

func (h *Handler) listBorrows(c *gin.Context) {
	filter := repositories.BorrowFilter{}
	switch c.Query("status") {
	case "active":
		filter.Status = models.BorrowStatusActive
	case "returned":
		filter.Status = models.BorrowStatusReturned
	}

	page := pageFromQuery(c)
	borrows, total, err := h.borrow.ListBorrows(c.Request.Context(), currentUserID(c), filter, page)
	if err != nil {
		renderError(c, err)
		return
	}
	respondPage(c, newBorrowViews(borrows), newPageMeta(page, total))
}

func (h *Handler) borrowBook(c *gin.Context) {
	var req borrowBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Validation errors")
		return
	}
	bookID, _ := uuid.Parse(req.BookID)

	// The omitempty binding treats a dereferenced 0 as absent, so an explicit
	// "borrow_days": 0 must be rejected here; only a missing field means
	// "use the default".
	days := 0
	if req.BorrowDays != nil {
		if *req.BorrowDays < services.MinLoanPeriodDays || *req.BorrowDays > services.MaxLoanPeriodDays {
			respondError(c, http.StatusUnprocessableEntity, "Validation errors")
			return
		}
		days = *req.BorrowDays
	}

	borrow, err := h.borrow.Borrow(c.Request.Context(), currentUserID(c), bookID, days)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusCreated, "Book borrowed successfully", newBorrowView(borrow))
}

func (h *Handler) returnBook(c *gin.Context) {
	var req returnBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Validation errors")
		return
	}
	borrowID, _ := uuid.Parse(req.BorrowID)

	borrow, err := h.borrow.Return(c.Request.Context(), currentUserID(c), borrowID)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "Book returned successfully", newBorrowView(borrow))
}

func (h *Handler) getBorrow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	borrow, err := h.borrow.GetBorrow(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "", newBorrowView(borrow))
}
