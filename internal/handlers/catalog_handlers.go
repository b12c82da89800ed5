package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"librarium/internal/repositories"
	"librarium/internal/services"
)

type categoryRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"max=2000"`
}

type bookRequest struct {
	CategoryID      string  `json:"category_id" binding:"required,uuid"`
	Title           string  `json:"title" binding:"required,max=255"`
	Author          string  `json:"author" binding:"required,max=255"`
	ISBN            string  `json:"isbn" binding:"required,max=50"`
	Publisher       *string `json:"publisher" binding:"omitempty,max=255"`
	PublicationYear *int    `json:"publication_year" binding:"omitempty,min=1000,max=2100"`
	Stock           *int    `json:"stock" binding:"required,min=0"`
	Description     *string `json:"description" binding:"omitempty,max=2000"`
}

func (r *bookRequest) toInput() services.BookInput {
	categoryID, _ := uuid.Parse(r.CategoryID)
	return services.BookInput{
		CategoryID:      categoryID,
		Title:           r.Title,
		Author:          r.Author,
		ISBN:            r.ISBN,
		Publisher:       r.Publisher,
		PublicationYear: r.PublicationYear,
		Stock:           *r.Stock,
		Description:     r.Description,
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// ─── Categories ───────────────────────────────────────────────────────────────

func (h *Handler) listCategories(c *gin.Context) {
	page := pageFromQuery(c)
	categories, total, err := h.catalog.ListCategories(c.Request.Context(), page)
	if err != nil {
		renderError(c, err)
		return
	}
	respondPage(c, categories, newPageMeta(page, total))
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Validation errors")
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusCreated, "Category created successfully", category)
}

func (h *Handler) getCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	category, err := h.catalog.GetCategory(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "", category)
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Validation errors")
		return
	}
	category, err := h.catalog.UpdateCategory(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "Category updated successfully", category)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "Category deleted successfully", nil)
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (h *Handler) listBooks(c *gin.Context) {
	filter := repositories.BookFilter{Search: c.Query("search")}
	if raw := c.Query("category_id"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid category id")
			return
		}
		filter.CategoryID = &categoryID
	}

	page := pageFromQuery(c)
	books, total, err := h.catalog.ListBooks(c.Request.Context(), filter, page)
	if err != nil {
		renderError(c, err)
		return
	}
	respondPage(c, books, newPageMeta(page, total))
}

func (h *Handler) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Validation errors")
		return
	}
	book, err := h.catalog.CreateBook(c.Request.Context(), req.toInput())
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusCreated, "Book created successfully", book)
}

func (h *Handler) getBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	book, err := h.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "", book)
}

func (h *Handler) updateBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Validation errors")
		return
	}
	book, err := h.catalog.UpdateBook(c.Request.Context(), id, req.toInput())
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "Book updated successfully", book)
}

func (h *Handler) deleteBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteBook(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "Book deleted successfully", nil)
}
