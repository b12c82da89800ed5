package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"librarium/internal/apperrors"
	"librarium/internal/repositories"
	"librarium/internal/services"
)

// Handler bundles the services behind the HTTP API.
type Handler struct {
	auth    services.AuthService
	catalog services.CatalogService
	borrow  services.BorrowService
}

// RegisterRoutes mounts the v1 API.
func RegisterRoutes(r *gin.Engine, auth services.AuthService, catalog services.CatalogService, borrow services.BorrowService) {
	h := &Handler{auth: auth, catalog: catalog, borrow: borrow}

	v1 := r.Group("/api/v1")

	// Public routes
	v1.POST("/auth/register", h.register)
	v1.POST("/auth/login", h.login)

	// Protected routes
	protected := v1.Group("", AuthRequired(auth))

	protected.GET("/auth/profile", h.profile)
	protected.POST("/auth/logout", h.logout)
	protected.POST("/auth/refresh", h.refresh)

	protected.GET("/categories", h.listCategories)
	protected.POST("/categories", h.createCategory)
	protected.GET("/categories/:id", h.getCategory)
	protected.PUT("/categories/:id", h.updateCategory)
	protected.DELETE("/categories/:id", h.deleteCategory)

	protected.GET("/books", h.listBooks)
	protected.POST("/books", h.createBook)
	protected.GET("/books/:id", h.getBook)
	protected.PUT("/books/:id", h.updateBook)
	protected.DELETE("/books/:id", h.deleteBook)

	protected.GET("/borrows", h.listBorrows)
	protected.POST("/borrows", h.borrowBook)
	protected.POST("/borrows/return", h.returnBook)
	protected.GET("/borrows/:id", h.getBorrow)
}

// ─── Response Envelope ────────────────────────────────────────────────────────

// pageMeta mirrors the pagination block of list responses.
type pageMeta struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
}

func newPageMeta(page repositories.Page, total int64) pageMeta {
	page = page.Normalize()
	lastPage := int((total + int64(page.Size) - 1) / int64(page.Size))
	if lastPage < 1 {
		lastPage = 1
	}
	return pageMeta{
		CurrentPage: page.Number,
		LastPage:    lastPage,
		PerPage:     page.Size,
		Total:       total,
	}
}

func respondData(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondPage(c *gin.Context, data interface{}, meta pageMeta) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"meta":    meta,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// renderError maps the service error taxonomy onto transport status codes.
func renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrBookNotFound),
		errors.Is(err, apperrors.ErrCategoryNotFound),
		errors.Is(err, apperrors.ErrBorrowNotFound),
		errors.Is(err, apperrors.ErrUserNotFound):
		respondError(c, http.StatusNotFound, capitalizeErr(err))

	case errors.Is(err, apperrors.ErrForbidden):
		respondError(c, http.StatusForbidden, capitalizeErr(err))

	case errors.Is(err, apperrors.ErrBookUnavailable),
		errors.Is(err, apperrors.ErrAlreadyBorrowed),
		errors.Is(err, apperrors.ErrBookHasActiveBorrows),
		errors.Is(err, apperrors.ErrCategoryHasBooks),
		errors.Is(err, apperrors.ErrISBNTaken),
		errors.Is(err, apperrors.ErrEmailTaken):
		respondError(c, http.StatusUnprocessableEntity, capitalizeErr(err))

	case errors.Is(err, apperrors.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, capitalizeErr(err))

	case errors.Is(err, apperrors.ErrLockTimeout):
		respondError(c, http.StatusServiceUnavailable, capitalizeErr(err))

	default:
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// capitalizeErr upper-cases the first letter of an error message for
// presentation, keeping the sentinel text as the single source of wording.
func capitalizeErr(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// pageFromQuery reads ?page= and ?per_page= with the usual defaults.
func pageFromQuery(c *gin.Context) repositories.Page {
	number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("per_page", "15"))
	return repositories.Page{Number: number, Size: size}.Normalize()
}
