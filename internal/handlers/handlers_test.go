package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/apperrors"
	"librarium/internal/models"
	"librarium/internal/repositories"
	"librarium/internal/services"
)

// ─── Stubs ────────────────────────────────────────────────────────────────────

// stubBorrowService lets each test script the engine's outcome.
type stubBorrowService struct {
	borrowFn func(ctx context.Context, userID, bookID uuid.UUID, days int) (*models.Borrow, error)
	returnFn func(ctx context.Context, userID, borrowID uuid.UUID) (*models.Borrow, error)
	getFn    func(ctx context.Context, userID, borrowID uuid.UUID) (*models.Borrow, error)
	listFn   func(ctx context.Context, userID uuid.UUID, filter repositories.BorrowFilter, page repositories.Page) ([]models.Borrow, int64, error)
}

func (s *stubBorrowService) Borrow(ctx context.Context, userID, bookID uuid.UUID, days int) (*models.Borrow, error) {
	return s.borrowFn(ctx, userID, bookID, days)
}

func (s *stubBorrowService) Return(ctx context.Context, userID, borrowID uuid.UUID) (*models.Borrow, error) {
	return s.returnFn(ctx, userID, borrowID)
}

func (s *stubBorrowService) GetBorrow(ctx context.Context, userID, borrowID uuid.UUID) (*models.Borrow, error) {
	return s.getFn(ctx, userID, borrowID)
}

func (s *stubBorrowService) ListBorrows(ctx context.Context, userID uuid.UUID, filter repositories.BorrowFilter, page repositories.Page) ([]models.Borrow, int64, error) {
	return s.listFn(ctx, userID, filter, page)
}

// stubCatalogService only backs the handlers a given test exercises; the rest
// may stay nil.
type stubCatalogService struct {
	services.CatalogService
	deleteBookFn     func(ctx context.Context, id uuid.UUID) error
	deleteCategoryFn func(ctx context.Context, id uuid.UUID) error
}

func (s *stubCatalogService) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return s.deleteBookFn(ctx, id)
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.deleteCategoryFn(ctx, id)
}

// stubAuthService keeps the real token handling but answers Profile from
// memory, so no database is needed.
type stubAuthService struct {
	services.AuthService
}

func (s *stubAuthService) Profile(_ context.Context, userID uuid.UUID) (*models.User, error) {
	return &models.User{ID: userID, Name: "Reader", Email: "reader@example.com"}, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func newTestRouter(t *testing.T, catalog services.CatalogService, borrow services.BorrowService) (*gin.Engine, services.AuthService, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := &stubAuthService{
		AuthService: services.NewAuthService(nil, nil, "test-secret", time.Hour),
	}
	router := gin.New()
	RegisterRoutes(router, auth, catalog, borrow)

	return router, auth, uuid.New()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func sampleBorrow(userID uuid.UUID) *models.Borrow {
	now := time.Now().UTC()
	return &models.Borrow{
		ID:     uuid.New(),
		UserID: userID,
		User:   models.User{ID: userID, Name: "Reader", Email: "reader@example.com"},
		BookID: uuid.New(),
		Book: models.Book{
			ID:       uuid.New(),
			Title:    "The Great Gatsby",
			Author:   "F. Scott Fitzgerald",
			ISBN:     "9780743273565",
			Category: models.Category{ID: uuid.New(), Name: "Fiction"},
		},
		BorrowDate: now,
		DueDate:    now.AddDate(0, 0, 14),
	}
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _, _ := newTestRouter(t, &stubCatalogService{}, &stubBorrowService{})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/borrows", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Unauthenticated", body["message"])

	rec = doJSON(t, router, http.MethodGet, "/api/v1/borrows", "garbage-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBorrowEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unavailable", apperrors.ErrBookUnavailable, http.StatusUnprocessableEntity},
		{"already borrowed", apperrors.ErrAlreadyBorrowed, http.StatusUnprocessableEntity},
		{"book missing", apperrors.ErrBookNotFound, http.StatusNotFound},
		{"lock timeout", apperrors.ErrLockTimeout, http.StatusServiceUnavailable},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			borrow := &stubBorrowService{
				borrowFn: func(context.Context, uuid.UUID, uuid.UUID, int) (*models.Borrow, error) {
					return nil, tc.err
				},
			}
			router, auth, userID := newTestRouter(t, &stubCatalogService{}, borrow)
			token, err := auth.IssueToken(userID)
			require.NoError(t, err)

			rec := doJSON(t, router, http.MethodPost, "/api/v1/borrows", token,
				`{"book_id":"`+uuid.NewString()+`"}`)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, false, decodeBody(t, rec)["success"])
		})
	}
}

func TestBorrowEndpointSuccess(t *testing.T) {
	var gotDays int
	var gotUserID uuid.UUID

	borrow := &stubBorrowService{
		borrowFn: func(_ context.Context, userID, _ uuid.UUID, days int) (*models.Borrow, error) {
			gotUserID = userID
			gotDays = days
			return sampleBorrow(userID), nil
		},
	}
	router, auth, userID := newTestRouter(t, &stubCatalogService{}, borrow)
	token, err := auth.IssueToken(userID)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/borrows", token,
		`{"book_id":"`+uuid.NewString()+`","borrow_days":21}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, userID, gotUserID, "principal id must come from the token, not the body")
	assert.Equal(t, 21, gotDays)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Book borrowed successfully", body["message"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "active", data["status"])
	assert.Nil(t, data["return_date"])
	book := data["book"].(map[string]interface{})
	assert.Equal(t, "The Great Gatsby", book["title"])
	assert.Equal(t, "Fiction", book["category"].(map[string]interface{})["name"])
}

func TestBorrowEndpointValidation(t *testing.T) {
	borrow := &stubBorrowService{
		borrowFn: func(context.Context, uuid.UUID, uuid.UUID, int) (*models.Borrow, error) {
			t.Fatal("service must not be called on validation failure")
			return nil, nil
		},
	}
	router, auth, userID := newTestRouter(t, &stubCatalogService{}, borrow)
	token, err := auth.IssueToken(userID)
	require.NoError(t, err)

	for name, payload := range map[string]string{
		"missing book_id":    `{"borrow_days":14}`,
		"malformed book_id":  `{"book_id":"not-a-uuid"}`,
		"days above maximum": `{"book_id":"` + uuid.NewString() + `","borrow_days":31}`,
		"explicit zero days": `{"book_id":"` + uuid.NewString() + `","borrow_days":0}`,
	} {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/borrows", token, payload)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, name)
	}
}

func TestReturnEndpointMapsNotFound(t *testing.T) {
	borrow := &stubBorrowService{
		returnFn: func(context.Context, uuid.UUID, uuid.UUID) (*models.Borrow, error) {
			return nil, apperrors.ErrBorrowNotFound
		},
	}
	router, auth, userID := newTestRouter(t, &stubCatalogService{}, borrow)
	token, err := auth.IssueToken(userID)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/borrows/return", token,
		`{"borrow_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBorrowMapsForbidden(t *testing.T) {
	borrow := &stubBorrowService{
		getFn: func(context.Context, uuid.UUID, uuid.UUID) (*models.Borrow, error) {
			return nil, apperrors.ErrForbidden
		},
	}
	router, auth, userID := newTestRouter(t, &stubCatalogService{}, borrow)
	token, err := auth.IssueToken(userID)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/borrows/"+uuid.NewString(), token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListBorrowsRendersMetaAndFilters(t *testing.T) {
	var gotFilter repositories.BorrowFilter
	var gotPage repositories.Page

	borrow := &stubBorrowService{
		listFn: func(_ context.Context, userID uuid.UUID, filter repositories.BorrowFilter, page repositories.Page) ([]models.Borrow, int64, error) {
			gotFilter = filter
			gotPage = page
			return []models.Borrow{*sampleBorrow(userID)}, 31, nil
		},
	}
	router, auth, userID := newTestRouter(t, &stubCatalogService{}, borrow)
	token, err := auth.IssueToken(userID)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/borrows?status=active&page=2", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, models.BorrowStatusActive, gotFilter.Status)
	assert.Equal(t, 2, gotPage.Number)
	assert.Equal(t, 15, gotPage.Size)

	meta := decodeBody(t, rec)["meta"].(map[string]interface{})
	assert.EqualValues(t, 2, meta["current_page"])
	assert.EqualValues(t, 3, meta["last_page"])
	assert.EqualValues(t, 15, meta["per_page"])
	assert.EqualValues(t, 31, meta["total"])
}

func TestLogout(t *testing.T) {
	router, auth, userID := newTestRouter(t, &stubCatalogService{}, &stubBorrowService{})
	token, err := auth.IssueToken(userID)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Successfully logged out", body["message"])

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshReissuesUsableToken(t *testing.T) {
	router, auth, userID := newTestRouter(t, &stubCatalogService{}, &stubBorrowService{})
	token, err := auth.IssueToken(userID)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Token refreshed successfully", body["message"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "bearer", data["token_type"])
	assert.Equal(t, userID.String(), data["user"].(map[string]interface{})["id"])

	// The refreshed token must authenticate for the same principal.
	fresh, ok := data["access_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, fresh)
	principal, err := auth.ParseToken(fresh)
	require.NoError(t, err)
	assert.Equal(t, userID, principal)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh", "garbage-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteGuardsMapTo422(t *testing.T) {
	catalog := &stubCatalogService{
		deleteBookFn: func(context.Context, uuid.UUID) error {
			return apperrors.ErrBookHasActiveBorrows
		},
		deleteCategoryFn: func(context.Context, uuid.UUID) error {
			return apperrors.ErrCategoryHasBooks
		},
	}
	router, auth, userID := newTestRouter(t, catalog, &stubBorrowService{})
	token, err := auth.IssueToken(userID)
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodDelete, "/api/v1/books/"+uuid.NewString(), token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Cannot delete book that is currently borrowed", decodeBody(t, rec)["message"])

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/categories/"+uuid.NewString(), token, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Cannot delete category with existing books", decodeBody(t, rec)["message"])
}

func TestPageMeta(t *testing.T) {
	meta := newPageMeta(repositories.Page{Number: 1, Size: 15}, 0)
	assert.Equal(t, 1, meta.LastPage, "empty result still has one page")

	meta = newPageMeta(repositories.Page{Number: 2, Size: 15}, 31)
	assert.Equal(t, 3, meta.LastPage)
	assert.Equal(t, 2, meta.CurrentPage)

	meta = newPageMeta(repositories.Page{Number: 1, Size: 15}, 30)
	assert.Equal(t, 2, meta.LastPage)
}
