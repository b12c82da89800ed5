package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) tokenPayload(token string, user interface{}) gin.H {
	return gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(h.auth.TokenTTL().Seconds()),
		"user":         user,
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Validation errors")
		return
	}

	user, token, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusCreated, "User registered successfully", h.tokenPayload(token, user))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "Validation errors")
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "Login successful", h.tokenPayload(token, user))
}

// logout acknowledges the client discarding its token. Tokens are stateless
// and expire on their own; there is no server-side session to tear down.
func (h *Handler) logout(c *gin.Context) {
	respondData(c, http.StatusOK, "Successfully logged out", nil)
}

// refresh re-issues a token for the already-authenticated principal,
// restarting the TTL.
func (h *Handler) refresh(c *gin.Context) {
	userID := currentUserID(c)

	user, err := h.auth.Profile(c.Request.Context(), userID)
	if err != nil {
		renderError(c, err)
		return
	}
	token, err := h.auth.IssueToken(userID)
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "Token refreshed successfully", h.tokenPayload(token, user))
}

func (h *Handler) profile(c *gin.Context) {
	user, err := h.auth.Profile(c.Request.Context(), currentUserID(c))
	if err != nil {
		renderError(c, err)
		return
	}
	respondData(c, http.StatusOK, "", user)
}
