package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockwatch/internal/auth"
	"stockwatch/internal/service"
)

type AuthHandler struct {
	Accounts     *service.AccountService
	Tokens       auth.JWT
	CookieName   string
	CookieSecure bool
}

func (h *AuthHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/logout", h.logout)
	g.GET("/me", auth.RequireUser(h.Tokens, h.cookieName()), h.me)
}

type registerRequest struct {
	Email string `json:"email" binding:"required,email"`
	PIN   string `json:"pin" binding:"required,len=6"`
}

type loginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// @Summary Register with email and PIN
// @Tags auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "email and 6 character PIN (4 letters, 2 digits)"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) register(c *gin.Context) {
	if h.Accounts == nil {
		Error(c, http.StatusInternalServerError, "account service unavailable", nil)
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	session, err := h.Accounts.Register(c.Request.Context(), req.Email, req.PIN)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.setCookie(c, session.Token, session.ExpiresAt)
	Created(c, session)
}

// @Summary Log in with a PIN
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "PIN"
// @Success 200 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	if h.Accounts == nil {
		Error(c, http.StatusInternalServerError, "account service unavailable", nil)
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	session, err := h.Accounts.Login(c.Request.Context(), req.PIN)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.setCookie(c, session.Token, session.ExpiresAt)
	Ok(c, session, nil)
}

// @Summary Log out
// @Tags auth
// @Success 200 {object} apiResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName(), "", -1, "/", "", h.CookieSecure, true)
	Ok(c, gin.H{"logged_out": true}, nil)
}

// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) me(c *gin.Context) {
	id, ok := auth.IdentityFromGin(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return
	}
	user, err := h.Accounts.Me(c.Request.Context(), id.UserID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, user, nil)
}

func (h *AuthHandler) setCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName(), token, maxAge, "/", "", h.CookieSecure, true)
}

func (h *AuthHandler) cookieName() string {
	if h.CookieName == "" {
		return "access_token"
	}
	return h.CookieName
}
