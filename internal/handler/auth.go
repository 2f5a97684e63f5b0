package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/longtk/giapha/internal/middleware"
	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/service"
)

// AuthHandler binds the authentication service to HTTP.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler { return &AuthHandler{Auth: a} }

// ----- DTOs -----

type registerReq struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}
type verifyReq struct {
	Token string `json:"token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID            uint64     `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Role          model.Role `json:"role"`
	TreeID        uint64     `json:"tree_id,omitempty"`
	EmailVerified bool       `json:"email_verified"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func userPartOf(p service.Profile) userPart {
	return userPart{
		ID:            p.ID,
		Email:         p.Email,
		FullName:      p.FullName,
		Role:          p.Role,
		TreeID:        p.TreeID,
		EmailVerified: p.EmailVerified,
	}
}

func authRespOf(p service.Profile, pair service.TokenPair) authResp {
	return authResp{
		User:    userPartOf(p),
		Access:  tokenPart{Token: pair.AccessToken, Expires: pair.AccessExpiresAt},
		Refresh: tokenPart{Token: pair.RefreshToken, Expires: pair.RefreshExpiresAt},
	}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register creates a user account.  No tokens are returned; the client
// logs in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Auth.Register(ctx, req.FullName, req.Email, req.Password, req.ConfirmPassword)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": userPartOf(p)})
}

// Login verifies credentials and returns a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, authRespOf(p, pair))
}

// Refresh rotates a refresh token for a new pair.  The token comes from
// the JSON body or, failing that, the refresh_token cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, pair, err := h.Auth.Refresh(ctx, h.refreshTokenFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, authRespOf(p, pair))
}

// Logout revokes the presented refresh token.  Requires a valid access
// token alongside it.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, accessTokenFrom(c), h.refreshTokenFrom(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ForgotPassword queues a reset mail.  Always 204 so the endpoint cannot
// confirm whether an email is registered.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, req.Email); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetPassword redeems a forgot-password token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Token, req.Password, req.ConfirmPassword); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// VerifyEmail redeems an email-verify token.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.VerifyEmail(ctx, req.Token); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity resolved by the authentication middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	id, _ := middleware.CurrentIdentity(c)
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": id.UserID,
		"role":    id.Role,
		"tree_id": id.TreeID,
	})
}

// refreshTokenFrom extracts the raw refresh token from the body or the
// refresh_token cookie.
func (h *AuthHandler) refreshTokenFrom(c echo.Context) string {
	var req refreshReq
	_ = c.Bind(&req)
	if tok := strings.TrimSpace(req.RefreshToken); tok != "" {
		return tok
	}
	if ck, err := c.Cookie("refresh_token"); err == nil {
		return ck.Value
	}
	return ""
}

// accessTokenFrom mirrors the middleware's extraction for endpoints that
// run outside the authenticated group (logout).
func accessTokenFrom(c echo.Context) string {
	if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if ck, err := c.Cookie("access_token"); err == nil {
		return ck.Value
	}
	return ""
}
