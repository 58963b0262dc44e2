package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/middleware"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/usecase"
)

// AuthUseCases is the slice of usecase.AuthService the handler depends on.
type AuthUseCases interface {
	Register(ctx context.Context, auth domain.AuthContext, in usecase.RegisterInput) domain.Result[domain.User]
	Login(ctx context.Context, auth domain.AuthContext, in usecase.LoginInput) domain.Result[usecase.AuthToken]
	Me(ctx context.Context, auth domain.AuthContext) domain.Result[domain.User]
}

// CookieSettings controls the access token cookie set on login.
type CookieSettings struct {
	Name   string
	Secure bool
}

// AuthHandler exposes registration, login, logout and the current identity.
type AuthHandler struct {
	auth   AuthUseCases
	cookie CookieSettings
	now    func() time.Time
}

func NewAuthHandler(auth AuthUseCases, cookie CookieSettings) *AuthHandler {
	return &AuthHandler{auth: auth, cookie: cookie, now: time.Now}
}

// AuthLimits holds optional rate limit middleware for the credential endpoints.
type AuthLimits struct {
	Register gin.HandlerFunc
	Login    gin.HandlerFunc
}

func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, limits AuthLimits) {
	r.POST("/register", chain(limits.Register, h.Register)...)
	r.POST("/login", chain(limits.Login, h.Login)...)
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
}

// Register creates a customer account.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var in usecase.RegisterInput
	ctx := decodeJSON(c, &in)
	response.Write(c, h.auth.Register(ctx, middleware.Auth(c), in))
}

// Login verifies credentials, returns the access token and sets it as an HTTP-only cookie.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var in usecase.LoginInput
	ctx := decodeJSON(c, &in)

	result := h.auth.Login(ctx, middleware.Auth(c), in)
	if result.IsOk() && h.cookie.Name != "" {
		token := result.Value()
		maxAge := int(token.ExpiresAt.Sub(h.now()).Seconds())
		if maxAge > 0 {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(h.cookie.Name, token.AccessToken, maxAge, "/", "", h.cookie.Secure, true)
		}
	}
	response.Write(c, result)
}

// Logout clears the access token cookie. Bearer tokens stay valid until they expire.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if h.cookie.Name != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	}
	response.Write(c, domain.Ok(gin.H{"loggedOut": true}))
}

// Me returns the authenticated user.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	response.Write(c, h.auth.Me(c.Request.Context(), middleware.Auth(c)))
}

// chain prepends limit to handler when it is set.
func chain(limit gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	if limit == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{limit, handler}
}
