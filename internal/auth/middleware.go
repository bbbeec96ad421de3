package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

const userContextKey = "sessionUser"

// TokenValidator verifies session tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Middleware resolves the session from a bearer token or the session cookie.
type Middleware struct {
	validator  TokenValidator
	cookieName string
}

// NewMiddleware creates session middleware reading cookieName.
func NewMiddleware(validator TokenValidator, cookieName string) *Middleware {
	return &Middleware{validator: validator, cookieName: cookieName}
}

// Identify attaches the session user when a valid token is present and
// lets anonymous requests through.
func (m *Middleware) Identify() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := m.extractToken(c); token != "" {
				if claims, err := m.validator.ValidateToken(token); err == nil {
					c.Set(userContextKey, claims)
				}
			}
			return next(c)
		}
	}
}

// RequireAPI rejects requests without a valid session with 401.
func (m *Middleware) RequireAPI() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetUser(c) != nil {
				return next(c)
			}

			token := m.extractToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization token")
			}
			claims, err := m.validator.ValidateToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(userContextKey, claims)
			return next(c)
		}
	}
}

// RequirePage redirects requests without a valid session to the login
// page, passing the requested path as callbackUrl.
func (m *Middleware) RequirePage() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if GetUser(c) == nil {
				token := m.extractToken(c)
				claims, err := m.validator.ValidateToken(token)
				if token == "" || err != nil {
					return c.Redirect(http.StatusSeeOther, LoginURL(c.Request().URL.RequestURI()))
				}
				c.Set(userContextKey, claims)
			}
			return next(c)
		}
	}
}

// LoginURL builds the login page URL returning to callback afterwards.
func LoginURL(callback string) string {
	return "/login?" + url.Values{"callbackUrl": {callback}}.Encode()
}

// SafeCallback returns callback when it is a local path, "/" otherwise.
func SafeCallback(callback string) string {
	if callback == "" || !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") || strings.Contains(callback, `\`) {
		return "/"
	}
	return callback
}

// GetUser returns the session claims attached to the request, or nil.
func GetUser(c echo.Context) *Claims {
	claims, ok := c.Get(userContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// SetUser attaches claims to the request context.
func SetUser(c echo.Context, claims *Claims) {
	c.Set(userContextKey, claims)
}

func (m *Middleware) extractToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := c.Cookie(m.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
