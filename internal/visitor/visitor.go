// Package visitor gives every browser a stable anonymous id, used to key
// per-visitor state such as the discovery memory cache.
package visitor

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// CookieName holds the visitor id.
	CookieName = "rs_visitor"

	contextKey = "visitorID"
	cookieTTL  = 365 * 24 * time.Hour
)

// Middleware reads the visitor cookie, issuing a new id when it is missing
// or malformed, and stores the id on the context.
func Middleware(secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if cookie, err := c.Cookie(CookieName); err == nil {
				if parsed, err := uuid.Parse(cookie.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     CookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cookieTTL.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(contextKey, id)
			return next(c)
		}
	}
}

// ID returns the visitor id set by Middleware, or "" outside it.
func ID(c echo.Context) string {
	id, _ := c.Get(contextKey).(string)
	return id
}
