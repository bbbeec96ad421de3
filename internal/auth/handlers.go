package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// AccountLockoutChecker tracks failed logins per account.
type AccountLockoutChecker interface {
	IsAccountLocked(username string) bool
	LockoutRemaining(username string) time.Duration
	RecordFailedAttempt(username string)
	RecordSuccessfulLogin(username string)
}

type Credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Handlers serves the account API.
type Handlers struct {
	service        *Service
	cookieName     string
	secure         bool
	lockoutChecker AccountLockoutChecker
}

func NewHandlers(service *Service, cookieName string, secureCookies bool) *Handlers {
	return &Handlers{service: service, cookieName: cookieName, secure: secureCookies}
}

func (h *Handlers) SetLockoutChecker(checker AccountLockoutChecker) {
	h.lockoutChecker = checker
}

func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
}

// POST /api/auth/register
func (h *Handlers) Register(c echo.Context) error {
	var req Credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, verr)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	return c.JSON(http.StatusCreated, user)
}

// POST /api/auth/login
func (h *Handlers) Login(c echo.Context) error {
	var req Credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	user, err := h.Authenticate(c, req.Username, req.Password)
	if err != nil {
		return err
	}

	token, err := h.StartSession(c, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(http.StatusOK, LoginResponse{Token: token, User: user})
}

// Authenticate checks credentials with lockout accounting and returns
// errors as echo HTTP errors.
func (h *Handlers) Authenticate(c echo.Context, username, password string) (*User, error) {
	if h.lockoutChecker != nil && h.lockoutChecker.IsAccountLocked(username) {
		minutes := int(h.lockoutChecker.LockoutRemaining(username).Minutes()) + 1
		return nil, echo.NewHTTPError(http.StatusTooManyRequests,
			fmt.Sprintf("account temporarily locked due to too many failed attempts, try again in %d minute(s)", minutes))
	}

	user, err := h.service.Authenticate(c.Request().Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			if h.lockoutChecker != nil {
				h.lockoutChecker.RecordFailedAttempt(username)
			}
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "authentication failed")
	}

	if h.lockoutChecker != nil {
		h.lockoutChecker.RecordSuccessfulLogin(username)
	}
	return user, nil
}

// POST /api/auth/logout
func (h *Handlers) Logout(c echo.Context) error {
	h.EndSession(c)
	return c.NoContent(http.StatusNoContent)
}

// StartSession issues a token for user and sets the session cookie.
func (h *Handlers) StartSession(c echo.Context, user *User) (string, error) {
	token, err := h.service.GenerateToken(user)
	if err != nil {
		return "", err
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.service.SessionTTL()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// EndSession clears the session cookie.
func (h *Handlers) EndSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
