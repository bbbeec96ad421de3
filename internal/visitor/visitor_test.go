package visitor

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, cookie *http.Cookie) (string, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = ID(c)
		return c.NoContent(http.StatusOK)
	}, Middleware(false))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return seen, rec
}

func TestMiddleware_IssuesID(t *testing.T) {
	id, rec := serve(t, nil)

	_, err := uuid.Parse(id)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, id, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestMiddleware_KeepsExistingID(t *testing.T) {
	existing := uuid.NewString()
	id, rec := serve(t, &http.Cookie{Name: CookieName, Value: existing})

	assert.Equal(t, existing, id)
	assert.Empty(t, rec.Result().Cookies())
}

func TestMiddleware_ReplacesMalformedID(t *testing.T) {
	id, rec := serve(t, &http.Cookie{Name: CookieName, Value: "not-a-uuid"})

	assert.NotEqual(t, "not-a-uuid", id)
	assert.Len(t, rec.Result().Cookies(), 1)
}
