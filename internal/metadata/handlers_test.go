package metadata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/reelscout/reelscout/internal/metadata/tmdb"
)

func setupTestHandlers(fake *fakeTMDB) *echo.Echo {
	e := echo.New()
	NewHandlers(newTestService(fake)).RegisterRoutes(e.Group("/api/v1/metadata"))
	return e
}

func TestHandlers_GetMovie(t *testing.T) {
	fake := newFakeTMDB()
	fake.movie = &tmdb.MovieDetails{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30"}
	e := setupTestHandlers(fake)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metadata/movie/603", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got Title
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "The Matrix" || got.MediaType != "movie" {
		t.Errorf("got %+v", got.Item)
	}
}

func TestHandlers_StatusMapping(t *testing.T) {
	fake := newFakeTMDB()
	fake.errs["tv"] = &tmdb.UpstreamError{Endpoint: "tv/9", Status: 404, Err: tmdb.ErrNotFound}
	e := setupTestHandlers(fake)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"invalid id", "/api/v1/metadata/movie/abc", http.StatusBadRequest},
		{"zero id", "/api/v1/metadata/movie/0", http.StatusBadRequest},
		{"not found", "/api/v1/metadata/tv/9", http.StatusNotFound},
		{"bad season", "/api/v1/metadata/tv/9/season/x", http.StatusBadRequest},
		{"season ok", "/api/v1/metadata/tv/9/season/2", http.StatusOK},
		{"person ok", "/api/v1/metadata/person/6384", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("GET %s status = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}
