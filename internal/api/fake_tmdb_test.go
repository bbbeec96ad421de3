package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

const (
	listPages     = 3
	itemsPerPage  = 20
	blockedIndex  = 5
	matrixID      = 603
	matrixTrailer = "vKQi3bBA1y8"
)

// fakeTMDB is an upstream double whose list pages can be made to fail.
type fakeTMDB struct {
	*httptest.Server

	mu      sync.Mutex
	failing map[string]bool
}

// failPage makes endpoint answer page with a 500 until called with fail false.
func (f *fakeTMDB) failPage(endpoint string, page int, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[endpoint+"#"+strconv.Itoa(page)] = fail
}

// failed writes a 500 when the request's endpoint and page are failing.
func (f *fakeTMDB) failed(w http.ResponseWriter, r *http.Request) bool {
	page := r.URL.Query().Get("page")
	if page == "" {
		page = "1"
	}
	f.mu.Lock()
	fail := f.failing[r.URL.Path[1:]+"#"+page]
	f.mu.Unlock()
	if !fail {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]any{"status_code": 11, "status_message": "Internal error."})
	return true
}

// newFakeTMDB serves deterministic list pages and one detailed movie.
// Every movie list page holds one title matching the "forbidden" keyword.
func newFakeTMDB(t *testing.T) *fakeTMDB {
	t.Helper()
	fake := &fakeTMDB{failing: make(map[string]bool)}
	mux := http.NewServeMux()

	movies := func(w http.ResponseWriter, r *http.Request) {
		if fake.failed(w, r) {
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		results := make([]map[string]any, 0, itemsPerPage)
		for i := 1; i <= itemsPerPage; i++ {
			id := page*100 + i
			title := fmt.Sprintf("Movie %d", id)
			if i == blockedIndex {
				title = fmt.Sprintf("Forbidden Zone %d", id)
			}
			results = append(results, map[string]any{
				"id": id, "title": title, "release_date": "2005-06-15",
				"vote_average": 7.1, "popularity": float64(1000 - id), "genre_ids": []int{28},
			})
		}
		writeJSON(w, map[string]any{"page": page, "results": results, "total_pages": listPages})
	}
	series := func(w http.ResponseWriter, r *http.Request) {
		if fake.failed(w, r) {
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		results := make([]map[string]any, 0, itemsPerPage)
		for i := 1; i <= itemsPerPage; i++ {
			id := page*100 + i
			results = append(results, map[string]any{
				"id": id, "name": fmt.Sprintf("Series %d", id), "first_air_date": "2012-01-01",
				"vote_average": 8.0, "popularity": float64(900 - id), "genre_ids": []int{18},
			})
		}
		writeJSON(w, map[string]any{"page": page, "results": results, "total_pages": listPages})
	}

	for _, ep := range []string{"movie/popular", "movie/top_rated", "movie/upcoming", "discover/movie"} {
		mux.HandleFunc("GET /"+ep, movies)
	}
	for _, ep := range []string{"tv/popular", "tv/top_rated", "discover/tv"} {
		mux.HandleFunc("GET /"+ep, series)
	}

	mux.HandleFunc("GET /search/multi", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"page": 1, "total_pages": 1, "results": []map[string]any{
			{"media_type": "movie", "id": 272, "title": "Batman Begins", "release_date": "2005-06-10", "vote_average": 7.7},
			{"media_type": "person", "id": 3894, "name": "Christian Bale"},
			{"media_type": "tv", "id": 2098, "name": "Batman: The Animated Series", "first_air_date": "1992-09-05", "vote_average": 8.5},
		}})
	})

	mux.HandleFunc("GET /genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"genres": []map[string]any{{"id": 28, "name": "Action"}}})
	})
	mux.HandleFunc("GET /genre/tv/list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"genres": []map[string]any{{"id": 18, "name": "Drama"}}})
	})

	mux.HandleFunc("GET /movie/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !isMatrix(w, r) {
			return
		}
		writeJSON(w, map[string]any{
			"id": matrixID, "title": "The Matrix", "release_date": "1999-03-30",
			"overview": "A hacker learns the truth.", "vote_average": 8.2, "runtime": 136,
			"tagline": "Welcome to the Real World.", "genres": []map[string]any{{"id": 28, "name": "Action"}},
		})
	})
	mux.HandleFunc("GET /movie/{id}/credits", func(w http.ResponseWriter, r *http.Request) {
		if !isMatrix(w, r) {
			return
		}
		writeJSON(w, map[string]any{
			"id":   matrixID,
			"cast": []map[string]any{{"id": 6384, "name": "Keanu Reeves", "character": "Neo"}},
			"crew": []map[string]any{{"id": 9339, "name": "Lana Wachowski", "job": "Director"}},
		})
	})
	mux.HandleFunc("GET /movie/{id}/videos", func(w http.ResponseWriter, r *http.Request) {
		if !isMatrix(w, r) {
			return
		}
		writeJSON(w, map[string]any{"results": []map[string]any{
			{"key": "teaser1", "site": "YouTube", "type": "Teaser"},
			{"key": matrixTrailer, "site": "YouTube", "type": "Trailer", "official": true},
		}})
	})
	mux.HandleFunc("GET /movie/{id}/recommendations", func(w http.ResponseWriter, r *http.Request) {
		if !isMatrix(w, r) {
			return
		}
		writeJSON(w, map[string]any{"page": 1, "total_pages": 1, "results": []map[string]any{
			{"id": 604, "title": "The Matrix Reloaded", "release_date": "2003-05-15", "vote_average": 7.0},
			{"id": 605, "title": "Forbidden Matrix", "release_date": "2003-11-05", "vote_average": 6.7},
		}})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		notFound(w)
	})

	fake.Server = httptest.NewServer(mux)
	t.Cleanup(fake.Close)
	return fake
}

func isMatrix(w http.ResponseWriter, r *http.Request) bool {
	if r.PathValue("id") != strconv.Itoa(matrixID) {
		notFound(w)
		return false
	}
	return true
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status_code":    34,
		"status_message": "The resource you requested could not be found.",
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
