package metadata

import (
	"context"
	"net/url"
	"sync"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/metadata/tmdb"
)

// fakeTMDB serves canned list pages keyed by endpoint and counts calls.
type fakeTMDB struct {
	mu      sync.Mutex
	pages   map[string]catalog.Page
	errs    map[string]error
	calls   map[string]int
	movie   *tmdb.MovieDetails
	series  *tmdb.TVDetails
	credits *tmdb.CreditsResponse
	videos  []tmdb.Video
	recs    catalog.Page
	genres  map[catalog.MediaType][]catalog.Genre
}

func newFakeTMDB() *fakeTMDB {
	return &fakeTMDB{
		pages:  make(map[string]catalog.Page),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
		genres: make(map[catalog.MediaType][]catalog.Genre),
	}
}

func (f *fakeTMDB) record(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	return f.errs[key]
}

func (f *fakeTMDB) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeTMDB) IsConfigured() bool { return true }

func (f *fakeTMDB) List(_ context.Context, endpoint string, _ url.Values) (catalog.Page, error) {
	if err := f.record(endpoint); err != nil {
		return catalog.Page{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages[endpoint], nil
}

func (f *fakeTMDB) GetMovie(context.Context, int) (*tmdb.MovieDetails, error) {
	if err := f.record("movie"); err != nil {
		return nil, err
	}
	return f.movie, nil
}

func (f *fakeTMDB) GetSeries(context.Context, int) (*tmdb.TVDetails, error) {
	if err := f.record("tv"); err != nil {
		return nil, err
	}
	return f.series, nil
}

func (f *fakeTMDB) GetSeasonDetails(_ context.Context, _ int, n int) (*tmdb.SeasonDetails, error) {
	if err := f.record("season"); err != nil {
		return nil, err
	}
	return &tmdb.SeasonDetails{SeasonNumber: n, Name: "Season", Episodes: []tmdb.EpisodeDetails{{EpisodeNumber: 1, Name: "Pilot"}}}, nil
}

func (f *fakeTMDB) GetVideos(context.Context, catalog.MediaType, int) ([]tmdb.Video, error) {
	if err := f.record("videos"); err != nil {
		return nil, err
	}
	return f.videos, nil
}

func (f *fakeTMDB) GetCredits(context.Context, catalog.MediaType, int) (*tmdb.CreditsResponse, error) {
	if err := f.record("credits"); err != nil {
		return nil, err
	}
	return f.credits, nil
}

func (f *fakeTMDB) GetRecommendations(context.Context, catalog.MediaType, int, int) (catalog.Page, error) {
	if err := f.record("recommendations"); err != nil {
		return catalog.Page{}, err
	}
	return f.recs, nil
}

func (f *fakeTMDB) GetPerson(_ context.Context, id int) (*tmdb.Person, error) {
	if err := f.record("person"); err != nil {
		return nil, err
	}
	return &tmdb.Person{ID: id, Name: "Keanu Reeves"}, nil
}

func (f *fakeTMDB) GetPersonMovieCredits(context.Context, int) ([]catalog.Item, error) {
	if err := f.record("person_credits"); err != nil {
		return nil, err
	}
	return []catalog.Item{
		{ID: 603, MediaType: catalog.Movie, Title: "The Matrix"},
		{ID: 9, MediaType: catalog.Movie, Title: "Blocked Film"},
	}, nil
}

func (f *fakeTMDB) GetGenres(_ context.Context, mt catalog.MediaType) ([]catalog.Genre, error) {
	if err := f.record("genres_" + string(mt)); err != nil {
		return nil, err
	}
	return f.genres[mt], nil
}

func (f *fakeTMDB) GetImageURL(path string, size string) string {
	return "https://img/" + size + path
}
