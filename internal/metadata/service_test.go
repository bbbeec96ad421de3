package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/contentfilter"
	"github.com/reelscout/reelscout/internal/metadata/tmdb"
)

func newTestService(fake *fakeTMDB) *Service {
	return NewService(fake, NewMemoryCache(DefaultCacheConfig()), contentfilter.NewBlocklist([]string{"blocked"}), zerolog.Nop())
}

func movie(id int, pop float64) catalog.Item {
	return catalog.Item{ID: id, MediaType: catalog.Movie, Title: "m", Popularity: pop}
}

func series(id int, pop float64) catalog.Item {
	return catalog.Item{ID: id, MediaType: catalog.Series, Title: "s", Popularity: pop}
}

func keys(items []catalog.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key()
	}
	return out
}

func TestService_FetchPage_Single(t *testing.T) {
	fake := newFakeTMDB()
	fake.pages["movie/popular"] = catalog.Page{Items: []catalog.Item{movie(1, 5)}, TotalPages: 3}
	svc := newTestService(fake)

	page, err := svc.FetchPage(context.Background(), Query{Endpoints: []string{"movie/popular"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, []string{"movie:1"}, keys(page.Items))

	// Second fetch is served from the cache.
	_, err = svc.FetchPage(context.Background(), Query{Endpoints: []string{"movie/popular"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.callCount("movie/popular"))
}

func TestService_FetchPage_MergeSortsByPopularityStable(t *testing.T) {
	fake := newFakeTMDB()
	fake.pages["discover/movie"] = catalog.Page{Items: []catalog.Item{movie(1, 10), movie(2, 50), movie(3, 30)}, TotalPages: 2}
	fake.pages["discover/tv"] = catalog.Page{Items: []catalog.Item{series(1, 30), series(2, 90)}, TotalPages: 7}
	svc := newTestService(fake)

	q := Query{Endpoints: []string{"discover/movie", "discover/tv"}, SortByPopularity: true}
	page, err := svc.FetchPage(context.Background(), q, 1)
	require.NoError(t, err)

	// movie:3 and tv:1 tie at 30; movie came first in the concatenation.
	assert.Equal(t, []string{"tv:2", "movie:2", "movie:3", "tv:1", "movie:1"}, keys(page.Items))
	assert.Equal(t, 7, page.TotalPages)
}

func TestService_FetchPage_MergeWithoutSortKeepsConcatenation(t *testing.T) {
	fake := newFakeTMDB()
	fake.pages["search/movie"] = catalog.Page{Items: []catalog.Item{movie(1, 1)}, TotalPages: 1}
	fake.pages["search/tv"] = catalog.Page{Items: []catalog.Item{series(1, 99)}, TotalPages: 1}
	svc := newTestService(fake)

	page, err := svc.FetchPage(context.Background(), Query{Endpoints: []string{"search/movie", "search/tv"}}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"movie:1", "tv:1"}, keys(page.Items))
}

func TestService_FetchPage_PartialFailureKeepsSucceedingHalf(t *testing.T) {
	fake := newFakeTMDB()
	upstream := &tmdb.UpstreamError{Endpoint: "discover/tv", Status: 500, Err: tmdb.ErrAPIError}
	fake.pages["discover/movie"] = catalog.Page{Items: []catalog.Item{movie(1, 1), movie(2, 2)}, TotalPages: 4}
	fake.errs["discover/tv"] = upstream
	svc := newTestService(fake)

	q := Query{Endpoints: []string{"discover/movie", "discover/tv"}, SortByPopularity: true}
	page, err := svc.FetchPage(context.Background(), q, 1)

	var partial *PartialError
	require.True(t, errors.As(err, &partial), "error = %v", err)
	assert.Equal(t, "discover/tv", partial.Endpoint)
	assert.ErrorIs(t, err, tmdb.ErrAPIError)
	assert.Equal(t, []string{"movie:2", "movie:1"}, keys(page.Items))
	assert.Equal(t, 4, page.TotalPages)
}

func TestService_FetchPage_BothFail(t *testing.T) {
	fake := newFakeTMDB()
	fake.errs["discover/movie"] = tmdb.ErrRateLimited
	fake.errs["discover/tv"] = tmdb.ErrAPIError
	svc := newTestService(fake)

	page, err := svc.FetchPage(context.Background(), Query{Endpoints: []string{"discover/movie", "discover/tv"}}, 1)
	assert.ErrorIs(t, err, tmdb.ErrRateLimited)
	assert.Empty(t, page.Items)
}

func TestService_GetTitle(t *testing.T) {
	fake := newFakeTMDB()
	fake.movie = &tmdb.MovieDetails{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30", Runtime: 136, Genres: []tmdb.Genre{{ID: 28, Name: "Action"}}}
	fake.credits = &tmdb.CreditsResponse{
		Cast: []tmdb.CastMember{{ID: 6384, Name: "Keanu Reeves", Character: "Neo"}},
		Crew: []tmdb.CrewMember{{Name: "Lana Wachowski", Job: "Director"}, {Name: "Someone", Job: "Editor"}},
	}
	fake.videos = []tmdb.Video{
		{Key: "unofficial", Site: "YouTube", Type: "Trailer"},
		{Key: "official", Site: "YouTube", Type: "Trailer", Official: true},
	}
	fake.recs = catalog.Page{Items: []catalog.Item{movie(604, 1), {ID: 605, MediaType: catalog.Movie, Title: "Blocked sequel"}}}
	svc := newTestService(fake)

	title, err := svc.GetTitle(context.Background(), catalog.Movie, 603)
	require.NoError(t, err)

	assert.Equal(t, "The Matrix", title.Title)
	assert.Equal(t, 1999, title.Year())
	assert.Equal(t, []int{28}, title.GenreIDs)
	assert.Equal(t, []string{"Action"}, title.Genres)
	assert.Equal(t, []string{"Lana Wachowski"}, title.Directors)
	assert.Equal(t, "official", title.TrailerKey)
	assert.Equal(t, []string{"movie:604"}, keys(title.Recommendations))
	require.Len(t, title.Cast, 1)
	assert.Equal(t, "Neo", title.Cast[0].Character)
}

func TestService_GetTitle_OptionalPartsDegrade(t *testing.T) {
	fake := newFakeTMDB()
	fake.series = &tmdb.TVDetails{ID: 1396, Name: "Breaking Bad", Seasons: []tmdb.Season{{SeasonNumber: 1, EpisodeCount: 7}}}
	fake.errs["credits"] = tmdb.ErrAPIError
	fake.errs["videos"] = tmdb.ErrAPIError
	fake.errs["recommendations"] = tmdb.ErrAPIError
	svc := newTestService(fake)

	title, err := svc.GetTitle(context.Background(), catalog.Series, 1396)
	require.NoError(t, err)
	assert.Equal(t, catalog.Series, title.MediaType)
	assert.Empty(t, title.Cast)
	assert.Empty(t, title.Recommendations)
	require.Len(t, title.Seasons, 1)
	assert.Equal(t, 7, title.Seasons[0].EpisodeCount)
}

func TestService_GetTitle_NotFound(t *testing.T) {
	fake := newFakeTMDB()
	fake.errs["movie"] = &tmdb.UpstreamError{Endpoint: "movie/1", Status: 404, Err: tmdb.ErrNotFound}
	svc := newTestService(fake)

	_, err := svc.GetTitle(context.Background(), catalog.Movie, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_GetPerson_FiltersBlocked(t *testing.T) {
	svc := newTestService(newFakeTMDB())

	person, err := svc.GetPerson(context.Background(), 6384)
	require.NoError(t, err)
	assert.Equal(t, "Keanu Reeves", person.Name)
	assert.Equal(t, []string{"movie:603"}, keys(person.Movies))
}

func TestService_Genres_MergedAndCached(t *testing.T) {
	fake := newFakeTMDB()
	fake.genres[catalog.Movie] = []catalog.Genre{{ID: 28, Name: "Action"}, {ID: 18, Name: "Drama"}}
	fake.genres[catalog.Series] = []catalog.Genre{{ID: 18, Name: "Drama"}, {ID: 10765, Name: "Sci-Fi & Fantasy"}}
	svc := newTestService(fake)

	genres, err := svc.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.Genre{{ID: 28, Name: "Action"}, {ID: 18, Name: "Drama"}, {ID: 10765, Name: "Sci-Fi & Fantasy"}}, genres)

	_, err = svc.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.callCount("genres_movie"))
}

func TestService_RandomRecommendation(t *testing.T) {
	fake := newFakeTMDB()
	fake.recs = catalog.Page{Items: []catalog.Item{movie(1, 1), movie(2, 1)}}
	svc := newTestService(fake)

	// movie:1 is a seed, so only movie:2 is eligible.
	item, err := svc.RandomRecommendation(context.Background(), []catalog.Item{movie(1, 1)})
	require.NoError(t, err)
	assert.Equal(t, "movie:2", item.Key())
}

func TestService_RandomRecommendation_FallsBackToPopular(t *testing.T) {
	fake := newFakeTMDB()
	fake.pages["movie/popular"] = catalog.Page{Items: []catalog.Item{movie(42, 1)}}
	svc := newTestService(fake)

	item, err := svc.RandomRecommendation(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "movie:42", item.Key())
	assert.Equal(t, 0, fake.callCount("recommendations"))
}

func TestService_RandomRecommendation_NothingEligible(t *testing.T) {
	svc := newTestService(newFakeTMDB())

	_, err := svc.RandomRecommendation(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRecommendation)
}
