package discovery

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelscout/reelscout/internal/contentfilter"
)

func mustRating(t *testing.T, code string) contentfilter.RatingBand {
	t.Helper()
	b, err := contentfilter.ParseRatingBand(code)
	require.NoError(t, err)
	return b
}

func mustYears(t *testing.T, s string) contentfilter.YearRange {
	t.Helper()
	y, err := contentfilter.ParseYearRange(s)
	require.NoError(t, err)
	return y
}

func TestNormalize_UpcomingForcesMovies(t *testing.T) {
	f := FilterState{
		Category: CategoryUpcoming,
		ItemType: ItemTypeSeries,
		Genre:    18,
		Rating:   mustRating(t, "8"),
		Years:    mustYears(t, "1990s"),
	}.Normalize()

	assert.Equal(t, ItemTypeMovie, f.ItemType)
	assert.Zero(t, f.Genre)
	assert.True(t, f.Rating.IsAll())
	assert.True(t, f.Years.IsAny())
	assert.True(t, f.SecondaryDisabled())
	assert.True(t, f.ItemTypeLocked())
}

func TestNormalize_SearchLiftsUpcomingRestrictions(t *testing.T) {
	f := FilterState{Category: CategoryUpcoming, ItemType: ItemTypeSeries, Search: "  the   office "}.Normalize()

	assert.Equal(t, "the office", f.Search)
	assert.Equal(t, ItemTypeSeries, f.ItemType)
	assert.False(t, f.SecondaryDisabled())
}

func TestNormalize_ZeroValueIsDefault(t *testing.T) {
	assert.Equal(t, DefaultFilters(), FilterState{}.Normalize())
}

func TestPrimaryKey(t *testing.T) {
	tests := []struct {
		name string
		f    FilterState
		want string
	}{
		{"default", DefaultFilters(), "discover|all|0|all|all"},
		{"discover with filters", FilterState{ItemType: ItemTypeMovie, Genre: 28, Rating: mustRating(t, "7"), Years: mustYears(t, "1990s")}, "discover|movie|28|7|1990s"},
		{"popular", FilterState{Category: CategoryPopular, ItemType: ItemTypeSeries}, "popular|tv"},
		{"popular ignores secondary", FilterState{Category: CategoryPopular, Genre: 35}, "popular|all"},
		{"trending ignores type", FilterState{Category: CategoryTrending, ItemType: ItemTypeMovie}, "trending_week"},
		{"upcoming", FilterState{Category: CategoryUpcoming, ItemType: ItemTypeSeries}, "upcoming|movie"},
		{"search is case-insensitive", FilterState{Category: CategoryPopular, Search: "BatMan"}, "search|all|batman"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.PrimaryKey())
		})
	}
}

func TestQuery(t *testing.T) {
	t.Run("search movie", func(t *testing.T) {
		q := FilterState{Search: "alien", ItemType: ItemTypeMovie}.Query()
		assert.Equal(t, []string{"search/movie"}, q.Endpoints)
		assert.Equal(t, "alien", q.Params.Get("query"))
		assert.Equal(t, "false", q.Params.Get("include_adult"))
	})

	t.Run("search overrides category", func(t *testing.T) {
		q := FilterState{Search: "alien", Category: CategoryUpcoming, ItemType: ItemTypeSeries}.Query()
		assert.Equal(t, []string{"search/tv"}, q.Endpoints)
	})

	t.Run("popular all merges both types", func(t *testing.T) {
		q := FilterState{Category: CategoryPopular}.Query()
		assert.Equal(t, []string{"movie/popular", "tv/popular"}, q.Endpoints)
		assert.True(t, q.SortByPopularity)
	})

	t.Run("top rated series", func(t *testing.T) {
		q := FilterState{Category: CategoryTopRated, ItemType: ItemTypeSeries}.Query()
		assert.Equal(t, []string{"tv/top_rated"}, q.Endpoints)
		assert.False(t, q.SortByPopularity)
	})

	t.Run("upcoming", func(t *testing.T) {
		q := FilterState{Category: CategoryUpcoming}.Query()
		assert.Equal(t, []string{"movie/upcoming"}, q.Endpoints)
	})

	t.Run("trending", func(t *testing.T) {
		q := FilterState{Category: CategoryTrending, ItemType: ItemTypeSeries}.Query()
		assert.Equal(t, []string{"trending/all/week"}, q.Endpoints)
	})

	t.Run("discover sends filters upstream", func(t *testing.T) {
		q := FilterState{
			ItemType: ItemTypeMovie,
			Genre:    28,
			Rating:   mustRating(t, "7"),
			Years:    mustYears(t, "1990s"),
		}.Query()

		assert.Equal(t, []string{"discover/movie"}, q.Endpoints)
		assert.Equal(t, "28", q.Params.Get("with_genres"))
		assert.Equal(t, "7", q.Params.Get("vote_average.gte"))
		assert.Equal(t, "8", q.Params.Get("vote_average.lte"))
		assert.Equal(t, "1990-01-01", q.Params.Get("primary_release_date.gte"))
		assert.Equal(t, "1999-12-31", q.Params.Get("first_air_date.lte"))
		assert.Equal(t, "popularity.desc", q.Params.Get("sort_by"))
	})

	t.Run("discover open-ended band", func(t *testing.T) {
		q := FilterState{Rating: mustRating(t, "9")}.Query()
		assert.Equal(t, "9", q.Params.Get("vote_average.gte"))
		assert.Empty(t, q.Params.Get("vote_average.lte"))
	})
}

func TestFilterState_LocalSecondary(t *testing.T) {
	genre, rating, years := 28, mustRating(t, "7"), mustYears(t, "1990s")

	discover := FilterState{Category: CategoryDiscover, Genre: genre, Rating: rating, Years: years}.localSecondary()
	assert.Equal(t, 0, discover.Genre)
	assert.True(t, discover.Years.IsAny())
	assert.Equal(t, "7", discover.Rating.Code)

	popular := FilterState{Category: CategoryPopular, Genre: genre, Rating: rating, Years: years}.localSecondary()
	assert.Equal(t, genre, popular.Genre)
	assert.Equal(t, years, popular.Years)

	upcoming := FilterState{Category: CategoryUpcoming, Genre: genre, Rating: rating}.localSecondary()
	assert.True(t, upcoming.IsZero())
}

func TestFiltersFromQuery(t *testing.T) {
	q, err := url.ParseQuery("search=batman&itemType=ALL")
	require.NoError(t, err)

	f := FiltersFromQuery(q, DefaultFilters())
	assert.Equal(t, "batman", f.Search)
	assert.Equal(t, ItemTypeAll, f.ItemType)
	assert.Equal(t, []string{"search/multi"}, f.Query().Endpoints)
}

func TestFiltersFromQuery_IgnoresMalformedValues(t *testing.T) {
	q := url.Values{
		ParamCategory: {"nope"},
		ParamItemType: {"podcast"},
		ParamGenre:    {"abc"},
		ParamRating:   {"11"},
		ParamYear:     {"soon"},
	}
	assert.Equal(t, DefaultFilters(), FiltersFromQuery(q, DefaultFilters()))
}

func TestValues_CanonicalForm(t *testing.T) {
	tests := []struct {
		name string
		f    FilterState
		want string
	}{
		{"defaults are empty", DefaultFilters(), ""},
		{"upcoming omits locked controls", FilterState{Category: CategoryUpcoming, ItemType: ItemTypeSeries, Genre: 12}, "listCategory=upcoming"},
		{"search", FilterState{Search: "batman"}, "search=batman"},
		{"search with upcoming keeps type", FilterState{Search: "x", Category: CategoryUpcoming, ItemType: ItemTypeSeries}, "itemType=tv&listCategory=upcoming&search=x"},
		{"all secondaries", FilterState{ItemType: ItemTypeMovie, Genre: 28, Rating: mustRating(t, "8"), Years: mustYears(t, "2001")}, "genre=28&itemType=movie&rating=8&year=2001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.f.Values().Encode())
		})
	}
}

func TestValues_RoundTrip(t *testing.T) {
	f := FilterState{
		Category: CategoryTopRated,
		ItemType: ItemTypeSeries,
		Genre:    18,
		Rating:   mustRating(t, "0"),
		Years:    mustYears(t, "1980s"),
	}.Normalize()

	got := FiltersFromQuery(f.Values(), DefaultFilters())
	assert.Equal(t, f, got)
	assert.Equal(t, "/?"+f.Values().Encode(), f.URL("/"))
	assert.Equal(t, "/", DefaultFilters().URL("/"))
}
