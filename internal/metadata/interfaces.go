package metadata

import (
	"context"
	"net/url"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/metadata/tmdb"
)

// TMDBClient defines the TMDB operations the service depends on.
type TMDBClient interface {
	IsConfigured() bool
	List(ctx context.Context, endpoint string, params url.Values) (catalog.Page, error)
	GetMovie(ctx context.Context, id int) (*tmdb.MovieDetails, error)
	GetSeries(ctx context.Context, id int) (*tmdb.TVDetails, error)
	GetSeasonDetails(ctx context.Context, seriesID, seasonNumber int) (*tmdb.SeasonDetails, error)
	GetVideos(ctx context.Context, mediaType catalog.MediaType, id int) ([]tmdb.Video, error)
	GetCredits(ctx context.Context, mediaType catalog.MediaType, id int) (*tmdb.CreditsResponse, error)
	GetRecommendations(ctx context.Context, mediaType catalog.MediaType, id, page int) (catalog.Page, error)
	GetPerson(ctx context.Context, id int) (*tmdb.Person, error)
	GetPersonMovieCredits(ctx context.Context, id int) ([]catalog.Item, error)
	GetGenres(ctx context.Context, mediaType catalog.MediaType) ([]catalog.Genre, error)
	GetImageURL(path string, size string) string
}
