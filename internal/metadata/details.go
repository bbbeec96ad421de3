package metadata

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/metadata/tmdb"
)

const maxCast = 12

// CastCredit is one billed cast member.
type CastCredit struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profilePath,omitempty"`
}

// SeasonSummary is a season entry on a series page.
type SeasonSummary struct {
	Number       int    `json:"number"`
	Name         string `json:"name"`
	AirDate      string `json:"airDate,omitempty"`
	EpisodeCount int    `json:"episodeCount"`
	PosterPath   string `json:"posterPath,omitempty"`
}

// Title is everything shown on a movie or series page.
type Title struct {
	catalog.Item
	Tagline         string          `json:"tagline,omitempty"`
	Status          string          `json:"status,omitempty"`
	Runtime         int             `json:"runtime,omitempty"`
	Genres          []string        `json:"genres,omitempty"`
	Seasons         []SeasonSummary `json:"seasons,omitempty"`
	Cast            []CastCredit    `json:"cast"`
	Directors       []string        `json:"directors,omitempty"`
	TrailerKey      string          `json:"trailerKey,omitempty"`
	Recommendations []catalog.Item  `json:"recommendations"`
}

// PersonPage is a person's biography and movie filmography.
type PersonPage struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Biography   string         `json:"biography,omitempty"`
	Birthday    string         `json:"birthday,omitempty"`
	Department  string         `json:"department,omitempty"`
	ProfilePath string         `json:"profilePath,omitempty"`
	Movies      []catalog.Item `json:"movies"`
}

// Episode is one episode of a season page.
type Episode struct {
	Number      int     `json:"number"`
	Name        string  `json:"name"`
	Overview    string  `json:"overview,omitempty"`
	AirDate     string  `json:"airDate,omitempty"`
	Runtime     int     `json:"runtime,omitempty"`
	VoteAverage float64 `json:"voteAverage"`
	StillPath   string  `json:"stillPath,omitempty"`
}

// SeasonPage is a season with its episodes.
type SeasonPage struct {
	SeriesID   int       `json:"seriesId"`
	Number     int       `json:"number"`
	Name       string    `json:"name"`
	Overview   string    `json:"overview,omitempty"`
	AirDate    string    `json:"airDate,omitempty"`
	PosterPath string    `json:"posterPath,omitempty"`
	Episodes   []Episode `json:"episodes"`
}

// GetTitle loads details, credits, videos and recommendations concurrently.
// Only a details failure fails the page; the other parts degrade to empty.
func (s *Service) GetTitle(ctx context.Context, mediaType catalog.MediaType, id int) (*Title, error) {
	if !s.IsConfigured() {
		return nil, ErrNoProvidersConfigured
	}
	if !mediaType.Valid() {
		return nil, fmt.Errorf("%w: unknown media type %q", ErrNotFound, mediaType)
	}

	key := "title:" + catalog.MakeKey(mediaType, id)
	var cached Title
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	title := &Title{}
	var credits *tmdb.CreditsResponse
	var videos []tmdb.Video
	var recs catalog.Page

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if mediaType == catalog.Movie {
			d, err := s.tmdb.GetMovie(gctx, id)
			if err != nil {
				return err
			}
			title.Item = tmdb.MovieItem(d)
			title.Tagline, title.Status, title.Runtime = d.Tagline, d.Status, d.Runtime
			title.Genres = genreNames(d.Genres)
			return nil
		}

		d, err := s.tmdb.GetSeries(gctx, id)
		if err != nil {
			return err
		}
		title.Item = tmdb.SeriesItem(d)
		title.Tagline, title.Status = d.Tagline, d.Status
		if len(d.EpisodeRunTime) > 0 {
			title.Runtime = d.EpisodeRunTime[0]
		}
		title.Genres = genreNames(d.Genres)
		for _, season := range d.Seasons {
			title.Seasons = append(title.Seasons, SeasonSummary{
				Number:       season.SeasonNumber,
				Name:         season.Name,
				AirDate:      season.AirDate,
				EpisodeCount: season.EpisodeCount,
				PosterPath:   deref(season.PosterPath),
			})
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if credits, err = s.tmdb.GetCredits(gctx, mediaType, id); err != nil {
			s.logger.Warn().Err(err).Int("id", id).Msg("credits unavailable")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if videos, err = s.tmdb.GetVideos(gctx, mediaType, id); err != nil {
			s.logger.Warn().Err(err).Int("id", id).Msg("videos unavailable")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if recs, err = s.tmdb.GetRecommendations(gctx, mediaType, id, 1); err != nil {
			s.logger.Warn().Err(err).Int("id", id).Msg("recommendations unavailable")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, notFound(err)
	}

	if s.blocklist != nil && s.blocklist.IsBlocked(title.Item) {
		return nil, fmt.Errorf("%w: %s is blocked", ErrNotFound, title.Key())
	}

	title.Cast = []CastCredit{}
	if credits != nil {
		for _, c := range credits.Cast {
			if len(title.Cast) == maxCast {
				break
			}
			title.Cast = append(title.Cast, CastCredit{
				ID:          c.ID,
				Name:        c.Name,
				Character:   c.Character,
				ProfilePath: deref(c.ProfilePath),
			})
		}
		for _, c := range credits.Crew {
			if c.Job == "Director" {
				title.Directors = append(title.Directors, c.Name)
			}
		}
	}
	title.TrailerKey = pickTrailer(videos)
	title.Recommendations = s.visible(recs.Items)
	if title.Recommendations == nil {
		title.Recommendations = []catalog.Item{}
	}

	s.setCached(ctx, key, title)
	return title, nil
}

// GetPerson loads a person's biography and movie credits concurrently.
func (s *Service) GetPerson(ctx context.Context, id int) (*PersonPage, error) {
	if !s.IsConfigured() {
		return nil, ErrNoProvidersConfigured
	}

	var person *tmdb.Person
	var movies []catalog.Item

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		person, err = s.tmdb.GetPerson(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		movies, err = s.tmdb.GetPersonMovieCredits(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, notFound(err)
	}

	visible := s.visible(movies)
	if visible == nil {
		visible = []catalog.Item{}
	}

	return &PersonPage{
		ID:          person.ID,
		Name:        person.Name,
		Biography:   person.Biography,
		Birthday:    person.Birthday,
		Department:  person.KnownForDepartment,
		ProfilePath: deref(person.ProfilePath),
		Movies:      visible,
	}, nil
}

// GetSeason loads one season of a series.
func (s *Service) GetSeason(ctx context.Context, seriesID, number int) (*SeasonPage, error) {
	if !s.IsConfigured() {
		return nil, ErrNoProvidersConfigured
	}

	key := "season:" + strconv.Itoa(seriesID) + ":" + strconv.Itoa(number)
	var cached SeasonPage
	if s.getCached(ctx, key, &cached) {
		return &cached, nil
	}

	d, err := s.tmdb.GetSeasonDetails(ctx, seriesID, number)
	if err != nil {
		return nil, notFound(err)
	}

	page := &SeasonPage{
		SeriesID:   seriesID,
		Number:     d.SeasonNumber,
		Name:       d.Name,
		Overview:   d.Overview,
		AirDate:    d.AirDate,
		PosterPath: deref(d.PosterPath),
		Episodes:   make([]Episode, len(d.Episodes)),
	}
	for i, ep := range d.Episodes {
		page.Episodes[i] = Episode{
			Number:      ep.EpisodeNumber,
			Name:        ep.Name,
			Overview:    ep.Overview,
			AirDate:     ep.AirDate,
			Runtime:     ep.Runtime,
			VoteAverage: ep.VoteAverage,
			StillPath:   deref(ep.StillPath),
		}
	}

	s.setCached(ctx, key, page)
	return page, nil
}

// ImageURL resolves an image path fragment to a CDN URL.
func (s *Service) ImageURL(path, size string) string {
	if s.tmdb == nil {
		return ""
	}
	return s.tmdb.GetImageURL(path, size)
}

// pickTrailer prefers an official YouTube trailer, then any YouTube trailer.
func pickTrailer(videos []tmdb.Video) string {
	var fallback string
	for _, v := range videos {
		if v.Site != "YouTube" || v.Type != "Trailer" {
			continue
		}
		if v.Official {
			return v.Key
		}
		if fallback == "" {
			fallback = v.Key
		}
	}
	return fallback
}

func genreNames(genres []tmdb.Genre) []string {
	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.Name
	}
	return names
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
