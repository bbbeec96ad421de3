package tmdb

import (
	"github.com/reelscout/reelscout/internal/catalog"
)

// Normalize maps a raw list result onto catalog.Item. It is the only place
// that reads upstream field names. The media type comes from the result's
// media_type tag, or fallback when the endpoint does not tag results.
// Anything that is not a movie or series (people, collections) is rejected.
func Normalize(r Result, fallback catalog.MediaType) (catalog.Item, bool) {
	mediaType := catalog.MediaType(r.MediaType)
	if r.MediaType == "" {
		mediaType = fallback
	}
	if !mediaType.Valid() || r.ID <= 0 {
		return catalog.Item{}, false
	}

	item := catalog.Item{
		ID:          r.ID,
		MediaType:   mediaType,
		GenreIDs:    r.GenreIDs,
		VoteAverage: clampVote(r.VoteAverage),
		Overview:    r.Overview,
		Popularity:  r.Popularity,
	}

	if mediaType == catalog.Movie {
		item.Title, item.Date = r.Title, r.ReleaseDate
	} else {
		item.Title, item.Date = r.Name, r.FirstAirDate
	}

	if r.PosterPath != nil {
		item.PosterPath = *r.PosterPath
	}
	if r.BackdropPath != nil {
		item.BackdropPath = *r.BackdropPath
	}

	return item, true
}

// MovieItem converts movie details into the catalog shape.
func MovieItem(d *MovieDetails) catalog.Item {
	item, _ := Normalize(Result{
		ID:           d.ID,
		Title:        d.Title,
		ReleaseDate:  d.ReleaseDate,
		Overview:     d.Overview,
		PosterPath:   d.PosterPath,
		BackdropPath: d.BackdropPath,
		VoteAverage:  d.VoteAverage,
		Popularity:   d.Popularity,
		GenreIDs:     genreIDs(d.Genres),
	}, catalog.Movie)
	return item
}

// SeriesItem converts series details into the catalog shape.
func SeriesItem(d *TVDetails) catalog.Item {
	item, _ := Normalize(Result{
		ID:           d.ID,
		Name:         d.Name,
		FirstAirDate: d.FirstAirDate,
		Overview:     d.Overview,
		PosterPath:   d.PosterPath,
		BackdropPath: d.BackdropPath,
		VoteAverage:  d.VoteAverage,
		Popularity:   d.Popularity,
		GenreIDs:     genreIDs(d.Genres),
	}, catalog.Series)
	return item
}

func genreIDs(genres []Genre) []int {
	ids := make([]int, len(genres))
	for i, g := range genres {
		ids[i] = g.ID
	}
	return ids
}

func clampVote(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 10:
		return 10
	default:
		return v
	}
}
