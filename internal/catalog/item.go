// Package catalog holds the normalized movie and series shape shared by the
// metadata client, the content filter, the discovery controller and the
// watchlist.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// MediaType distinguishes movies from series. Values match TMDB's media_type.
type MediaType string

const (
	Movie  MediaType = "movie"
	Series MediaType = "tv"
)

// ParseMediaType accepts the wire values plus "series" as an alias for tv.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return Movie, nil
	case "tv", "series":
		return Series, nil
	default:
		return "", fmt.Errorf("invalid media type %q", s)
	}
}

// Valid reports whether t is one of the two media types.
func (t MediaType) Valid() bool {
	return t == Movie || t == Series
}

// Label is the human-facing name of the media type.
func (t MediaType) Label() string {
	if t == Series {
		return "TV Series"
	}
	return "Movie"
}

// Item is a normalized movie or series.
// (MediaType, ID) identifies an item; movie and series ids are independent.
type Item struct {
	ID           int       `json:"id"`
	MediaType    MediaType `json:"mediaType"`
	Title        string    `json:"title"`
	Date         string    `json:"date,omitempty"` // YYYY-MM-DD, may be empty or partial
	GenreIDs     []int     `json:"genreIds,omitempty"`
	VoteAverage  float64   `json:"voteAverage"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`
	BackdropPath string    `json:"backdropPath,omitempty"`
	Popularity   float64   `json:"popularity,omitempty"`
}

// Key returns the identity of the item, e.g. "movie:603".
func (i Item) Key() string {
	return MakeKey(i.MediaType, i.ID)
}

// MakeKey builds the identity string for a media type and id.
func MakeKey(t MediaType, id int) string {
	return string(t) + ":" + strconv.Itoa(id)
}

// Year returns the year from Date, or 0 when the date is missing or malformed.
func (i Item) Year() int {
	if len(i.Date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(i.Date[:4])
	if err != nil {
		return 0
	}
	return y
}

// HasGenre reports whether the item is tagged with the genre.
func (i Item) HasGenre(id int) bool {
	for _, g := range i.GenreIDs {
		if g == id {
			return true
		}
	}
	return false
}

// Page is one page of normalized results.
type Page struct {
	Items      []Item `json:"items"`
	TotalPages int    `json:"totalPages"`
}

// Genre is an upstream genre id with its display name.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
