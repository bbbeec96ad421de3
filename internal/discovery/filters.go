// Package discovery implements the browse state machine: filter state,
// primary-key derivation, page accumulation with deduplication, bounded
// auto-retry on filtered-out pages, stale-response protection and the
// cross-navigation memory cache.
package discovery

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/contentfilter"
	"github.com/reelscout/reelscout/internal/metadata"
)

// Category is a browse list.
type Category string

const (
	CategoryDiscover Category = "discover"
	CategoryPopular  Category = "popular"
	CategoryTopRated Category = "top_rated"
	CategoryUpcoming Category = "upcoming"
	CategoryTrending Category = "trending_week"
)

// Categories lists the categories in menu order.
var Categories = []Category{CategoryDiscover, CategoryPopular, CategoryTopRated, CategoryUpcoming, CategoryTrending}

// Label is the menu label of a category.
func (c Category) Label() string {
	switch c {
	case CategoryPopular:
		return "Popular"
	case CategoryTopRated:
		return "Top Rated"
	case CategoryUpcoming:
		return "Upcoming"
	case CategoryTrending:
		return "Trending This Week"
	default:
		return "Discover"
	}
}

func parseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == strings.ToLower(s) {
			return c, true
		}
	}
	return "", false
}

// ItemType is the user's media type selection.
type ItemType string

const (
	ItemTypeAll    ItemType = "all"
	ItemTypeMovie  ItemType = "movie"
	ItemTypeSeries ItemType = "tv"
)

// ItemTypes lists the selectable types in menu order.
var ItemTypes = []ItemType{ItemTypeAll, ItemTypeMovie, ItemTypeSeries}

// Label is the menu label of an item type.
func (t ItemType) Label() string {
	switch t {
	case ItemTypeMovie:
		return "Movies"
	case ItemTypeSeries:
		return "TV Series"
	default:
		return "All"
	}
}

func parseItemType(s string) (ItemType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return ItemTypeAll, true
	case "movie", "movies":
		return ItemTypeMovie, true
	case "tv", "series":
		return ItemTypeSeries, true
	}
	return "", false
}

// MediaType returns the catalog type for a specific selection, "" for all.
func (t ItemType) MediaType() catalog.MediaType {
	switch t {
	case ItemTypeMovie:
		return catalog.Movie
	case ItemTypeSeries:
		return catalog.Series
	default:
		return ""
	}
}

// FilterState is the user's query intent.
type FilterState struct {
	Category Category
	ItemType ItemType
	Search   string
	Genre    int // 0 = any
	Rating   contentfilter.RatingBand
	Years    contentfilter.YearRange
}

// DefaultFilters is the state of a fresh browse page.
func DefaultFilters() FilterState {
	all, _ := contentfilter.ParseRatingBand(contentfilter.AnyValue)
	return FilterState{
		Category: CategoryDiscover,
		ItemType: ItemTypeAll,
		Rating:   all,
	}
}

// Normalize applies the invariants between fields: unknown values fall
// back to defaults, and upcoming (without a search) forces movies and
// clears the secondary filters it cannot support.
func (f FilterState) Normalize() FilterState {
	def := DefaultFilters()

	if _, ok := parseCategory(string(f.Category)); !ok {
		f.Category = def.Category
	}
	if _, ok := parseItemType(string(f.ItemType)); !ok {
		f.ItemType = def.ItemType
	}
	if f.Rating.Code == "" {
		f.Rating = def.Rating
	}
	if f.Genre < 0 {
		f.Genre = 0
	}
	f.Search = strings.Join(strings.Fields(f.Search), " ")

	if f.SecondaryDisabled() {
		f.ItemType = ItemTypeMovie
		f.Genre = 0
		f.Rating = def.Rating
		f.Years = contentfilter.YearRange{}
	}
	return f
}

// Searching reports whether a search term overrides the category.
func (f FilterState) Searching() bool {
	return f.Search != ""
}

// SecondaryDisabled reports whether the genre, rating and year controls
// are unavailable (the upcoming list has no way to honor them).
func (f FilterState) SecondaryDisabled() bool {
	return f.Category == CategoryUpcoming && !f.Searching()
}

// ItemTypeLocked reports whether the type selector is fixed by the category.
func (f FilterState) ItemTypeLocked() bool {
	return f.SecondaryDisabled()
}

// ServerSideFilters reports whether genre, rating and year are sent
// upstream (plain discovery) rather than applied locally.
func (f FilterState) ServerSideFilters() bool {
	return f.Category == CategoryDiscover && !f.Searching()
}

// Secondary returns the genre, rating and year filters.
func (f FilterState) Secondary() contentfilter.Secondary {
	return contentfilter.Secondary{Genre: f.Genre, Rating: f.Rating, Years: f.Years}
}

// localSecondary returns the filters checked against fetched items. When
// they were sent upstream only the rating band is rechecked, since
// vote_average.lte includes the band's exclusive upper edge.
func (f FilterState) localSecondary() contentfilter.Secondary {
	if f.SecondaryDisabled() {
		return contentfilter.Secondary{}
	}
	if f.ServerSideFilters() {
		return contentfilter.Secondary{Rating: f.Rating}
	}
	return f.Secondary()
}

// fetchesAllTypes reports whether the upstream request ignores the type
// selection, so a specific selection narrows the display instead.
func (f FilterState) fetchesAllTypes() bool {
	return f.Category == CategoryTrending && !f.Searching()
}

// PrimaryKey serializes the fields that choose the upstream endpoint and
// parameters. Two states with the same key share accumulated results.
func (f FilterState) PrimaryKey() string {
	f = f.Normalize()

	if f.Searching() {
		return "search|" + string(f.ItemType) + "|" + strings.ToLower(f.Search)
	}

	switch f.Category {
	case CategoryDiscover:
		return strings.Join([]string{
			string(f.Category),
			string(f.ItemType),
			strconv.Itoa(f.Genre),
			f.Rating.Code,
			f.Years.String(),
		}, "|")
	case CategoryTrending:
		return string(f.Category)
	default:
		return string(f.Category) + "|" + string(f.ItemType)
	}
}

// Query resolves the state into the upstream request.
func (f FilterState) Query() metadata.Query {
	f = f.Normalize()
	params := url.Values{}

	if f.Searching() {
		params.Set("query", f.Search)
		params.Set("include_adult", "false")
		switch f.ItemType {
		case ItemTypeMovie:
			return metadata.Query{Endpoints: []string{"search/movie"}, Params: params}
		case ItemTypeSeries:
			return metadata.Query{Endpoints: []string{"search/tv"}, Params: params}
		default:
			return metadata.Query{Endpoints: []string{"search/multi"}, Params: params}
		}
	}

	switch f.Category {
	case CategoryUpcoming:
		return metadata.Query{Endpoints: []string{"movie/upcoming"}, Params: params}
	case CategoryTrending:
		return metadata.Query{Endpoints: []string{"trending/all/week"}, Params: params}
	case CategoryDiscover:
		params.Set("sort_by", "popularity.desc")
		params.Set("include_adult", "false")
		if f.Genre != 0 {
			params.Set("with_genres", strconv.Itoa(f.Genre))
		}
		if !f.Rating.IsAll() {
			params.Set("vote_average.gte", strconv.FormatFloat(f.Rating.Min, 'f', -1, 64))
			if f.Rating.Max < 10 {
				params.Set("vote_average.lte", strconv.FormatFloat(f.Rating.Max, 'f', -1, 64))
			}
		}
		if !f.Years.IsAny() {
			from := strconv.Itoa(f.Years.From) + "-01-01"
			to := strconv.Itoa(f.Years.To) + "-12-31"
			params.Set("primary_release_date.gte", from)
			params.Set("primary_release_date.lte", to)
			params.Set("first_air_date.gte", from)
			params.Set("first_air_date.lte", to)
		}
		return typedQuery(f.ItemType, "discover/movie", "discover/tv", params)
	default: // popular, top_rated
		cat := string(f.Category)
		return typedQuery(f.ItemType, "movie/"+cat, "tv/"+cat, params)
	}
}

func typedQuery(t ItemType, movieEndpoint, tvEndpoint string, params url.Values) metadata.Query {
	switch t {
	case ItemTypeMovie:
		return metadata.Query{Endpoints: []string{movieEndpoint}, Params: params}
	case ItemTypeSeries:
		return metadata.Query{Endpoints: []string{tvEndpoint}, Params: params}
	default:
		return metadata.Query{
			Endpoints:        []string{movieEndpoint, tvEndpoint},
			Params:           params,
			SortByPopularity: true,
		}
	}
}
