package discovery

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/reelscout/reelscout/internal/contentfilter"
)

// Query parameter names of the browse URL.
const (
	ParamSearch   = "search"
	ParamItemType = "itemType"
	ParamCategory = "listCategory"
	ParamGenre    = "genre"
	ParamRating   = "rating"
	ParamYear     = "year"
)

var filterParams = []string{ParamSearch, ParamItemType, ParamCategory, ParamGenre, ParamRating, ParamYear}

// HasFilterParams reports whether any browse parameter is present.
func HasFilterParams(q url.Values) bool {
	for _, p := range filterParams {
		if _, ok := q[p]; ok {
			return true
		}
	}
	return false
}

// FiltersFromQuery decodes browse parameters on top of base. Unknown or
// malformed values leave the base value in place.
func FiltersFromQuery(q url.Values, base FilterState) FilterState {
	f := base

	if _, ok := q[ParamSearch]; ok {
		f.Search = q.Get(ParamSearch)
	}
	if v := q.Get(ParamItemType); v != "" {
		if t, ok := parseItemType(v); ok {
			f.ItemType = t
		}
	}
	if v := q.Get(ParamCategory); v != "" {
		if c, ok := parseCategory(v); ok {
			f.Category = c
		}
	}
	if v := q.Get(ParamGenre); v != "" {
		if strings.EqualFold(v, contentfilter.AnyValue) {
			f.Genre = 0
		} else if g, err := strconv.Atoi(v); err == nil && g >= 0 {
			f.Genre = g
		}
	}
	if v := q.Get(ParamRating); v != "" {
		if b, err := contentfilter.ParseRatingBand(v); err == nil {
			f.Rating = b
		}
	}
	if v := q.Get(ParamYear); v != "" {
		if y, err := contentfilter.ParseYearRange(v); err == nil {
			f.Years = y
		}
	}

	return f.Normalize()
}

// Values encodes the state in canonical minimal form: parameters equal to
// their default are omitted, as are the controls the category disables.
func (f FilterState) Values() url.Values {
	f = f.Normalize()
	def := DefaultFilters()
	q := url.Values{}

	if f.Search != "" {
		q.Set(ParamSearch, f.Search)
	}
	if f.Category != def.Category {
		q.Set(ParamCategory, string(f.Category))
	}
	if f.ItemTypeLocked() {
		return q
	}
	if f.ItemType != def.ItemType {
		q.Set(ParamItemType, string(f.ItemType))
	}
	if f.Genre != 0 {
		q.Set(ParamGenre, strconv.Itoa(f.Genre))
	}
	if !f.Rating.IsAll() {
		q.Set(ParamRating, f.Rating.Code)
	}
	if !f.Years.IsAny() {
		q.Set(ParamYear, f.Years.String())
	}
	return q
}

// URL returns path with the canonical browse query appended.
func (f FilterState) URL(path string) string {
	enc := f.Values().Encode()
	if enc == "" {
		return path
	}
	return path + "?" + enc
}
