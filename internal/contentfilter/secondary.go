package contentfilter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/reelscout/reelscout/internal/catalog"
)

// AnyValue is the URL/form value meaning "no filter".
const AnyValue = "all"

// RatingBand is a vote-average range. Min is inclusive, Max exclusive.
type RatingBand struct {
	Code  string
	Label string
	Min   float64
	Max   float64
}

// RatingBands lists the selectable bands, "all" first.
var RatingBands = []RatingBand{
	{Code: AnyValue, Label: "All ratings", Min: math.Inf(-1), Max: math.Inf(1)},
	{Code: "9", Label: "9+", Min: 9, Max: math.Inf(1)},
	{Code: "8", Label: "8 to 9", Min: 8, Max: 9},
	{Code: "7", Label: "7 to 8", Min: 7, Max: 8},
	{Code: "6", Label: "6 to 7", Min: 6, Max: 7},
	{Code: "5", Label: "5 to 6", Min: 5, Max: 6},
	{Code: "0", Label: "Below 5", Min: 0, Max: 5},
}

// ParseRatingBand looks up a band by code. Empty means "all".
func ParseRatingBand(code string) (RatingBand, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		code = AnyValue
	}
	for _, b := range RatingBands {
		if b.Code == code {
			return b, nil
		}
	}
	return RatingBand{}, fmt.Errorf("unknown rating band %q", code)
}

// IsAll reports whether the band is unbounded.
func (b RatingBand) IsAll() bool {
	return b.Code == AnyValue || b.Code == ""
}

// Contains reports min <= v < max. The "all" band contains everything.
func (b RatingBand) Contains(v float64) bool {
	if b.IsAll() {
		return true
	}
	return v >= b.Min && v < b.Max
}

// YearRange is an inclusive range of release years. The zero value is "any".
type YearRange struct {
	From int
	To   int
}

// ParseYearRange accepts "all", a year ("2019") or a decade ("1990s").
func ParseYearRange(s string) (YearRange, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == AnyValue {
		return YearRange{}, nil
	}

	if decade, ok := strings.CutSuffix(s, "s"); ok {
		y, err := strconv.Atoi(decade)
		if err != nil || y%10 != 0 || y < 1870 || y > 2100 {
			return YearRange{}, fmt.Errorf("invalid decade %q", s)
		}
		return YearRange{From: y, To: y + 9}, nil
	}

	y, err := strconv.Atoi(s)
	if err != nil || y < 1870 || y > 2100 {
		return YearRange{}, fmt.Errorf("invalid year %q", s)
	}
	return YearRange{From: y, To: y}, nil
}

// IsAny reports whether the range is unbounded.
func (r YearRange) IsAny() bool {
	return r.From == 0 && r.To == 0
}

// String renders the range in the form ParseYearRange accepts.
func (r YearRange) String() string {
	switch {
	case r.IsAny():
		return AnyValue
	case r.From == r.To:
		return strconv.Itoa(r.From)
	case r.From%10 == 0 && r.To == r.From+9:
		return strconv.Itoa(r.From) + "s"
	default:
		return fmt.Sprintf("%d-%d", r.From, r.To)
	}
}

// Contains reports whether year falls within the range. An unknown year
// (0) only matches the unbounded range.
func (r YearRange) Contains(year int) bool {
	if r.IsAny() {
		return true
	}
	if year == 0 {
		return false
	}
	return year >= r.From && year <= r.To
}

// Secondary holds the filters that are applied locally when the upstream
// endpoint has no equivalent parameter.
type Secondary struct {
	Genre  int // 0 = any
	Rating RatingBand
	Years  YearRange
}

// IsZero reports whether no secondary filter is active.
func (s Secondary) IsZero() bool {
	return s.Genre == 0 && s.Rating.IsAll() && s.Years.IsAny()
}

// MatchesSecondary evaluates genre membership, rating band and year range.
func MatchesSecondary(item catalog.Item, s Secondary) bool {
	if s.Genre != 0 && !item.HasGenre(s.Genre) {
		return false
	}
	if !s.Rating.Contains(item.VoteAverage) {
		return false
	}
	return s.Years.Contains(item.Year())
}
