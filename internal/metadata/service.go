package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/contentfilter"
	"github.com/reelscout/reelscout/internal/metadata/tmdb"
)

var (
	ErrNoProvidersConfigured = errors.New("no metadata providers configured")
	ErrNotFound              = errors.New("metadata not found")
	ErrNoRecommendation      = errors.New("no recommendation available")
)

// Query is a resolved upstream fetch: one endpoint, or two whose pages are
// merged into one logical page. Params are shared by every endpoint and
// must not carry "page".
type Query struct {
	Endpoints        []string
	Params           url.Values
	SortByPopularity bool
}

// Key is a stable serialization of the query, independent of param order.
func (q Query) Key() string {
	return strings.Join(q.Endpoints, "+") + "?" + q.Params.Encode()
}

// PartialError reports that one half of a merged fetch failed while the
// other half produced items. The returned page holds the successful half.
type PartialError struct {
	Endpoint string
	Err      error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial results, %s failed: %v", e.Endpoint, e.Err)
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// Service fronts TMDB with response caching, merged fetches and
// detail-page aggregation.
type Service struct {
	tmdb      TMDBClient
	cache     ResponseCache
	blocklist *contentfilter.Blocklist
	logger    zerolog.Logger

	genresMu sync.RWMutex
	genres   []catalog.Genre
}

// NewService creates a metadata service. cache may be nil to disable caching.
func NewService(client TMDBClient, cache ResponseCache, blocklist *contentfilter.Blocklist, logger zerolog.Logger) *Service {
	return &Service{
		tmdb:      client,
		cache:     cache,
		blocklist: blocklist,
		logger:    logger.With().Str("component", "metadata").Logger(),
	}
}

// IsConfigured reports whether an upstream provider is usable.
func (s *Service) IsConfigured() bool {
	return s.tmdb != nil && s.tmdb.IsConfigured()
}

// FetchPage fetches one page of a query. With two endpoints both are
// requested concurrently and concatenated in endpoint order, then stably
// sorted by popularity when SortByPopularity is set. TotalPages is the
// larger of the two, so merged pagination is approximate.
//
// If exactly one endpoint fails the page carries the other's items and the
// error is a *PartialError. If every endpoint fails the first error is returned.
func (s *Service) FetchPage(ctx context.Context, q Query, page int) (catalog.Page, error) {
	if !s.IsConfigured() {
		return catalog.Page{}, ErrNoProvidersConfigured
	}
	if len(q.Endpoints) == 0 {
		return catalog.Page{}, errors.New("query has no endpoints")
	}
	if page < 1 {
		page = 1
	}

	if len(q.Endpoints) == 1 {
		return s.fetchEndpoint(ctx, q.Endpoints[0], q.Params, page)
	}

	pages := make([]catalog.Page, len(q.Endpoints))
	errs := make([]error, len(q.Endpoints))

	var wg conc.WaitGroup
	for i, endpoint := range q.Endpoints {
		wg.Go(func() {
			pages[i], errs[i] = s.fetchEndpoint(ctx, endpoint, q.Params, page)
		})
	}
	wg.Wait()

	var merged catalog.Page
	var partial error
	failures := 0
	for i := range q.Endpoints {
		if errs[i] != nil {
			failures++
			if partial == nil {
				partial = &PartialError{Endpoint: q.Endpoints[i], Err: errs[i]}
			}
			continue
		}
		merged.Items = append(merged.Items, pages[i].Items...)
		merged.TotalPages = max(merged.TotalPages, pages[i].TotalPages)
	}

	if failures == len(q.Endpoints) {
		return catalog.Page{}, errs[0]
	}

	if q.SortByPopularity {
		slices.SortStableFunc(merged.Items, func(a, b catalog.Item) int {
			switch {
			case a.Popularity > b.Popularity:
				return -1
			case a.Popularity < b.Popularity:
				return 1
			default:
				return 0
			}
		})
	}

	if partial != nil {
		s.logger.Warn().Err(partial).Int("page", page).Msg("merged fetch partially failed")
		return merged, partial
	}
	return merged, nil
}

func (s *Service) fetchEndpoint(ctx context.Context, endpoint string, params url.Values, page int) (catalog.Page, error) {
	p := url.Values{}
	for k, v := range params {
		p[k] = v
	}
	p.Set("page", strconv.Itoa(page))

	key := "list:" + endpoint + "?" + p.Encode()
	var cached catalog.Page
	if s.getCached(ctx, key, &cached) {
		return cached, nil
	}

	result, err := s.tmdb.List(ctx, endpoint, p)
	if err != nil {
		return catalog.Page{}, err
	}
	s.setCached(ctx, key, result)
	return result, nil
}

func (s *Service) getCached(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false
	}
	return true
}

func (s *Service) setCached(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, raw)
}

// visible drops blocklisted items.
func (s *Service) visible(items []catalog.Item) []catalog.Item {
	if s.blocklist == nil {
		return items
	}
	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if !s.blocklist.IsBlocked(it) {
			out = append(out, it)
		}
	}
	return out
}

// Genres returns the merged movie and series genre list, loading it on first use.
func (s *Service) Genres(ctx context.Context) ([]catalog.Genre, error) {
	s.genresMu.RLock()
	genres := s.genres
	s.genresMu.RUnlock()

	if genres != nil {
		return genres, nil
	}
	return s.RefreshGenres(ctx)
}

// RefreshGenres reloads both genre lists from upstream.
func (s *Service) RefreshGenres(ctx context.Context) ([]catalog.Genre, error) {
	if !s.IsConfigured() {
		return nil, ErrNoProvidersConfigured
	}

	var movie, tv []catalog.Genre
	var movieErr, tvErr error

	var wg conc.WaitGroup
	wg.Go(func() { movie, movieErr = s.tmdb.GetGenres(ctx, catalog.Movie) })
	wg.Go(func() { tv, tvErr = s.tmdb.GetGenres(ctx, catalog.Series) })
	wg.Wait()

	if movieErr != nil {
		return nil, fmt.Errorf("movie genres: %w", movieErr)
	}
	if tvErr != nil {
		return nil, fmt.Errorf("tv genres: %w", tvErr)
	}

	seen := make(map[int]struct{}, len(movie)+len(tv))
	merged := make([]catalog.Genre, 0, len(movie)+len(tv))
	for _, g := range append(movie, tv...) {
		if _, dup := seen[g.ID]; dup {
			continue
		}
		seen[g.ID] = struct{}{}
		merged = append(merged, g)
	}
	slices.SortFunc(merged, func(a, b catalog.Genre) int { return strings.Compare(a.Name, b.Name) })

	s.genresMu.Lock()
	s.genres = merged
	s.genresMu.Unlock()

	s.logger.Info().Int("count", len(merged)).Msg("genre list refreshed")
	return merged, nil
}

// RandomRecommendation picks a random title recommended from a random seed.
// Titles already in seeds are skipped. With no seeds, or when the seed has
// no usable recommendations, a random popular movie is returned instead.
func (s *Service) RandomRecommendation(ctx context.Context, seeds []catalog.Item) (catalog.Item, error) {
	if !s.IsConfigured() {
		return catalog.Item{}, ErrNoProvidersConfigured
	}

	exclude := make(map[string]struct{}, len(seeds))
	for _, it := range seeds {
		exclude[it.Key()] = struct{}{}
	}
	pick := func(items []catalog.Item) (catalog.Item, bool) {
		candidates := make([]catalog.Item, 0, len(items))
		for _, it := range s.visible(items) {
			if _, skip := exclude[it.Key()]; !skip {
				candidates = append(candidates, it)
			}
		}
		if len(candidates) == 0 {
			return catalog.Item{}, false
		}
		return candidates[rand.IntN(len(candidates))], true
	}

	if len(seeds) > 0 {
		seed := seeds[rand.IntN(len(seeds))]
		recs, err := s.tmdb.GetRecommendations(ctx, seed.MediaType, seed.ID, 1)
		if err != nil {
			s.logger.Warn().Err(err).Str("seed", seed.Key()).Msg("recommendations failed, falling back to popular")
		} else if item, ok := pick(recs.Items); ok {
			return item, nil
		}
	}

	page, err := s.fetchEndpoint(ctx, "movie/popular", nil, rand.IntN(5)+1)
	if err != nil {
		return catalog.Item{}, err
	}
	if item, ok := pick(page.Items); ok {
		return item, nil
	}
	return catalog.Item{}, ErrNoRecommendation
}

func notFound(err error) error {
	if errors.Is(err, tmdb.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
