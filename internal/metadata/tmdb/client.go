package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/reelscout/reelscout/internal/catalog"
	"github.com/reelscout/reelscout/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrNotFound      = errors.New("TMDB resource not found")
	ErrUnauthorized  = errors.New("TMDB rejected the API key")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

// UpstreamError describes a failed TMDB request. It unwraps to one of the
// package sentinels so callers can use errors.Is.
type UpstreamError struct {
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("tmdb %s: status %d: %s", e.Endpoint, e.Status, msg)
	}
	return fmt.Sprintf("tmdb %s: %s", e.Endpoint, msg)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed.
func (e *UpstreamError) Retryable() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
	retryDelay time.Duration
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		config:     cfg,
		logger:     logger.With().Str("component", "tmdb").Logger(),
		retryDelay: 500 * time.Millisecond,
	}
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// List fetches one page from a list endpoint such as "discover/movie",
// "search/multi" or "trending/all/week" and normalizes every result.
// Results without a media_type take the type implied by the endpoint.
func (c *Client) List(ctx context.Context, endpoint string, params url.Values) (catalog.Page, error) {
	var resp ListResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return catalog.Page{}, err
	}

	fallback := mediaTypeForEndpoint(endpoint)
	items := make([]catalog.Item, 0, len(resp.Results))
	for _, r := range resp.Results {
		if item, ok := Normalize(r, fallback); ok {
			items = append(items, item)
		}
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("page", params.Get("page")).
		Int("results", len(resp.Results)).
		Int("kept", len(items)).
		Int("totalPages", resp.TotalPages).
		Msg("TMDB list fetched")

	return catalog.Page{Items: items, TotalPages: resp.TotalPages}, nil
}

// GetMovie returns full details for a movie.
func (c *Client) GetMovie(ctx context.Context, id int) (*MovieDetails, error) {
	var details MovieDetails
	if err := c.get(ctx, fmt.Sprintf("movie/%d", id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetSeries returns full details for a series.
func (c *Client) GetSeries(ctx context.Context, id int) (*TVDetails, error) {
	var details TVDetails
	if err := c.get(ctx, fmt.Sprintf("tv/%d", id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetSeasonDetails returns the episodes of one season of a series.
func (c *Client) GetSeasonDetails(ctx context.Context, seriesID, seasonNumber int) (*SeasonDetails, error) {
	var details SeasonDetails
	endpoint := fmt.Sprintf("tv/%d/season/%d", seriesID, seasonNumber)
	if err := c.get(ctx, endpoint, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetVideos returns the videos attached to a movie or series.
func (c *Client) GetVideos(ctx context.Context, mediaType catalog.MediaType, id int) ([]Video, error) {
	var resp VideosResponse
	if err := c.get(ctx, fmt.Sprintf("%s/%d/videos", mediaType, id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// GetCredits returns cast and crew for a movie or series.
func (c *Client) GetCredits(ctx context.Context, mediaType catalog.MediaType, id int) (*CreditsResponse, error) {
	var resp CreditsResponse
	if err := c.get(ctx, fmt.Sprintf("%s/%d/credits", mediaType, id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRecommendations returns a page of titles recommended from a movie or series.
func (c *Client) GetRecommendations(ctx context.Context, mediaType catalog.MediaType, id, page int) (catalog.Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(max(page, 1)))
	return c.List(ctx, fmt.Sprintf("%s/%d/recommendations", mediaType, id), params)
}

// GetPerson returns biography data for a person.
func (c *Client) GetPerson(ctx context.Context, id int) (*Person, error) {
	var person Person
	if err := c.get(ctx, fmt.Sprintf("person/%d", id), nil, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// GetPersonMovieCredits returns the movies a person appeared in, cast first,
// then crew credits not already listed.
func (c *Client) GetPersonMovieCredits(ctx context.Context, id int) ([]catalog.Item, error) {
	var resp PersonMovieCredits
	if err := c.get(ctx, fmt.Sprintf("person/%d/movie_credits", id), nil, &resp); err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(resp.Cast)+len(resp.Crew))
	items := make([]catalog.Item, 0, len(resp.Cast)+len(resp.Crew))
	for _, r := range append(resp.Cast, resp.Crew...) {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		if item, ok := Normalize(r, catalog.Movie); ok {
			seen[r.ID] = struct{}{}
			items = append(items, item)
		}
	}
	return items, nil
}

// GetGenres returns the genre list for a media type.
func (c *Client) GetGenres(ctx context.Context, mediaType catalog.MediaType) ([]catalog.Genre, error) {
	var resp GenreListResponse
	if err := c.get(ctx, fmt.Sprintf("genre/%s/list", mediaType), nil, &resp); err != nil {
		return nil, err
	}

	genres := make([]catalog.Genre, len(resp.Genres))
	for i, g := range resp.Genres {
		genres[i] = catalog.Genre{ID: g.ID, Name: g.Name}
	}
	return genres, nil
}

// GetImageURL constructs a full image URL from a TMDB path.
func (c *Client) GetImageURL(path string, size string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, size, path)
}

// get performs a GET against the API with retries for rate limits,
// server errors and transport failures.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if !c.IsConfigured() {
		return &UpstreamError{Endpoint: endpoint, Message: ErrAPIKeyMissing.Error(), Err: ErrAPIKeyMissing}
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("api_key", c.config.APIKey)
	if c.config.Language != "" && q.Get("language") == "" {
		q.Set("language", c.config.Language)
	}

	attempts := c.config.MaxRetries
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(
		func() error {
			return c.doRequest(ctx, endpoint, q, result)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var upErr *UpstreamError
			return errors.As(err, &upErr) && upErr.Retryable()
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Uint("attempt", n+1).Msg("retrying TMDB request")
		}),
	)
}

func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	reqURL := fmt.Sprintf("%s/%s?%s", strings.TrimRight(c.config.BaseURL, "/"), endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	group := metricEndpoint(endpoint)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observeRequest(group, "error", time.Since(start))
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return &UpstreamError{Endpoint: endpoint, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	observeRequest(group, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		upErr := &UpstreamError{Endpoint: endpoint, Status: resp.StatusCode}

		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			upErr.Message = errResp.StatusMessage
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			upErr.Err = ErrNotFound
		case http.StatusUnauthorized:
			upErr.Err = ErrUnauthorized
		case http.StatusTooManyRequests:
			upErr.Err = ErrRateLimited
		default:
			upErr.Err = ErrAPIError
		}
		if upErr.Message == "" {
			upErr.Message = upErr.Err.Error()
		}

		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Str("message", upErr.Message).
			Msg("TMDB API error")
		return upErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &UpstreamError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  "malformed response",
			Err:      fmt.Errorf("%w: %v", ErrAPIError, err),
		}
	}

	return nil
}

// mediaTypeForEndpoint infers the media type of untagged results.
func mediaTypeForEndpoint(endpoint string) catalog.MediaType {
	for _, seg := range strings.Split(endpoint, "/") {
		switch seg {
		case "movie":
			return catalog.Movie
		case "tv":
			return catalog.Series
		}
	}
	return ""
}
