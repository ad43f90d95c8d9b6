package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"looklike/internal/metrics"
	"looklike/internal/models"
)

const (
	DefaultBaseURL        = "https://maps.googleapis.com/maps/api"
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
)

var (
	// ErrSearchUnavailable means the catalog could not answer, either after
	// exhausting retries or because it refused the request outright.
	ErrSearchUnavailable = errors.New("search provider temporarily unavailable")

	// ErrUpstreamRejected is a non-transient refusal (bad key, quota
	// exhausted, malformed request). It is never retried.
	ErrUpstreamRejected = fmt.Errorf("%w: request rejected by provider", ErrSearchUnavailable)

	// ErrNoResults is returned by Geocode when the address matched nothing.
	ErrNoResults = errors.New("no results")

	// ErrMalformedResponse is returned when the provider body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Config tunes the HTTP client. Zero values fall back to defaults; a
// negative MaxRetries disables retrying.
type Config struct {
	APIKey         string
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	HTTPClient     *http.Client
}

// Client talks to the Google Geocoding and Places web services.
type Client struct {
	apiKey         string
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
	initialBackoff time.Duration
	httpClient     *http.Client
}

// NewClient creates a catalog client.
func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		requestTimeout: cfg.RequestTimeout,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		httpClient:     cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = defaultRequestTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if cfg.MaxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = defaultInitialBackoff
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// PageRequest describes one page of a nearby or text search.
type PageRequest struct {
	Center       models.Coordinate
	RadiusMeters int
	Keyword      string
	PageToken    string
}

// Page is one page of catalog results.
type Page struct {
	Candidates    []models.Candidate
	NextPageToken string
}

// Geocode resolves a free-text address. Zero matches yield ErrNoResults.
func (c *Client) Geocode(ctx context.Context, address string) (models.Coordinate, error) {
	params := url.Values{}
	params.Set("address", address)

	var resp geocodeResponse
	err := c.do(ctx, "geocode", "/geocode/json", params, func(body []byte) error {
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		switch resp.Status {
		case statusOK:
			return nil
		case statusZeroResults, statusNotFound:
			return ErrNoResults
		}
		return classifyStatus(resp.Status, resp.ErrorMessage, false)
	})
	if err != nil {
		return models.Coordinate{}, err
	}

	if len(resp.Results) == 0 {
		return models.Coordinate{}, ErrNoResults
	}
	loc := resp.Results[0].Geometry.Location
	coord := models.Coordinate{Lat: loc.Lat, Lng: loc.Lng}
	if !coord.Valid() {
		return models.Coordinate{}, fmt.Errorf("%w: coordinate out of range", ErrMalformedResponse)
	}
	return coord, nil
}

// Nearby fetches one page of a nearby search around the center.
func (c *Client) Nearby(ctx context.Context, req PageRequest) (*Page, error) {
	params := url.Values{}
	if req.PageToken != "" {
		// A page token carries the original query; Google rejects extra params.
		params.Set("pagetoken", req.PageToken)
	} else {
		params.Set("location", formatLocation(req.Center))
		params.Set("radius", strconv.Itoa(req.RadiusMeters))
		if req.Keyword != "" {
			params.Set("keyword", req.Keyword)
		}
	}
	return c.searchPage(ctx, "nearby", "/place/nearbysearch/json", params, req.PageToken != "")
}

// Text fetches one page of a text search biased to the center.
func (c *Client) Text(ctx context.Context, req PageRequest) (*Page, error) {
	params := url.Values{}
	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	} else {
		params.Set("query", fmt.Sprintf("%s near %s", req.Keyword, formatLocation(req.Center)))
		params.Set("location", formatLocation(req.Center))
		params.Set("radius", strconv.Itoa(req.RadiusMeters))
	}
	return c.searchPage(ctx, "text", "/place/textsearch/json", params, req.PageToken != "")
}

func (c *Client) searchPage(ctx context.Context, op, path string, params url.Values, withToken bool) (*Page, error) {
	var resp searchResponse
	err := c.do(ctx, op, path, params, func(body []byte) error {
		resp = searchResponse{}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("%w: %w: %v", ErrUpstreamRejected, ErrMalformedResponse, err)
		}
		switch resp.Status {
		case statusOK, statusZeroResults:
			return nil
		}
		return classifyStatus(resp.Status, resp.ErrorMessage, withToken)
	})
	if err != nil {
		return nil, err
	}

	page := &Page{
		Candidates:    make([]models.Candidate, 0, len(resp.Results)),
		NextPageToken: resp.NextPageToken,
	}
	for i := range resp.Results {
		if resp.Results[i].PlaceID == "" {
			continue
		}
		page.Candidates = append(page.Candidates, resp.Results[i].candidate())
	}
	return page, nil
}

// do performs a GET with bounded retries. decode inspects the body and
// reports the catalog-level outcome; a *transientError from either the
// transport or decode triggers another attempt.
func (c *Client) do(ctx context.Context, op, path string, params url.Values, decode func([]byte) error) error {
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(c.initialBackoff) * math.Pow(2, float64(attempt-1)))
			slog.Warn("retrying places request",
				"op", op,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		err := c.attempt(ctx, endpoint, decode)
		metrics.ObserveUpstreamRequest(op, outcome(err), time.Since(start))
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var te *transientError
		if !errors.As(err, &te) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %s failed after %d attempts: %w", ErrSearchUnavailable, op, c.maxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, endpoint string, decode func([]byte) error) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transientError{reason: "transport", err: redact(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{reason: "reading body", err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout:
		return &transientError{reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return &transientError{reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamRejected, resp.StatusCode)
	}

	return decode(body)
}

// transientError marks a failure worth retrying.
type transientError struct {
	reason string
	err    error
}

func (e *transientError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("transient failure (%s): %v", e.reason, e.err)
	}
	return fmt.Sprintf("transient failure (%s)", e.reason)
}

func (e *transientError) Unwrap() error {
	return e.err
}

// classifyStatus maps a non-OK catalog status to a retryable or terminal
// error. A fresh next_page_token answers INVALID_REQUEST until it becomes
// active, so that status is transient on page-token requests only.
func classifyStatus(status, message string, withToken bool) error {
	switch status {
	case statusOverQueryLimit, statusUnknownError:
		return &transientError{reason: status}
	case statusInvalidRequest:
		if withToken {
			return &transientError{reason: "page token not ready"}
		}
	}
	if message != "" {
		return fmt.Errorf("%w: %s: %s", ErrUpstreamRejected, status, message)
	}
	return fmt.Errorf("%w: %s", ErrUpstreamRejected, status)
}

func outcome(err error) string {
	var te *transientError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoResults):
		return "no_results"
	case errors.As(err, &te):
		return "transient"
	default:
		return "rejected"
	}
}

// redact strips the query string (which carries the API key) from url.Error.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if u, perr := url.Parse(uerr.URL); perr == nil {
			u.RawQuery = ""
			return &url.Error{Op: uerr.Op, URL: u.String(), Err: uerr.Err}
		}
	}
	return err
}

func formatLocation(c models.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}
