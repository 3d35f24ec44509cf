// Package vrcapi fetches world metadata and images from the VRChat web API.
//
// Responses are cached in SQLite, requests are rate limited and transient
// failures (network errors, 429 and 5xx) are retried with exponential
// backoff.
package vrcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vrclog/whereami/internal/metrics"
	"github.com/vrclog/whereami/pkg/whereami/vrcid"
)

// UserAgent identifies requests to the API.
const UserAgent = "whereami/1.0"

// Defaults for New.
const (
	DefaultBaseURL    = "https://vrchat.com/api"
	DefaultMaxRetries = 3
	DefaultCacheTTL   = 24 * time.Hour
	DefaultRate       = 1.0

	defaultBackoff = 500 * time.Millisecond
	maxBodySize    = 32 << 20
)

// ErrNoImage is returned by GetWorldImage for worlds without an image.
var ErrNoImage = errors.New("world has no image")

// World is the metadata of a world. Fields the API omits are nil.
type World struct {
	AuthorID          *vrcid.UserID `json:"authorId"`
	AuthorName        *string       `json:"authorName"`
	Description       *string       `json:"description"`
	ImageURL          *string       `json:"imageUrl"`
	Name              *string       `json:"name"`
	ThumbnailImageURL *string       `json:"thumbnailImageUrl"`
}

// Image is a downloaded world image.
type Image struct {
	ContentType string
	Data        []byte
}

// APIError is a client error (4xx) reported by the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Message)
}

// StatusError is a response status the client cannot use.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Client talks to the VRChat API.
type Client struct {
	baseURL    string
	cookie     string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	cache      *Cache
	ttl        time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. https://vrchat.com/api.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithCookie sets the Cookie header sent with API (not image) requests.
func WithCookie(cookie string) Option {
	return func(c *Client) {
		c.cookie = cookie
	}
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRate limits network requests to perSecond, with a burst of one.
func WithRate(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithMaxRetries sets how often a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the delay before the first retry. Each further retry
// doubles it.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithCache stores non-server-error responses in cache for ttl.
func WithCache(cache *Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.ttl = ttl
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		http:       http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRate), 1),
		maxRetries: DefaultMaxRetries,
		backoff:    defaultBackoff,
		ttl:        DefaultCacheTTL,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// GetWorld fetches the metadata of world.
func (c *Client) GetWorld(ctx context.Context, world vrcid.WorldID) (*World, error) {
	resp, err := c.get(ctx, c.baseURL+"/1/worlds/"+world.String(), true)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Status >= 200 && resp.Status < 300:
		var w World
		if err := json.Unmarshal(resp.Body, &w); err != nil {
			return nil, fmt.Errorf("invalid response: %w", err)
		}
		return &w, nil
	case resp.Status >= 400 && resp.Status < 500:
		var body struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, fmt.Errorf("invalid error response with code %d: %w", resp.Status, err)
		}
		return nil, &APIError{StatusCode: resp.Status, Message: body.Error.Message}
	default:
		return nil, &StatusError{StatusCode: resp.Status, URL: c.baseURL + "/1/worlds/" + world.String()}
	}
}

// GetWorldImage downloads the image of world. It returns ErrNoImage when
// the world has none.
func (c *Client) GetWorldImage(ctx context.Context, world vrcid.WorldID) (*Image, error) {
	w, err := c.GetWorld(ctx, world)
	if err != nil {
		return nil, err
	}
	if w.ImageURL == nil || *w.ImageURL == "" {
		return nil, ErrNoImage
	}

	resp, err := c.get(ctx, *w.ImageURL, false)
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, &StatusError{StatusCode: resp.Status, URL: *w.ImageURL}
	}
	return &Image{ContentType: resp.ContentType, Data: resp.Body}, nil
}

// get returns the response for url from the cache or the network.
func (c *Client) get(ctx context.Context, url string, auth bool) (*Response, error) {
	if c.cache != nil {
		cached, ok, err := c.cache.Get(ctx, url)
		if err != nil {
			c.logger.Warn("cache lookup failed", "url", url, "error", err)
		}
		if ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	resp, err := c.fetch(ctx, url, auth)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && cacheable(resp.Status) {
		if err := c.cache.Put(ctx, url, resp, c.ttl); err != nil {
			c.logger.Warn("cache store failed", "url", url, "error", err)
		}
	}
	return resp, nil
}

// fetch performs the request, retrying transient failures.
func (c *Client) fetch(ctx context.Context, url string, auth bool) (*Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			c.logger.Debug("retrying request", "url", url, "attempt", attempt, "delay", delay, "error", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, url, auth)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.APIRequests.WithLabelValues("error").Inc()
			lastErr = fmt.Errorf("request error: %w", err)
		case transient(resp.Status):
			metrics.APIRequests.WithLabelValues(strconv.Itoa(resp.Status)).Inc()
			lastErr = &StatusError{StatusCode: resp.Status, URL: url}
			if attempt >= c.maxRetries {
				return resp, nil
			}
			continue
		default:
			metrics.APIRequests.WithLabelValues(strconv.Itoa(resp.Status)).Inc()
			return resp, nil
		}

		if attempt >= c.maxRetries {
			return nil, lastErr
		}
	}
}

func (c *Client) do(ctx context.Context, url string, auth bool) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	if auth && c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func transient(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func cacheable(status int) bool {
	return status < 500 && status != http.StatusTooManyRequests
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
