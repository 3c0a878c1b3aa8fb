// Package client provides the core HubSpot HTTP client with bearer
// authentication, rate limiting, retries, and error handling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/hubspot-extract-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the HubSpot public API base URL.
const DefaultBaseURL = "https://api.hubapi.com"

// Prometheus metrics for HubSpot client operations.
var (
	hubspotRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_requests_total",
		Help: "Total HubSpot requests by endpoint and status",
	}, []string{"endpoint", "status"})

	hubspotRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hubspot_request_duration_seconds",
		Help:    "HubSpot request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	hubspotErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_errors_total",
		Help: "Total HubSpot errors by class",
	}, []string{"class"})
)

// TokenSource supplies an opaque bearer token for API authentication.
// The client only ever reads the token; it never parses or stores it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource backed by a fixed token string.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(_ context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("token is empty")
	}
	return string(t), nil
}

// Client is the main HubSpot API client.
type Client struct {
	httpClient  *http.Client
	redis       *redis.Client
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for shared rate limit state
	Redis *redis.Client

	// Token supplies the bearer token for each request
	Token TokenSource

	// BaseURL of the HubSpot API (default: DefaultBaseURL)
	BaseURL string

	// User-Agent header
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redisClient *redis.Client, token TokenSource, userAgent string) Config {
	return Config{
		Redis:          redisClient,
		Token:          token,
		BaseURL:        DefaultBaseURL,
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new HubSpot client.
// Configuration problems are reported here, before any network call.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.Token == nil {
		return nil, fmt.Errorf("token source is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	// Initialize logger
	logger := log.With().Str("component", "hubspot-client").Logger()

	// Create rate limit tracker
	rateLimiter := ratelimit.NewTracker(cfg.Redis, logger)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		redis:       cfg.Redis,
		rateLimiter: rateLimiter,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Fetch issues one logical API request and decodes the JSON response body.
// The request is retried on transient failures; any non-2xx status after
// retries is returned as an *APIError. Unknown response fields are preserved
// in the returned map.
func (c *Client) Fetch(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	startTime := time.Now()
	defer func() {
		hubspotRequestDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check rate limit
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", path).
			Msg("Request blocked by rate limiter")
		hubspotRequestsTotal.WithLabelValues(path, "rate_limited").Inc()
		return nil, ErrRateLimitBlocked
	}

	// Step 2: Resolve credentials
	token, err := c.config.Token.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	// Step 3: Marshal body once; every attempt gets a fresh reader
	var bodyBytes []byte
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	reqURL := c.config.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	c.logger.Debug().
		Str("endpoint", path).
		Str("method", method).
		Msg("Executing HubSpot request")

	// Step 4: Execute with retry logic
	overrides := RetryConfig{
		MaxAttempts:    c.config.MaxRetries,
		InitialBackoff: c.config.InitialBackoff,
	}
	var respBody []byte
	retryErr := retryWithBackoff(ctx, overrides, func() error {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if reqErr != nil {
			return fmt.Errorf("create request: %w", reqErr)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, reqErr := c.httpClient.Do(req)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", path).Msg("HTTP request failed")
			hubspotErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			hubspotRequestsTotal.WithLabelValues(path, "network_error").Inc()
			return reqErr
		}
		defer resp.Body.Close()

		// Update rate limit state from headers
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		hubspotRequestsTotal.WithLabelValues(path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			hubspotErrorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("endpoint", path).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("HubSpot request error")

			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		respBody, reqErr = io.ReadAll(resp.Body)
		if reqErr != nil {
			return fmt.Errorf("read response body: %w", reqErr)
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	// Step 5: Decode (a malformed body is a transport failure, not a warning)
	decoded := map[string]any{}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return nil, fmt.Errorf("decode response body: %w", err)
		}
	}

	return decoded, nil
}

// GetJSON performs a GET request and decodes the JSON response.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	return c.Fetch(ctx, http.MethodGet, path, query, nil)
}

// PostJSON performs a POST request with a JSON body and decodes the response.
func (c *Client) PostJSON(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.Fetch(ctx, http.MethodPost, path, nil, body)
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
