package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	hubspotCallsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hubspot_calls_remaining",
		Help: "Number of calls remaining in current HubSpot rate limit window",
	})

	hubspotRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubspot_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to critical call budget",
	})

	hubspotRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hubspot_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to low call budget",
	})
)

// Tracker monitors HubSpot rate limits and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	callsRemaining, err := t.redis.Get(ctx, RedisKeyCallsRemaining).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get calls remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	// If no state exists in Redis, return default healthy state
	if err == redis.Nil {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return &State{
			CallsRemaining: 100, // Assume healthy until we get real data
			ResetAt:        time.Now().Add(10 * time.Second),
			LastUpdate:     time.Now(),
			IsHealthy:      true,
		}, nil
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &State{
		CallsRemaining: callsRemaining,
		ResetAt:        time.Unix(resetTimestamp, 0),
		LastUpdate:     lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses HubSpot rate limit headers and updates Redis state.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	// Parse X-HubSpot-RateLimit-Remaining header
	remainStr := headers.Get("X-HubSpot-RateLimit-Remaining")
	if remainStr == "" {
		// Header not present - this is OK for some endpoints
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-HubSpot-RateLimit-Remaining header: %w", err)
	}

	// Parse X-HubSpot-RateLimit-Interval-Milliseconds header
	intervalStr := headers.Get("X-HubSpot-RateLimit-Interval-Milliseconds")
	if intervalStr == "" {
		return fmt.Errorf("X-HubSpot-RateLimit-Interval-Milliseconds header missing")
	}

	intervalMs, err := strconv.Atoi(intervalStr)
	if err != nil {
		return fmt.Errorf("parse X-HubSpot-RateLimit-Interval-Milliseconds header: %w", err)
	}

	// Create updated state
	now := time.Now()
	state := &State{
		CallsRemaining: remain,
		ResetAt:        now.Add(time.Duration(intervalMs) * time.Millisecond),
		LastUpdate:     now,
	}
	state.UpdateHealth()

	// Store in Redis atomically
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyCallsRemaining, remain, 0)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), 0)

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	// Update Prometheus metrics
	hubspotCallsRemaining.Set(float64(remain))

	// Log state update
	logEvent := t.logger.Info().
		Int("calls_remaining", remain).
		Time("reset_at", state.ResetAt).
		Bool("is_healthy", state.IsHealthy)

	if state.NeedsCriticalBlock() {
		logEvent = t.logger.Error()
		logEvent.Msg("HubSpot call budget CRITICAL - requests will be blocked")
	} else if state.NeedsThrottling() {
		logEvent = t.logger.Warn()
		logEvent.Msg("HubSpot call budget WARNING - requests will be throttled")
	} else {
		logEvent.Msg("HubSpot rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current
// rate limit state. Returns false if the request should be blocked due to a
// critical call budget. Returns true but may sleep for throttling when in
// the warning state.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	// Critical: Block all requests
	if state.NeedsCriticalBlock() {
		waitDuration := state.TimeUntilReset()

		t.logger.Error().
			Int("calls_remaining", state.CallsRemaining).
			Dur("wait_duration", waitDuration).
			Msg("HubSpot call budget critical - blocking request")

		hubspotRateLimitBlocksTotal.Inc()
		return false, nil
	}

	// Warning: Apply throttling (1 second sleep)
	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("calls_remaining", state.CallsRemaining).
			Msg("HubSpot call budget warning - throttling request")

		hubspotRateLimitThrottlesTotal.Inc()
		time.Sleep(1 * time.Second)
	}

	// Healthy: Allow request
	return true, nil
}
