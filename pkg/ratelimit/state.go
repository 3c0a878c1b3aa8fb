// Package ratelimit implements HubSpot API rate limit tracking and request gating.
// It monitors the X-HubSpot-RateLimit-Remaining and
// X-HubSpot-RateLimit-Interval-Milliseconds headers to keep extraction runs
// from exhausting the account-wide burst budget.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyCallsRemaining = "hubspot:rate_limit:calls_remaining"
	RedisKeyResetTimestamp = "hubspot:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "hubspot:rate_limit:last_update"
)

// Thresholds for rate limit decisions.
const (
	// CallThresholdCritical blocks all requests when the remaining call budget
	// falls below this value. The budget is account-wide, so draining it here
	// starves every other consumer of the same credentials.
	CallThresholdCritical = 5

	// CallThresholdWarning applies throttling when the remaining call budget
	// falls below this value.
	CallThresholdWarning = 20

	// CallThresholdHealthy indicates normal operation.
	// At or above this value, no restrictions apply.
	CallThresholdHealthy = 50
)

// State represents the current HubSpot rate limit state.
// This state is shared across all client instances via Redis.
type State struct {
	// CallsRemaining is the number of calls left in the current burst window.
	// Extracted from the X-HubSpot-RateLimit-Remaining header.
	CallsRemaining int `json:"calls_remaining"`

	// ResetAt is the timestamp when the burst window resets.
	// Calculated from the X-HubSpot-RateLimit-Interval-Milliseconds header.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is the timestamp when this state was last updated.
	// Used to detect stale state.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy indicates whether the call budget is in a healthy state.
	// True when CallsRemaining >= CallThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked due to a
// critically low call budget.
func (s *State) NeedsCriticalBlock() bool {
	return s.CallsRemaining < CallThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled due to the
// warning threshold.
func (s *State) NeedsThrottling() bool {
	return s.CallsRemaining < CallThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the burst window resets.
// Returns 0 if the reset time has already passed.
func (s *State) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current CallsRemaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.CallsRemaining >= CallThresholdHealthy
}
