package constants

import (
	"time"
)

// Redis Cache Configuration
// Pattern: eventhub:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour    // 2 hours - for event details
	TTL_REALTIME_SHORT     = 30 * time.Second // 30 seconds - for live seat counts
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "eventhub"
)

// ================== EVENTS MODULE ==================

const (
	CACHE_KEY_EVENT_DETAIL       = CACHE_PREFIX + ":events:detail:uuid:"       // + event-id
	CACHE_KEY_EVENT_AVAILABILITY = CACHE_PREFIX + ":events:availability:uuid:" // + event-id
)

const (
	TTL_EVENT_DETAIL       = TTL_SEMI_STATIC_MEDIUM // 2 hours
	TTL_EVENT_AVAILABILITY = TTL_REALTIME_SHORT     // 30 seconds, overridden by REDIS_AVAILABILITY_TTL
)

// ================== RATE LIMITING ==================

const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":rate_limit:"
)

// ================== HELPER FUNCTIONS ==================

func BuildEventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

func BuildEventAvailabilityKey(eventID string) string {
	return CACHE_KEY_EVENT_AVAILABILITY + eventID
}
