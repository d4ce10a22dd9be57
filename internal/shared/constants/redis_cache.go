package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// This file centralizes the Redis cache keys and TTL values for the Boleto application
// Pattern: boleto:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

// Semi-Static Data (Medium TTL: changes occasionally)
const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour // 2 hours - for event details
	TTL_SEMI_STATIC_SHORT  = 1 * time.Hour // 1 hour - for event listings
)

// Highly Dynamic (Micro TTL: real-time sensitive)
const (
	TTL_REALTIME_SHORT = 30 * time.Second // 30 seconds - for seat matrix snapshots
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "boleto"
)

// ================== EVENTS MODULE ==================

const (
	CACHE_KEY_EVENTS_LIST  = CACHE_PREFIX + ":events:list"
	CACHE_KEY_EVENT_DETAIL = CACHE_PREFIX + ":events:detail:uuid:" // + event-id
)

// EventDetailKey builds the cache key for a single event
func EventDetailKey(eventID string) string {
	return CACHE_KEY_EVENT_DETAIL + eventID
}

// EventsPattern matches every cached entry of the events module
func EventsPattern() string {
	return fmt.Sprintf("%s:events:*", CACHE_PREFIX)
}

// ================== SEATS MODULE ==================

const (
	CACHE_KEY_SEAT_MATRIX = CACHE_PREFIX + ":seats:matrix:uuid:" // + event-id
)

// SeatMatrixKey builds the cache key for an event's seat matrix snapshot
func SeatMatrixKey(eventID string) string {
	return CACHE_KEY_SEAT_MATRIX + eventID
}
