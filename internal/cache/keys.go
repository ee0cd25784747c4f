package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cache lifetimes
const (
	EventTTL          = time.Hour
	EventAttendeesTTL = 10 * time.Minute
)

// GetEventCacheKey generates a cache key for an event
func GetEventCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("event:%s", id.String())
}

// GetEventAttendeesCacheKey generates a cache key for an event with its attendees
func GetEventAttendeesCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("event:%s:with-attendees", id.String())
}
