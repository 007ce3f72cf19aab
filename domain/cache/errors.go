package cache

import "errors"

// Domain errors for cache operations.
var (
	// ErrInvalidKey is returned when a key is invalid (e.g., empty).
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrCorrupt indicates the durable mirror returned unreadable data.
	// The cache self-heals by purging the mirror; ErrCorrupt is logged and
	// never propagated to consumers.
	ErrCorrupt = errors.New("cache mirror corrupt")
)
