package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for the freshness subsystem.

// Key adds a cache key field.
func Key(key string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("key", key)
	}
}

// Prefix adds a key prefix field for invalidations.
func Prefix(prefix string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("prefix", prefix)
	}
}

// Topic adds a bus topic field.
func Topic(topic string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("topic", topic)
	}
}

// SessionID adds a retry session ID field.
func SessionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("session_id", id)
	}
}

// Attempt adds an attempt counter field.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("attempt", int64(n))
	}
}

// Online adds a reachability field.
func Online(online bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("online", online)
	}
}

// Generation adds a connectivity generation counter field.
func Generation(gen uint64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("generation", int64(gen)) // #nosec G115 -- counter, wraps far beyond process lifetime
	}
}

// Age adds an entry age field in milliseconds.
func Age(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("age_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Str("error", err.Error())
	}
}
