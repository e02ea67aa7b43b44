package domain

import "time"

// KeyPrefix namespaces every key this service writes to the database.
const KeyPrefix = "dedup:"

// Clock is an injectable timestamp provider.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
