package lock

import (
	"context"
	"time"
)

// Locker is a short-lived exclusive lease. It is a performance guard against
// near-simultaneous duplicate deliveries only; correctness rests on the
// persisted is_executed flag, which stays authoritative after the TTL lapses.
type Locker interface {
	// Acquire returns ok=false when another holder has the key. The release
	// func is always safe to call.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
