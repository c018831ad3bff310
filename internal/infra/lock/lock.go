// Package lock provides the per-user mutual exclusion used around every
// read-decide-write on entitlement state.
package lock

import "context"

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker serializes work per key. Different keys never block each other.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// UserKey is the lock key for a user's entitlement state.
func UserKey(userID string) string {
	return "lock:entitlements:" + userID
}
