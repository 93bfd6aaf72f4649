// Package revocation holds the token revocation list consulted by RequireAuth.
// Entries live exactly as long as the token they block.
package revocation

import (
	"fmt"
	"time"

	"dlvery/pkg/platform/sentinel"
)

// Clock returns the current time. Stores take one so expiry is testable.
type Clock func() time.Time

// requireLifetime rejects entries that would already be expired.
func requireLifetime(jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("revoke %s: non-positive ttl %s: %w", jti, ttl, sentinel.ErrInvalidState)
	}
	return nil
}
