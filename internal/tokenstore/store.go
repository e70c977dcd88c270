// Package tokenstore persists the PKCE code verifier and issued tokens
// across CLI invocations.
package tokenstore

import (
	"errors"
	"time"
)

// ErrKeyNotFound is returned when a key is absent or its entry has expired.
var ErrKeyNotFound = errors.New("tokenstore: key not found")

// Well-known keys. The verifier lives only for one authorization round-trip;
// the three token keys persist until logout.
const (
	KeyCodeVerifier = "pkce_code_verifier"
	KeyIDToken      = "id_token"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Store is a keyed value store for auth state. Implementations must treat
// expired entries as absent.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key string) (string, error)

	// Set stores a value with no expiry, replacing any previous value.
	Set(key, value string) error

	// SetExpiring stores a value that becomes absent after ttl.
	SetExpiring(key, value string, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error
}
