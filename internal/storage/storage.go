package storage

import (
	"context"
	"errors"
)

// Durable key namespace. These are the only keys the portal writes; every
// store owns its own prefix.
const (
	KeyCredential  = "session.credential"
	KeyProfile     = "session.profile"
	KeyBonusPrefix = "session.bonus." // + profile ID
	KeyCartLines   = "cart.lines"
	KeyLocale      = "prefs.locale"
	KeyTheme       = "prefs.theme"
)

// ErrKeyNotFound is returned by Get for an absent key.
var ErrKeyNotFound = errors.New("storage: key not found")

// Store is the durable key-value area both state stores write through to.
// Semantics are plain get/set/remove with last-write-wins; there is no
// transaction spanning multiple keys.
type Store interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}
