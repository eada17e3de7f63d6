package storage

import "context"

// Namespaces of the key-value store, one per persisted concern. Namespaces
// are independently readable and writable; there is no cross-namespace
// transaction.
const (
	nsUsers           = "users"            // key: phone
	nsCurrentUser     = "current_user"     // key: "current"
	nsHistory         = "history"          // key: phone
	nsFavorites       = "favorites"        // key: phone
	nsFavoriteData    = "favorite_data"    // key: phone (legacy content cache)
	nsActivationCodes = "activation_codes" // key: "all"
	nsSettings        = "settings"         // key: "site"
	nsTempProgress    = "temp_progress"    // key: phone
	nsQuestions       = "questions"        // key: "bank"
	nsProgressRecords = "progress_records" // key: record id
)

// Store is a namespaced key-value store with synchronous local
// durability. Values are opaque JSON blobs.
type Store interface {
	Get(ctx context.Context, ns, key string) ([]byte, bool, error)
	Set(ctx context.Context, ns, key string, value []byte) error
	// Delete reports whether a row was actually removed, so callers can
	// build consume-exactly-once operations on top of it.
	Delete(ctx context.Context, ns, key string) (bool, error)
	// List returns every key/value pair in a namespace.
	List(ctx context.Context, ns string) (map[string][]byte, error)
	Close() error
}
