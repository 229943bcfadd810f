package cache

// KV defines the minimal persistent key-value contract the fetch engine
// relies on. Values are opaque bytes; staleness is the caller's business.
// Implementations must be safe for concurrent use by multiple goroutines.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
}
