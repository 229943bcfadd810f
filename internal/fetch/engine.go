// Package fetch memoizes the results of remote requests in a persistent KV.
//
// A call names its result, supplies the request that produces it, and
// optionally a transform applied to the payload. Within the TTL the stored
// payload is served instead of running the request again. The transform runs
// once per call on both paths, so a caller only sees the difference in
// latency.
package fetch

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/leonardcser/wiki-fetch/internal/cache"
)

// Namespace prefixes every key the engine writes.
const Namespace = "fetch-"

// DefaultTTL is how long a stored result stays fresh when a descriptor does
// not say otherwise.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInsufficientParameters rejects a descriptor without a name or request.
	ErrInsufficientParameters = errors.New("fetch: insufficient parameters")
	// ErrOperationFailed stands in for a request that failed without a reason.
	ErrOperationFailed        = errors.New("fetch: operation failed")
)

// Engine owns cache policy over a KV. Build one at startup and hand it to
// the callers that need it.
//
// Concurrent misses on the same name are not coordinated: each runs its
// request and the last write wins.
type Engine struct {
	kv         cache.KV
	log        log.Interface
	now        func() time.Time
	defaultTTL time.Duration
	rand       func(n int) int
}

type Option func(*Engine)

// WithLogger sets the diagnostic sink. Default is the apex process logger.
func WithLogger(l log.Interface) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDefaultTTL changes the staleness window used when a descriptor has none.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.defaultTTL = ttl
		}
	}
}

// WithRand replaces the source used by Init's random purge. fn(n) must return
// a value in [0, n).
func WithRand(fn func(n int) int) Option {
	return func(e *Engine) { e.rand = fn }
}

func New(kv cache.KV, opts ...Option) *Engine {
	e := &Engine{
		kv:         kv,
		log:        log.Log,
		now:        time.Now,
		defaultTTL: DefaultTTL,
		rand:       rand.Intn,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Key returns the store key for a cache name.
func (e *Engine) Key(name string) string { return Namespace + name }

// Clear deletes every key under Namespace and leaves the rest of the store
// alone. It returns how many keys were removed.
func (e *Engine) Clear() (int, error) {
	keys, err := e.kv.Keys()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		if !strings.HasPrefix(k, Namespace) {
			continue
		}
		if err := e.kv.Delete(k); err != nil {
			return n, err
		}
		n++
	}
	e.log.WithField("removed", n).Info("fetch cache cleared")
	return n, nil
}

// InitOptions control the startup purge.
type InitOptions struct {
	// Debug clears the cache unconditionally.
	Debug      bool
	// PurgeOneIn clears the cache with probability 1/PurgeOneIn. Zero means
	// 101; a negative value disables the random purge.
	PurgeOneIn int
}

// Init runs the startup invalidation check and reports whether it purged.
func (e *Engine) Init(opts InitOptions) (bool, error) {
	oneIn := opts.PurgeOneIn
	if oneIn == 0 {
		oneIn = 101
	}
	purge := opts.Debug || (oneIn > 0 && e.rand(oneIn) == oneIn-1)
	if !purge {
		return false, nil
	}
	if _, err := e.Clear(); err != nil {
		return false, err
	}
	return true, nil
}

// EntryInfo describes one stored record.
type EntryInfo struct {
	Name     string
	StoredAt time.Time
	Size     int
	// Valid is false when the record cannot be decoded; such entries are
	// ignored by lookups.
	Valid    bool
}

// Entries lists the records under Namespace.
func (e *Engine) Entries() ([]EntryInfo, error) {
	keys, err := e.kv.Keys()
	if err != nil {
		return nil, err
	}
	var out []EntryInfo
	for _, k := range keys {
		if !strings.HasPrefix(k, Namespace) {
			continue
		}
		raw, err := e.kv.Get(k)
		if err != nil {
			continue
		}
		info := EntryInfo{Name: strings.TrimPrefix(k, Namespace), Size: len(raw)}
		if rec, ok := decodeRecord(raw); ok {
			info.Valid = true
			info.StoredAt = time.UnixMilli(rec.Time)
		}
		out = append(out, info)
	}
	return out, nil
}
