package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Operation performs the remote request. It must return either a payload or
// an error; the payload has to survive a JSON round trip to be cached.
type Operation[T any] func(ctx context.Context) (T, error)

// Descriptor describes one cached call. Name and Request are required.
// Process may be nil only when T is assignable to R.
type Descriptor[T, R any] struct {
	Name    string
	Request Operation[T]
	Process func(T) R
	// TTL overrides the engine default. Zero keeps the default; a negative
	// value makes every stored record stale, so the request always runs but
	// its result is still written.
	TTL     time.Duration
	// NoCache skips both the lookup and the write for this call.
	NoCache bool
}

func (d Descriptor[T, R]) validate() error {
	if d.Name == "" || d.Request == nil {
		return ErrInsufficientParameters
	}
	if d.Process == nil && !reflect.TypeFor[T]().AssignableTo(reflect.TypeFor[R]()) {
		return fmt.Errorf("%w: no Process to turn %v into %v", ErrInsufficientParameters,
			reflect.TypeFor[T](), reflect.TypeFor[R]())
	}
	return nil
}

// process applies Process to v. A panic in Process is returned as
// ErrOperationFailed.
func (d Descriptor[T, R]) process(v T) (r R, err error) {
	if d.Process == nil {
		r, _ = any(v).(R)
		return r, nil
	}
	defer func() {
		if p := recover(); p != nil {
			var zero R
			r, err = zero, fmt.Errorf("%w: panic in process: %v", ErrOperationFailed, p)
		}
	}()
	return d.Process(v), nil
}

// Do runs d against e and blocks until it settles.
func Do[T, R any](ctx context.Context, e *Engine, d Descriptor[T, R]) (R, error) {
	return Go(ctx, e, d).Wait(ctx)
}

// Go validates d and checks the cache on the calling goroutine. A fresh hit
// or a rejected descriptor comes back already settled; otherwise the request
// runs on its own goroutine and the result settles when it returns.
func Go[T, R any](ctx context.Context, e *Engine, d Descriptor[T, R]) *Deferred[R] {
	out := newDeferred[R]()
	if err := d.validate(); err != nil {
		e.log.WithError(err).Warn("[Fetch] Insufficient parameters supplied.")
		var zero R
		out.settle(zero, err)
		return out
	}

	key := e.Key(d.Name)
	if !d.NoCache {
		if v, ok := lookup[T](e, key, d.ttl(e)); ok {
			out.settle(d.process(v))
			return out
		}
	}

	go func() {
		v, err := run(ctx, d.Request)
		if err != nil {
			var zero R
			out.settle(zero, err)
			return
		}
		if !d.NoCache {
			e.store(key, v)
		}
		out.settle(d.process(v))
	}()
	return out
}

// run calls op, turning a panic into an error so the result still settles.
func run[T any](ctx context.Context, op Operation[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrOperationFailed, r)
		}
	}()
	return op(ctx)
}

func (d Descriptor[T, R]) ttl(e *Engine) time.Duration {
	if d.TTL != 0 {
		return d.TTL
	}
	return e.defaultTTL
}

// lookup returns the payload stored under key when it is present, decodes
// into T and is younger than ttl. Everything else is a miss.
func lookup[T any](e *Engine, key string, ttl time.Duration) (T, bool) {
	var zero T
	raw, err := e.kv.Get(key)
	if err != nil {
		return zero, false
	}
	rec, ok := decodeRecord(raw)
	if !ok {
		return zero, false
	}
	if e.now().UnixMilli()-rec.Time >= ttl.Milliseconds() {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(rec.Data, &v); err != nil {
		return zero, false
	}
	return v, true
}

// store writes a fresh record. A failed write is logged and otherwise
// ignored: the caller still gets the payload it asked for.
func (e *Engine) store(key string, payload any) {
	raw, err := encodeRecord(e.now().UnixMilli(), payload)
	if err != nil {
		e.log.WithError(err).WithField("key", key).Warn("fetch: payload not cacheable")
		return
	}
	if err := e.kv.Put(key, raw); err != nil {
		e.log.WithError(err).WithField("key", key).Warn("fetch: cache write failed")
	}
}
