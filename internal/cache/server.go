package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// Serve accepts connections on l until ctx is cancelled or the listener is
// closed, answering each with HandleConn against kv. It returns ctx.Err()
// after cancellation and an error wrapping net.ErrClosed when the listener
// goes away on its own. Other Accept errors are retried with a backoff of up
// to maxAcceptDelay.
func Serve(ctx context.Context, l net.Listener, kv KV) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-stop:
		}
	}()
	var delay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("cache: listener closed: %w", err)
			}
			delay = max(minAcceptDelay, min(2*delay, maxAcceptDelay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		go HandleConn(conn, kv)
	}
}

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// HandleConn answers requests on conn until the peer hangs up.
func HandleConn(conn net.Conn, kv KV) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		_ = enc.Encode(dispatch(kv, req))
	}
}

func dispatch(kv KV, req Request) Response {
	switch req.Op {
	case OpGet:
		v, err := kv.Get(req.Key)
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true, Value: v}
	case OpPut:
		if err := kv.Put(req.Key, req.Value); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}
	case OpDelete:
		if err := kv.Delete(req.Key); err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true}
	case OpKeys:
		keys, err := kv.Keys()
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
		return Response{OK: true, Keys: keys}
	default:
		return Response{OK: false, Error: "unknown op"}
	}
}
