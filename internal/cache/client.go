package cache

import (
	"encoding/json"
	"errors"
	"net"
	"time"
)

// DialTimeout bounds how long the client waits for the daemon socket.
const DialTimeout = 500 * time.Millisecond

// Client implements KV over a Unix socket.
type Client struct {
	socketPath string
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// roundTrip sends one request on a fresh connection and decodes the reply.
func (c *Client) roundTrip(req Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, DialTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return nil, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		if resp.Error == ErrNotFound.Error() {
			return nil, ErrNotFound
		}
		return nil, errors.New(resp.Error)
	}
	return &resp, nil
}

func (c *Client) Get(key string) ([]byte, error) {
	resp, err := c.roundTrip(Request{Op: OpGet, Key: key})
	if err != nil {
		return nil, err
	}
	// JSON drops empty byte slices; an OK reply still means the key exists.
	if resp.Value == nil {
		return []byte{}, nil
	}
	return resp.Value, nil
}

func (c *Client) Put(key string, value []byte) error {
	_, err := c.roundTrip(Request{Op: OpPut, Key: key, Value: value})
	return err
}

func (c *Client) Delete(key string) error {
	_, err := c.roundTrip(Request{Op: OpDelete, Key: key})
	return err
}

func (c *Client) Keys() ([]string, error) {
	resp, err := c.roundTrip(Request{Op: OpKeys})
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}
