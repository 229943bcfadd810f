package cache

// Simple JSON protocol for cache daemon over a Unix domain socket.
// One request -> one response using json.Encoder/Decoder per connection.

const (
	OpGet    = "get"
	OpPut    = "put"
	OpDelete = "delete"
	OpKeys   = "keys"
)

type Request struct {
	Op    string `json:"op"` // "get" | "put" | "delete" | "keys"
	Key   string `json:"key,omitempty"`
	Value []byte `json:"value,omitempty"`
}

type Response struct {
	OK    bool     `json:"ok"`
	Value []byte   `json:"value,omitempty"`
	Keys  []string `json:"keys,omitempty"`
	Error string   `json:"error,omitempty"`
}
