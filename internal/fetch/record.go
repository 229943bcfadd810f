package fetch

import (
	"bytes"
	"encoding/json"
)

// Record is the stored form of a successful request. Time is milliseconds
// since the epoch; Data is the payload as the request returned it.
type Record struct {
	Time int64           `json:"time"`
	Data json.RawMessage `json:"data"`
}

func encodeRecord[T any](storedAtMillis int64, payload T) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Record{Time: storedAtMillis, Data: data})
}

// decodeRecord reports false for anything that is not a usable record,
// including a record whose payload is null.
func decodeRecord(raw []byte) (Record, bool) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false
	}
	if len(rec.Data) == 0 || bytes.Equal(bytes.TrimSpace(rec.Data), []byte("null")) {
		return Record{}, false
	}
	return rec, true
}
