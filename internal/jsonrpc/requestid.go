package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RequestID is the id of a request: a string, an integer or a non-integral
// number. The zero value, and a nil *RequestID, stand for an absent id and
// encode as null.
type RequestID struct {
	value any
}

// NewRequestID wraps a string or number. Other types produce an absent id.
func NewRequestID(value any) *RequestID {
	switch v := value.(type) {
	case string, float64:
		return &RequestID{value: v}
	case int:
		return &RequestID{value: int64(v)}
	case int32:
		return &RequestID{value: int64(v)}
	case int64:
		return &RequestID{value: v}
	}
	return &RequestID{}
}

// String renders the id for logs and map keys. Absent ids render as "".
func (id *RequestID) String() string {
	if id == nil {
		return ""
	}
	switch v := id.value.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return ""
}

func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id == nil || id.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts null, a string or a number. Integral numbers are kept
// as int64 so they echo back without a fraction.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		id.value = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		id.value = s
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("jsonrpc: id must be a string or number, got %s", data)
	}
	if i, err := n.Int64(); err == nil {
		id.value = i
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("jsonrpc: id %s: %w", data, err)
	}
	id.value = f
	return nil
}
