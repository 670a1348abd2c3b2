package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MaxMessageSize bounds a single incoming frame. The spec requires at
// least 10 MB; this server enforces exactly that ceiling.
const MaxMessageSize = 10 * 1024 * 1024

// Message is a wire message: a JSON object with at least a "type"
// field. It round-trips through encoding/json without an intermediate
// struct, mirroring how the teacher's original dict-subclass pattern
// lets any field be read or set without a schema migration.
type Message map[string]any

// newID returns a fresh client-style request id.
func newID() string {
	return uuid.New().String()
}

// Parse deserializes a JSON frame into a Message, enforcing the size
// ceiling and the "object root with a type field" requirement.
func Parse(raw []byte) (Message, error) {
	if len(raw) > MaxMessageSize {
		return nil, fmt.Errorf("frame exceeds maximum size of %d bytes", MaxMessageSize)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", data)
	}
	if _, ok := obj["type"]; !ok {
		return nil, fmt.Errorf("message missing 'type' field")
	}
	return Message(obj), nil
}

// Serialize renders the message as a JSON byte frame.
func (m Message) Serialize() ([]byte, error) {
	return json.Marshal(map[string]any(m))
}

// Type returns the message's "type" field.
func (m Message) Type() MsgType {
	if v, ok := m["type"]; ok {
		if s, ok := v.(string); ok {
			return MsgType(s)
		}
	}
	return ""
}

// ID returns the message's "id" field, or "" if absent.
func (m Message) ID() string {
	if v, ok := m["id"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IsRequest reports whether the message carries a request id.
func (m Message) IsRequest() bool {
	_, ok := m["id"]
	return ok
}

// String returns a string field, or "" (plus false) if absent or of
// the wrong type.
func (m Message) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns an integer field. JSON numbers decode to float64, so
// this truncates toward zero.
func (m Message) Int(key string, fallback int) int {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}

// Map returns a nested object field, or an empty map if absent.
func (m Message) Map(key string) map[string]any {
	if v, ok := m[key]; ok {
		if obj, ok := v.(map[string]any); ok {
			return obj
		}
	}
	return map[string]any{}
}
