package transport

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Envelope types.
const (
	TypeEvent = "event"
	TypeCall  = "call"
	TypeReply = "reply"
)

// Event names recognized by the session controller.
const (
	EventReady  = "ready"
	EventStart  = "start"
	EventEnter  = "enter"
	EventOutput = "output"
)

// Envelope is one RPC frame.
type Envelope struct {
	Type    string          `json:"type"`
	Event   string          `json:"event,omitempty"`
	Marker  uint64          `json:"marker,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

var codec = sonic.ConfigStd

// Encode serializes an envelope.
func Encode(env Envelope) ([]byte, error) {
	data, err := codec.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", env.Type, err)
	}
	return data, nil
}

// Decode parses and checks one envelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeEvent, TypeCall:
		if env.Event == "" {
			return Envelope{}, fmt.Errorf("decode envelope: %s without event name", env.Type)
		}
	case TypeReply:
		if env.Marker == 0 {
			return Envelope{}, fmt.Errorf("decode envelope: reply without marker")
		}
	default:
		return Envelope{}, fmt.Errorf("decode envelope: unknown type %q", env.Type)
	}
	return env, nil
}

// MarshalPayload encodes an arbitrary payload. A nil payload stays empty.
func MarshalPayload(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// DecodeString reads a payload that must be a JSON string.
func DecodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := codec.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("payload is not a string: %w", err)
	}
	return s, nil
}

// RemoteError is a reply the remote side marked as failed.
type RemoteError struct {
	Event   string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %s", e.Event, e.Message)
}
