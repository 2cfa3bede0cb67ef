package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

var (
	ErrUnknownType      = fmt.Errorf("unknown message type")
	ErrMalformedPayload = fmt.Errorf("malformed payload")
)

// Encode serializes an envelope to a single JSON object. Encoding an unknown
// tag is a programming error and is rejected.
func Encode(e Envelope) ([]byte, error) {
	if !e.Type.Known() {
		return nil, fmt.Errorf("encode %q: %w", e.Type, ErrUnknownType)
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return b, nil
}

// Decode parses a single envelope. Malformed bytes or an unrecognized tag
// yield an error, never a panic.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if !e.Type.Known() {
		return Envelope{}, fmt.Errorf("decode %q: %w", e.Type, ErrUnknownType)
	}
	return e, nil
}

// Fields splits a comma-joined request payload into exactly n trimmed fields.
func Fields(data string, n int) ([]string, error) {
	parts := strings.Split(data, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d fields, got %d: %w", n, len(parts), ErrMalformedPayload)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil, fmt.Errorf("field %d is empty: %w", i+1, ErrMalformedPayload)
		}
	}
	return parts, nil
}
