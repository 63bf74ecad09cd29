package server

import (
	"encoding/json"
	"fmt"
)

// JSONCodec carries plain Go messages over connect as JSON.
// It replaces connect's built-in "json" codec, which only accepts protobuf messages.
type JSONCodec struct{}

func (JSONCodec) Name() string {
	return "json"
}

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal(%T) > %w", msg, err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("json.Unmarshal(%T) > %w", msg, err)
	}
	return nil
}
