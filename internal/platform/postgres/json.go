package postgres

import (
	"encoding/json"
	"fmt"
)

// jsonValue encodes v for a JSONB parameter. A nil pointer becomes SQL NULL.
func jsonValue[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return raw, nil
}

// decodeJSON decodes a nullable JSONB column. Empty input yields nil.
func decodeJSON[T any](raw []byte) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode json column: %w", err)
	}
	return &v, nil
}
