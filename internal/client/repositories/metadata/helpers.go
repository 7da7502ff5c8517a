package metadata

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetJSON decodes the value stored under key into v. It reports false when
// the key is absent.
func GetJSON(ctx context.Context, r Repository, key string, v any) (bool, error) {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode metadata[%s]: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, r Repository, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode metadata[%s]: %w", key, err)
	}
	return r.Set(ctx, key, raw)
}

func GetBool(ctx context.Context, r Repository, key string) (bool, error) {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return string(raw) == "1", nil
}

func SetBool(ctx context.Context, r Repository, key string, v bool) error {
	value := []byte("0")
	if v {
		value = []byte("1")
	}
	return r.Set(ctx, key, value)
}
