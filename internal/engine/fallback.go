package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Fallback replaces transient not-ready/not-connected failures with
// fallback. Every other error is returned unchanged.
func Fallback[T any](value T, err error, fallback T) (T, error) {
	if err == nil {
		return value, nil
	}
	if IsTransient(err) {
		return fallback, nil
	}
	return fallback, err
}

// GetPropertyOr reads name and decodes it into T. Missing, null, skipped and
// transiently unavailable values yield fallback.
func GetPropertyOr[T any](ctx context.Context, inst *Instance, name string, fallback T) (T, error) {
	raw, err := inst.GetProperty(ctx, name)
	if err != nil {
		return Fallback(fallback, err, fallback)
	}
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fallback, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return fallback, fmt.Errorf("decode %s: %w", name, err)
	}
	return value, nil
}
