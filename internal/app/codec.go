package app

import (
	"context"
	"encoding/json"
	"fmt"

	"vidya-quiz-service/internal/domain"
)

// loadJSON decodes the value at key into out; found is false when the key is absent.
func loadJSON(ctx context.Context, store KVStore, key string, out any) (bool, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", domain.ErrPersistence, key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", domain.ErrPersistence, key, err)
	}
	return true, nil
}
