package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// KV stores JSON documents on top of a Backend.
type KV struct {
	backend Backend
}

func NewKV(backend Backend) *KV {
	return &KV{backend: backend}
}

func (kv *KV) Backend() Backend {
	return kv.backend
}

// Get decodes the value at key into dst. It reports false, with no error, when
// the key does not exist.
func (kv *KV) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := kv.backend.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (kv *KV) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return kv.backend.Save(ctx, key, raw)
}

func (kv *KV) Remove(ctx context.Context, key string) error {
	return kv.backend.Delete(ctx, key)
}

func (kv *KV) Close() error {
	return kv.backend.Close()
}
