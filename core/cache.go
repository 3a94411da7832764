package core

import (
	"context"
	"time"
)

// Cache is any service that can store transient values by key.
// Get returns false when the key is absent; a broken cache must degrade,
// never fail the request.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
