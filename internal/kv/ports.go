// Package kv defines the durable key-value port the entry logs persist through.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.New("kv: key not found")

// Store persists opaque values under string keys. A single Put replaces the
// whole value atomically as far as the backend allows; there is no
// multi-key transaction.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
