// Package cache provides byte-level storage for registry responses.
//
// Backends implement [Cache]:
//
//   - [FileCache]: one JSON file per key under a directory, for CLI use
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//   - [NullCache]: stores nothing, used with --no-cache
//
// [Namespace] scopes a backend so several registries can share it without
// key collisions.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
//
// Get returns (nil, false, nil) on a miss, including expired entries.
// A ttl of 0 passed to Set means the entry never expires.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// namespaced prefixes every key before delegating to inner.
type namespaced struct {
	inner  Cache
	prefix string
}

// Namespace returns a view of c that prefixes all keys with prefix.
// Calls can be chained: Namespace(Namespace(c, "http:"), "pypi:") uses
// the prefix "http:pypi:". Closing the view closes the underlying cache.
func Namespace(c Cache, prefix string) Cache {
	if ns, ok := c.(*namespaced); ok {
		return &namespaced{inner: ns.inner, prefix: ns.prefix + prefix}
	}
	return &namespaced{inner: c, prefix: prefix}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return n.inner.Set(ctx, n.prefix+key, data, ttl)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Close() error { return n.inner.Close() }
