// Package cache shares one Redis connection between the user lookup cache,
// the HTTP session store and the login rate limiter. Each consumer works in
// its own key namespace.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Backend is a gofiber storage with context-aware access. *redis.Storage
// implements it.
type Backend interface {
	fiber.Storage
	GetWithContext(ctx context.Context, key string) ([]byte, error)
	SetWithContext(ctx context.Context, key string, val []byte, exp time.Duration) error
	DeleteWithContext(ctx context.Context, key string) error
}

// Namespace is a key prefix on a shared Backend. It satisfies fiber.Storage,
// so the session and limiter middleware use it as their store.
type Namespace struct {
	backend Backend
	prefix  string
}

var _ fiber.Storage = Namespace{}

// NewNamespace returns the keys of b that start with prefix.
func NewNamespace(b Backend, prefix string) Namespace {
	return Namespace{backend: b, prefix: prefix}
}

func (n Namespace) key(k string) string {
	return n.prefix + k
}

func (n Namespace) Get(key string) ([]byte, error) {
	return n.backend.Get(n.key(key))
}

func (n Namespace) Set(key string, val []byte, exp time.Duration) error {
	return n.backend.Set(n.key(key), val, exp)
}

func (n Namespace) Delete(key string) error {
	return n.backend.Delete(n.key(key))
}

// Reset leaves the namespace alone; its keys expire through their TTL.
// Resetting the backend would wipe every other namespace too.
func (n Namespace) Reset() error {
	return nil
}

// Close is a no-op. The connection belongs to the plugin.
func (n Namespace) Close() error {
	return nil
}

// Cache stores JSON encoded values for domain lookups.
type Cache interface {
	// Get decodes the value under key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key string, value any) error
	// Delete drops key.
	Delete(ctx context.Context, key string) error
}

// JSONCache is a Cache in one namespace where every entry lives for ttl.
type JSONCache struct {
	ns  Namespace
	ttl time.Duration
}

var _ Cache = (*JSONCache)(nil)

// NewJSONCache creates a cache over ns.
func NewJSONCache(ns Namespace, ttl time.Duration) *JSONCache {
	return &JSONCache{ns: ns, ttl: ttl}
}

func (c *JSONCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.ns.backend.GetWithContext(ctx, c.ns.key(key))
	if err != nil {
		return false, fmt.Errorf("cache get %q: %w", key, err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode %q: %w", key, err)
	}
	return true, nil
}

func (c *JSONCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}
	if err := c.ns.backend.SetWithContext(ctx, c.ns.key(key), raw, c.ttl); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

func (c *JSONCache) Delete(ctx context.Context, key string) error {
	if err := c.ns.backend.DeleteWithContext(ctx, c.ns.key(key)); err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	return nil
}
