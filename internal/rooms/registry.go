// Package rooms tracks known room names. Rooms are created implicitly on
// first use and never updated or deleted.
package rooms

import (
	"context"
	"fmt"
	"log"

	"frameboard/api/internal/store"
)

// Store is the registry's persistence interface.
type Store interface {
	EnsureRoom(ctx context.Context, name string) error
	ListRooms(ctx context.Context) ([]store.Room, error)
}

// Registry resolves room names against the store, with an optional Redis
// membership cache in front. Cache failures never fail a request.
type Registry struct {
	store Store
	cache *Cache
}

// New creates a registry. cache may be nil if Redis is not configured.
func New(s Store, cache *Cache) *Registry {
	return &Registry{store: s, cache: cache}
}

// Ensure inserts the room if it is not yet known. Idempotent; repeat calls
// are cheap once the cache has seen the name.
func (r *Registry) Ensure(ctx context.Context, name string) error {
	if r.cache != nil {
		known, err := r.cache.Known(ctx, name)
		if err != nil {
			log.Printf("rooms: cache lookup for %q: %v", name, err)
		} else if known {
			return nil
		}
	}

	if err := r.store.EnsureRoom(ctx, name); err != nil {
		return fmt.Errorf("ensure room %q: %w", name, err)
	}

	if r.cache != nil {
		if err := r.cache.Add(ctx, name); err != nil {
			log.Printf("rooms: cache add for %q: %v", name, err)
		}
	}
	return nil
}

// List returns all known rooms from the store. The cache holds membership
// only, not the authoritative list.
func (r *Registry) List(ctx context.Context) ([]store.Room, error) {
	return r.store.ListRooms(ctx)
}
