// Package catalog caches the reference data (workouts and training plans)
// in memory. Readers always see a complete snapshot; a refresh builds a new
// snapshot and swaps it in with one atomic store.
package catalog

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item is a cached document addressable by its id.
type Item interface {
	Key() string
}

type Loader[T Item] func(ctx context.Context) ([]T, error)

type snapshot[T Item] struct {
	items    []T
	index    map[string]T
	loadedAt time.Time
}

type Collection[T Item] struct {
	name    string
	load    Loader[T]
	now     func() time.Time
	current atomic.Pointer[snapshot[T]]
}

func NewCollection[T Item](name string, load Loader[T], now func() time.Time) *Collection[T] {
	if now == nil {
		now = time.Now
	}
	return &Collection[T]{name: name, load: load, now: now}
}

// Get returns the cached items, loading them when the cache is empty or
// force is set. A failed load leaves the previous snapshot in place.
func (c *Collection[T]) Get(ctx context.Context, force bool) ([]T, error) {
	if !force {
		if snap := c.current.Load(); snap != nil && len(snap.items) > 0 {
			cacheHits.WithLabelValues(c.name).Inc()
			return slices.Clone(snap.items), nil
		}
	}

	snap, err := c.reload(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(snap.items), nil
}

func (c *Collection[T]) reload(ctx context.Context) (*snapshot[T], error) {
	cacheLoads.WithLabelValues(c.name).Inc()
	items, err := c.load(ctx)
	if err != nil {
		cacheLoadFailures.WithLabelValues(c.name).Inc()
		return nil, err
	}

	next := &snapshot[T]{
		items:    items,
		index:    make(map[string]T, len(items)),
		loadedAt: c.now(),
	}
	for _, item := range items {
		next.index[item.Key()] = item
	}
	c.current.Store(next)
	cacheSize.WithLabelValues(c.name).Set(float64(len(items)))
	return next, nil
}

// MapIDs resolves ids against the cached index. Unknown ids are dropped;
// the order of the remaining ids is kept.
func (c *Collection[T]) MapIDs(ctx context.Context, ids []primitive.ObjectID) ([]T, error) {
	if _, err := c.Get(ctx, false); err != nil {
		return nil, err
	}
	snap := c.current.Load()

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := snap.index[id.Hex()]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *Collection[T]) Find(ctx context.Context, id primitive.ObjectID) (T, bool, error) {
	var zero T
	items, err := c.MapIDs(ctx, []primitive.ObjectID{id})
	if err != nil {
		return zero, false, err
	}
	if len(items) == 0 {
		return zero, false, nil
	}
	return items[0], true, nil
}

// LastLoaded is the zero time until the first successful load.
func (c *Collection[T]) LastLoaded() time.Time {
	if snap := c.current.Load(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}
