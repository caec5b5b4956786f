// Package querycache keeps fetched API resources in memory, keyed by
// resource keys such as ["payments", "1"], with explicit invalidation and
// subscriber notification.
package querycache

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrSuperseded is returned by Fetch when a newer Fetch or a Cancel for the
// same key overtook it. Its result is discarded.
var ErrSuperseded = errors.New("querycache: fetch superseded")

type Key []string

func K(parts ...string) Key { return Key(parts) }

func (k Key) String() string { return strings.Join(k, "\x1f") }

func (k Key) HasPrefix(prefix Key) bool {
	return len(prefix) <= len(k) && slices.Equal(k[:len(prefix)], prefix)
}

type entry struct {
	key       Key
	value     any
	updatedAt time.Time
	stale     bool
}

type subscriber struct {
	prefix Key
	fn     func(Key)
}

type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	gens       map[string]uint64
	inflight   map[string]context.CancelFunc
	subs       map[int]subscriber
	nextSub    int
	staleAfter time.Duration
	now        func() time.Time
}

// New returns a cache whose entries go stale after staleAfter; zero means
// entries stay fresh until invalidated.
func New(staleAfter time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		gens:       make(map[string]uint64),
		inflight:   make(map[string]context.CancelFunc),
		subs:       make(map[int]subscriber),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	return e.value, ok
}

func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	c.entries[key.String()] = entry{key: slices.Clone(key), value: value, updatedAt: c.now()}
	c.mu.Unlock()
	c.notify([]Key{key})
}

// Update replaces the value under key with fn(old). It is a no-op when the key is not cached.
func (c *Cache) Update(key Key, fn func(old any) any) bool {
	c.mu.Lock()
	e, ok := c.entries[key.String()]
	if ok {
		e.value = fn(e.value)
		e.updatedAt = c.now()
		c.entries[key.String()] = e
	}
	c.mu.Unlock()
	if ok {
		c.notify([]Key{key})
	}
	return ok
}

// UpdatePrefix applies fn to every cached entry under prefix and returns the
// number of entries it changed. fn reports whether it changed the value.
func (c *Cache) UpdatePrefix(prefix Key, fn func(key Key, old any) (any, bool)) int {
	var changed []Key
	c.mu.Lock()
	for s, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		if v, ok := fn(e.key, e.value); ok {
			e.value = v
			e.updatedAt = c.now()
			c.entries[s] = e
			changed = append(changed, e.key)
		}
	}
	c.mu.Unlock()
	c.notify(changed)
	return len(changed)
}

// Keys lists the cached keys under prefix.
func (c *Cache) Keys(prefix Key) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Key
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			out = append(out, e.key)
		}
	}
	return out
}

// Snapshot is a read-only copy of every entry under a prefix, taken before
// an optimistic change so the changed items can be put back one by one.
type Snapshot struct {
	entries map[string]entry
}

func (c *Cache) Snapshot(prefix Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{entries: make(map[string]entry)}
	for s, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			snap.entries[s] = e
		}
	}
	return snap
}

// Get returns the value key had when the snapshot was taken.
func (s Snapshot) Get(key Key) (any, bool) {
	e, ok := s.entries[key.String()]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// SnapshotAs is Snapshot.Get with a type assertion.
func SnapshotAs[T any](s Snapshot, key Key) (T, bool) {
	v, ok := s.Get(key)
	t, isT := v.(T)
	return t, ok && isT
}

// Invalidate marks entries under prefix stale. Values stay readable through
// Get until the next Fetch replaces them.
func (c *Cache) Invalidate(prefix Key) {
	var touched []Key
	c.mu.Lock()
	for s, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
			c.entries[s] = e
			touched = append(touched, e.key)
		}
	}
	c.mu.Unlock()
	c.notify(touched)
}

// Cancel supersedes in-flight fetches under prefix; their results are discarded.
func (c *Cache) Cancel(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s, cancel := range c.inflight {
		if c.keyOf(s).HasPrefix(prefix) {
			c.gens[s]++
			cancel()
			delete(c.inflight, s)
		}
	}
}

func (c *Cache) keyOf(s string) Key {
	return Key(strings.Split(s, "\x1f"))
}

// Fetch returns the cached value when it is fresh, otherwise calls fn and
// stores its result. A fetch overtaken by a newer Fetch or by Cancel returns
// ErrSuperseded and leaves the cache untouched.
func (c *Cache) Fetch(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	s := key.String()

	c.mu.Lock()
	if e, ok := c.entries[s]; ok && c.fresh(e) {
		c.mu.Unlock()
		return e.value, nil
	}
	if cancel, ok := c.inflight[s]; ok {
		cancel()
	}
	c.gens[s]++
	gen := c.gens[s]
	fetchCtx, cancel := context.WithCancel(ctx)
	c.inflight[s] = cancel
	c.mu.Unlock()

	v, err := fn(fetchCtx)

	c.mu.Lock()
	if c.gens[s] != gen {
		c.mu.Unlock()
		cancel()
		return nil, ErrSuperseded
	}
	delete(c.inflight, s)
	cancel()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.entries[s] = entry{key: slices.Clone(key), value: v, updatedAt: c.now()}
	c.mu.Unlock()

	c.notify([]Key{key})
	return v, nil
}

func (c *Cache) fresh(e entry) bool {
	if e.stale {
		return false
	}
	return c.staleAfter <= 0 || c.now().Sub(e.updatedAt) < c.staleAfter
}

// Subscribe calls fn with the key of every change under prefix. Callbacks run
// on the goroutine that made the change, after the cache lock is released.
func (c *Cache) Subscribe(prefix Key, fn func(Key)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = subscriber{prefix: slices.Clone(prefix), fn: fn}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Cache) notify(keys []Key) {
	if len(keys) == 0 {
		return
	}
	c.mu.Lock()
	subs := make([]subscriber, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, k := range keys {
		for _, s := range subs {
			if k.HasPrefix(s.prefix) {
				s.fn(k)
			}
		}
	}
}

// GetAs is Get with a type assertion.
func GetAs[T any](c *Cache, key Key) (T, bool) {
	v, ok := c.Get(key)
	t, isT := v.(T)
	return t, ok && isT
}

// FetchAs is Fetch with a typed loader.
func FetchAs[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) { return fn(ctx) })
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
