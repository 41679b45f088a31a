// Package cache is a keyed query cache: each key is bound to a fetch
// function and holds the last fetched value. Consumers read through
// Get, force refetches with Invalidate, patch optimistically with
// SetData, and keep keys fresh with background polling. Concurrent
// fetches of one key are deduplicated.
package cache

import (
	"context"
	"sync"
	"time"

	"campusmarket/logger"
	"campusmarket/tools/safe"
)

type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	fetch    FetchFunc
	data     any
	ok       bool
	err      error
	inflight chan struct{}
	pollStop chan struct{}
	subs     []chan struct{}
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Register binds key to its fetch function. Re-registering replaces
// the fetcher but keeps cached data and subscribers.
func (c *Cache) Register(key string, fetch FetchFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil {
		e = &entry{}
		c.entries[key] = e
	}
	e.fetch = fetch
}

// Get returns the cached value for key, fetching it first if nothing
// is cached yet. A fetch already in flight is joined, not duplicated.
func (c *Cache) Get(ctx context.Context, key string) (any, error) {
	c.mu.Lock()
	e := c.entries[key]
	if e == nil || e.fetch == nil {
		c.mu.Unlock()
		return nil, ErrUnregistered
	}
	if e.ok {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()
	return c.refresh(ctx, key)
}

// Data peeks at the cached value without fetching.
func (c *Cache) Data(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key]
	if e == nil || !e.ok {
		return nil, false
	}
	return e.data, true
}

// refresh runs (or joins) one fetch for key.
func (c *Cache) refresh(ctx context.Context, key string) (any, error) {
	c.mu.Lock()
	e := c.entries[key]
	if e == nil || e.fetch == nil {
		c.mu.Unlock()
		return nil, ErrUnregistered
	}
	if e.inflight != nil {
		done := e.inflight
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.mu.Lock()
		data, err := e.data, e.err
		c.mu.Unlock()
		return data, err
	}
	done := make(chan struct{})
	e.inflight = done
	fetch := e.fetch
	c.mu.Unlock()

	data, err := fetch(ctx)

	c.mu.Lock()
	e.inflight = nil
	close(done)
	e.err = err
	if err == nil {
		e.data = data
		e.ok = true
	}
	subs := append([]chan struct{}(nil), e.subs...)
	c.mu.Unlock()

	if err == nil {
		notify(subs)
	}
	return data, err
}

// Invalidate forces a background refetch of key. The cached value
// stays readable until the new one lands.
func (c *Cache) Invalidate(key string) {
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if _, err := c.refresh(ctx, key); err != nil && err != ErrUnregistered {
			logger.Debugf("[cache] invalidate %s: refetch failed: %v", key, err)
		}
	})
}

// SetData applies an optimistic local patch ahead of server
// confirmation. update receives the current value (nil if none).
func (c *Cache) SetData(key string, update func(old any) any) {
	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		e = &entry{}
		c.entries[key] = e
	}
	var old any
	if e.ok {
		old = e.data
	}
	e.data = update(old)
	e.ok = true
	subs := append([]chan struct{}(nil), e.subs...)
	c.mu.Unlock()
	notify(subs)
}

// Poll refetches key every interval until the returned stop func is
// called. The interval is the consistency fallback for events the push
// channel misses; keep it coarse.
func (c *Cache) Poll(key string, interval time.Duration) (stop func()) {
	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		e = &entry{}
		c.entries[key] = e
	}
	if e.pollStop != nil {
		close(e.pollStop)
	}
	stopCh := make(chan struct{})
	e.pollStop = stopCh
	c.mu.Unlock()

	safe.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				_, err := c.refresh(ctx, key)
				cancel()
				if err != nil && err != ErrUnregistered {
					logger.Debugf("[cache] poll %s: %v", key, err)
				}
			}
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			c.mu.Lock()
			if e.pollStop == stopCh {
				e.pollStop = nil
			}
			c.mu.Unlock()
		})
	}
}

// Subscribe delivers a tick whenever key's value changes.
func (c *Cache) Subscribe(key string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 4)
	c.mu.Lock()
	e := c.entries[key]
	if e == nil {
		e = &entry{}
		c.entries[key] = e
	}
	e.subs = append(e.subs, ch)
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range e.subs {
			if s == ch {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

// Close stops every poller.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.pollStop != nil {
			close(e.pollStop)
			e.pollStop = nil
		}
	}
}

func notify(subs []chan struct{}) {
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
