// Package session observes local auth state. It detects a genuine
// authenticated → unauthenticated transition through two paths: the
// store's change signal (the cross-tab storage event analog) and a
// periodic poll for same-context removals the signal missed.
package session

import (
	"sync"
	"time"

	"campusmarket/logger"
	"campusmarket/storage"
	"campusmarket/tools/safe"
)

type Watcher struct {
	store    *storage.Watched
	interval time.Duration

	mu       sync.Mutex
	last     bool
	started  bool
	onLogout []func()
	stop     chan struct{}
	unsub    func()
}

func NewWatcher(store *storage.Watched, pollInterval time.Duration) *Watcher {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Watcher{store: store, interval: pollInterval}
}

// OnLogout registers a callback for the authenticated→unauthenticated
// transition. Register before Start.
func (w *Watcher) OnLogout(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onLogout = append(w.onLogout, fn)
}

// Token returns the current access token, empty when logged out.
func (w *Watcher) Token() string {
	tok, ok, err := w.store.Get(storage.KeyAccessToken)
	if err != nil {
		logger.Warnf("[session] read token: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	return tok
}

// Start snapshots the current auth presence as the baseline (an
// absent token at startup is a fresh session, not a logout), then
// watches for transitions.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.last = w.present()
	w.stop = make(chan struct{})
	stop := w.stop
	w.mu.Unlock()

	ch, unsub := w.store.Subscribe(storage.KeyAccessToken)
	w.mu.Lock()
	w.unsub = unsub
	w.mu.Unlock()

	safe.Go(func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case c, ok := <-ch:
				if !ok {
					return
				}
				w.observe(c.Present && c.Value != "")
			case <-ticker.C:
				w.observe(w.present())
			}
		}
	})
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	w.started = false
	close(w.stop)
	if w.unsub != nil {
		w.unsub()
		w.unsub = nil
	}
}

func (w *Watcher) present() bool {
	tok, ok, err := w.store.Get(storage.KeyAccessToken)
	if err != nil {
		logger.Warnf("[session] poll token: %v", err)
		return w.last // don't treat a read error as a logout
	}
	return ok && tok != ""
}

// observe fires the logout callbacks only on a true→false edge.
func (w *Watcher) observe(present bool) {
	w.mu.Lock()
	fire := w.last && !present
	w.last = present
	cbs := append([]func(){}, w.onLogout...)
	w.mu.Unlock()

	if !fire {
		return
	}
	logger.Info("[session] logout detected")
	for _, fn := range cbs {
		cb := fn
		safe.Call(cb)
	}
}

// Logout clears the token, which the watch/poll paths then observe.
func (w *Watcher) Logout() {
	if err := w.store.Remove(storage.KeyAccessToken); err != nil {
		logger.Warnf("[session] clear token: %v", err)
	}
}
