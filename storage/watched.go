package storage

import "sync"

// Change describes one key mutation observed through a Watched store.
// Present is false when the key was removed.
type Change struct {
	Key     string
	Value   string
	Present bool
}

// Watched wraps a Store and fans every mutation out to subscribers.
// It plays the role browser storage events play between tabs: a
// logout in one place is observable everywhere else in the process.
type Watched struct {
	Store

	mu   sync.Mutex
	subs map[string][]chan Change
}

func NewWatched(inner Store) *Watched {
	return &Watched{Store: inner, subs: make(map[string][]chan Change)}
}

// Subscribe registers interest in mutations of key. The cancel func
// removes the subscription; the channel is left open so a notify
// running against an earlier snapshot can never hit a closed channel.
func (w *Watched) Subscribe(key string) (<-chan Change, func()) {
	ch := make(chan Change, 8)
	w.mu.Lock()
	w.subs[key] = append(w.subs[key], ch)
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		list := w.subs[key]
		for i, c := range list {
			if c == ch {
				w.subs[key] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

func (w *Watched) notify(c Change) {
	w.mu.Lock()
	list := append([]chan Change(nil), w.subs[c.Key]...)
	w.mu.Unlock()
	for _, ch := range list {
		select {
		case ch <- c:
		default:
			// Subscriber is behind; the poll fallback will catch up.
		}
	}
}

func (w *Watched) Set(key, value string) error {
	if err := w.Store.Set(key, value); err != nil {
		return err
	}
	w.notify(Change{Key: key, Value: value, Present: true})
	return nil
}

func (w *Watched) Remove(key string) error {
	if err := w.Store.Remove(key); err != nil {
		return err
	}
	w.notify(Change{Key: key})
	return nil
}
