package storage

import (
	"strings"

	"campusmarket/logger"
)

const (
	maxComparison    = 3
	maxSearchHistory = 10
)

// Lists bundles the small durable collections the UI keeps next to the
// auth token: favorited item ids, the compare tray and recent search
// terms. All are stored as JSON arrays under well-known keys.
type Lists struct {
	store Store
}

func NewLists(store Store) *Lists {
	return &Lists{store: store}
}

func (l *Lists) load(key string) []string {
	var out []string
	if _, err := GetJSON(l.store, key, &out); err != nil {
		logger.Warnf("[lists] load %s: %v", key, err)
		return nil
	}
	return out
}

func (l *Lists) save(key string, vals []string) {
	if err := SetJSON(l.store, key, vals); err != nil {
		logger.Warnf("[lists] save %s: %v", key, err)
	}
}

func (l *Lists) Favorites() []string { return l.load(KeyFavorites) }

// ToggleFavorite adds the id if absent, removes it if present, and
// reports whether it is favorited afterwards.
func (l *Lists) ToggleFavorite(itemID string) bool {
	favs := l.load(KeyFavorites)
	for i, id := range favs {
		if id == itemID {
			l.save(KeyFavorites, append(favs[:i:i], favs[i+1:]...))
			return false
		}
	}
	l.save(KeyFavorites, append(favs, itemID))
	return true
}

func (l *Lists) Comparison() []string { return l.load(KeyComparison) }

// AddComparison adds an item to the compare tray. At most three items
// are held; adding a fourth is refused.
func (l *Lists) AddComparison(itemID string) bool {
	items := l.load(KeyComparison)
	for _, id := range items {
		if id == itemID {
			return true
		}
	}
	if len(items) >= maxComparison {
		return false
	}
	l.save(KeyComparison, append(items, itemID))
	return true
}

func (l *Lists) RemoveComparison(itemID string) {
	items := l.load(KeyComparison)
	for i, id := range items {
		if id == itemID {
			l.save(KeyComparison, append(items[:i:i], items[i+1:]...))
			return
		}
	}
}

func (l *Lists) SearchHistory() []string { return l.load(KeySearchHistory) }

// PushSearch records a search term most-recent-first, de-duplicating
// case-insensitively and keeping the newest ten.
func (l *Lists) PushSearch(term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	hist := l.load(KeySearchHistory)
	out := make([]string, 0, len(hist)+1)
	out = append(out, term)
	for _, h := range hist {
		if strings.EqualFold(h, term) {
			continue
		}
		out = append(out, h)
	}
	if len(out) > maxSearchHistory {
		out = out[:maxSearchHistory]
	}
	l.save(KeySearchHistory, out)
}
