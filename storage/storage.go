// Package storage defines the durable key-value port the client core
// persists its local state behind. Browsers have localStorage; here
// the same contract is an interface with memory, file and redis
// implementations.
package storage

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Well-known keys.
const (
	KeyAccessToken    = "access_token"
	KeyTranscript     = "ai_chat_messages"
	KeySearchContext  = "ai_search_context"
	KeyAssistantOpen  = "ai_chat_open"
	KeyFavorites      = "favorites"
	KeyComparison     = "comparison_items"
	KeySearchHistory  = "search_history"
)

// Store is the persistence port. Get reports presence explicitly so
// an empty stored value is distinguishable from an absent key.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// GetJSON reads key and unmarshals it into out. Returns false when the
// key is absent.
func GetJSON(s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, errors.Wrapf(err, "unmarshal %s", key)
	}
	return true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", key)
	}
	return s.Set(key, string(raw))
}
