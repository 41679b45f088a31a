package decode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	ID      int64     `json:"id"`
	Price   float64   `json:"price"`
	Name    string    `json:"name"`
	SentAt  time.Time `json:"sent_at"`
	Missing string    `json:"missing"`
}

func TestMap(t *testing.T) {
	t.Run("json numbers land in int64 fields", func(t *testing.T) {
		out, err := Map[event](map[string]any{
			"id":    float64(42),
			"price": 19.5,
			"name":  "bike",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(42), out.ID)
		assert.Equal(t, 19.5, out.Price)
		assert.Equal(t, "bike", out.Name)
		assert.Empty(t, out.Missing)
	})

	t.Run("rfc3339 timestamps", func(t *testing.T) {
		out, err := Map[event](map[string]any{"sent_at": "2026-03-01T10:00:00Z"})
		require.NoError(t, err)
		assert.Equal(t, 2026, out.SentAt.Year())
	})

	t.Run("naive isoformat timestamps", func(t *testing.T) {
		out, err := Map[event](map[string]any{"sent_at": "2026-03-01T10:00:00.123456"})
		require.NoError(t, err)
		assert.Equal(t, time.March, out.SentAt.Month())
	})

	t.Run("nil map rejected", func(t *testing.T) {
		_, err := Map[event](nil)
		assert.Error(t, err)
	})

	t.Run("unparseable time surfaces", func(t *testing.T) {
		_, err := Map[event](map[string]any{"sent_at": "yesterday"})
		assert.Error(t, err)
	})
}
