package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemory()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("k", "v"))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Remove("k"))
	_, ok, err = s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, s.Set("access_token", "abc.def.ghi"))
		v, ok, err := s.Get("access_token")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "abc.def.ghi", v)
	})

	t.Run("keys with path characters", func(t *testing.T) {
		require.NoError(t, s.Set("messages:42/a", "x"))
		v, ok, err := s.Get("messages:42/a")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "x", v)
	})

	t.Run("survives reopen", func(t *testing.T) {
		reopened, err := NewFile(dir)
		require.NoError(t, err)
		v, ok, err := reopened.Get("access_token")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "abc.def.ghi", v)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		require.NoError(t, s.Remove("access_token"))
		require.NoError(t, s.Remove("access_token"))
		_, ok, err := s.Get("access_token")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestJSONHelpers(t *testing.T) {
	s := NewMemory()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var out payload
	ok, err := GetJSON(s, "p", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(s, "p", payload{Name: "bike", Count: 3}))
	ok, err = GetJSON(s, "p", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload{Name: "bike", Count: 3}, out)

	require.NoError(t, s.Set("p", "{not json"))
	_, err = GetJSON(s, "p", &out)
	assert.Error(t, err)
}
