package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleFavorite(t *testing.T) {
	l := NewLists(NewMemory())

	assert.True(t, l.ToggleFavorite("7"))
	assert.True(t, l.ToggleFavorite("9"))
	assert.Equal(t, []string{"7", "9"}, l.Favorites())

	assert.False(t, l.ToggleFavorite("7"))
	assert.Equal(t, []string{"9"}, l.Favorites())
}

func TestComparison(t *testing.T) {
	l := NewLists(NewMemory())

	t.Run("caps at three", func(t *testing.T) {
		assert.True(t, l.AddComparison("1"))
		assert.True(t, l.AddComparison("2"))
		assert.True(t, l.AddComparison("3"))
		assert.False(t, l.AddComparison("4"))
		assert.Equal(t, []string{"1", "2", "3"}, l.Comparison())
	})

	t.Run("duplicate add is a no-op success", func(t *testing.T) {
		assert.True(t, l.AddComparison("2"))
		assert.Equal(t, []string{"1", "2", "3"}, l.Comparison())
	})

	t.Run("remove makes room", func(t *testing.T) {
		l.RemoveComparison("2")
		assert.Equal(t, []string{"1", "3"}, l.Comparison())
		assert.True(t, l.AddComparison("4"))
	})
}

func TestPushSearch(t *testing.T) {
	l := NewLists(NewMemory())

	t.Run("most recent first", func(t *testing.T) {
		l.PushSearch("bike")
		l.PushSearch("textbook")
		assert.Equal(t, []string{"textbook", "bike"}, l.SearchHistory())
	})

	t.Run("case-insensitive dedup moves to front", func(t *testing.T) {
		l.PushSearch("BIKE")
		assert.Equal(t, []string{"BIKE", "textbook"}, l.SearchHistory())
	})

	t.Run("blank terms ignored", func(t *testing.T) {
		l.PushSearch("   ")
		assert.Equal(t, []string{"BIKE", "textbook"}, l.SearchHistory())
	})

	t.Run("keeps newest ten", func(t *testing.T) {
		for i := 0; i < 12; i++ {
			l.PushSearch(fmt.Sprintf("term-%d", i))
		}
		hist := l.SearchHistory()
		require.Len(t, hist, 10)
		assert.Equal(t, "term-11", hist[0])
		assert.Equal(t, "term-2", hist[9])
	})
}
