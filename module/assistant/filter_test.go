package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/module/market/model"
)

func TestParseRefinement(t *testing.T) {
	t.Run("upper bound", func(t *testing.T) {
		r := ParseRefinement("under $50")
		require.NotNil(t, r.MaxPrice)
		assert.Equal(t, 50.0, *r.MaxPrice)
		assert.Nil(t, r.MinPrice)
	})

	t.Run("lower bound", func(t *testing.T) {
		r := ParseRefinement("at least 20 dollars")
		require.NotNil(t, r.MinPrice)
		assert.Equal(t, 20.0, *r.MinPrice)
	})

	t.Run("range with swapped bounds", func(t *testing.T) {
		r := ParseRefinement("between $80 and $30")
		require.NotNil(t, r.MinPrice)
		require.NotNil(t, r.MaxPrice)
		assert.Equal(t, 30.0, *r.MinPrice)
		assert.Equal(t, 80.0, *r.MaxPrice)
	})

	t.Run("like new wins over bare new", func(t *testing.T) {
		assert.Equal(t, model.ConditionLikeNew, ParseRefinement("like new ones please").Condition)
		assert.Equal(t, model.ConditionNew, ParseRefinement("only new items").Condition)
	})

	t.Run("used maps to good", func(t *testing.T) {
		assert.Equal(t, model.ConditionGood, ParseRefinement("used is fine").Condition)
	})

	t.Run("no constraints", func(t *testing.T) {
		r := ParseRefinement("something else entirely")
		assert.Nil(t, r.MinPrice)
		assert.Nil(t, r.MaxPrice)
		assert.Empty(t, r.Condition)
	})
}

func TestApply(t *testing.T) {
	items := []model.ItemSummary{
		{ID: 1, Title: "A", Price: 10, Condition: model.ConditionPoor},
		{ID: 2, Title: "B", Price: 25, Condition: model.ConditionGood},
		{ID: 3, Title: "C", Price: 40, Condition: model.ConditionLikeNew},
		{ID: 4, Title: "D", Price: 60, Condition: model.ConditionNew},
	}

	t.Run("inclusive price bounds", func(t *testing.T) {
		min, max := 25.0, 40.0
		out := Apply(items, Refinement{MinPrice: &min, MaxPrice: &max})
		require.Len(t, out, 2)
		assert.Equal(t, int64(2), out[0].ID)
		assert.Equal(t, int64(3), out[1].ID)
	})

	t.Run("condition keeps equal or better", func(t *testing.T) {
		out := Apply(items, Refinement{Condition: model.ConditionGood})
		require.Len(t, out, 3)
		for _, it := range out {
			assert.True(t, model.ConditionAtLeast(it.Condition, model.ConditionGood))
		}
	})

	t.Run("result is always a subset", func(t *testing.T) {
		max := 5.0
		out := Apply(items, Refinement{MaxPrice: &max})
		assert.Empty(t, out)
	})

	t.Run("no constraints keeps everything", func(t *testing.T) {
		out := Apply(items, Refinement{})
		assert.Len(t, out, len(items))
	})
}
