package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	h := NewHeuristic()

	cases := []struct {
		name       string
		query      string
		hasResults bool
		want       Kind
	}{
		{"plain search", "textbooks for calculus", false, KindSearch},
		{"gratitude", "thanks!", false, KindGratitude},
		{"gratitude phrase", "ok sounds good", true, KindGratitude},
		{"long message is not gratitude", "thanks but can you also find me a cheap desk lamp", true, KindSearch},
		{"gratitude with price is a search", "thanks, under $20", true, KindFilterOnly},
		{"filter over held results", "under $50", true, KindFilterOnly},
		{"condition filter", "only like new ones", true, KindFilterOnly},
		{"filter language without results searches", "under $50", false, KindSearch},
		{"product noun forces a search", "bikes under $50", true, KindSearch},
		{"word boundaries respected", "newspaper archive", true, KindSearch},
		{"ty inside party is not gratitude", "party supplies", false, KindSearch},
		{"ok inside broken is not gratitude", "broken printer", false, KindSearch},
		{"empty query", "   ", true, KindSearch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.Classify(tc.query, tc.hasResults))
		})
	}
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("like new condition", "new"))
	assert.False(t, containsWord("newspaper", "new"))
	assert.True(t, containsWord("new", "new"))
	assert.False(t, containsWord("renewal", "new"))
	assert.True(t, containsWord("brand-new stuff", "new"))
}
