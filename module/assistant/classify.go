package assistant

import (
	"regexp"
	"strings"
)

// Kind is the turn classification driving how a query is answered.
type Kind int

const (
	// KindSearch goes to the backend with the accumulated context.
	KindSearch Kind = iota
	// KindGratitude gets a canned reply, no backend call.
	KindGratitude
	// KindFilterOnly refines the held result set purely client-side.
	KindFilterOnly
)

// Classifier decides how a submitted query is handled. The heuristic
// rules are a policy, not a contract: swap in a smarter implementation
// without touching the session store.
type Classifier interface {
	Classify(query string, hasResults bool) Kind
}

// Heuristic is the default keyword classifier. All term lists are
// replaceable.
type Heuristic struct {
	// Gratitude phrases matched against the whole normalized query.
	Gratitude []string
	// FilterTerms flag price/condition constraint language.
	FilterTerms []string
	// ProductNouns veto the filter-only shortcut: naming a product
	// means a fresh search.
	ProductNouns []string
}

var priceRe = regexp.MustCompile(`\$|\d`)

func NewHeuristic() *Heuristic {
	return &Heuristic{
		Gratitude: []string{
			"thanks", "thank you", "thankyou", "thx", "ty", "cool",
			"great", "awesome", "perfect", "nice", "ok", "okay",
			"got it", "sounds good", "bye", "goodbye", "see you",
		},
		FilterTerms: []string{
			"under", "over", "below", "above", "less than", "more than",
			"cheaper", "cheapest", "between", "price", "cost", "dollar",
			"dollars", "condition", "new", "like new", "used", "good",
			"fair", "poor",
		},
		ProductNouns: []string{
			"laptop", "phone", "iphone", "macbook", "computer", "tablet",
			"ipad", "monitor", "keyboard", "mouse", "headphones", "book",
			"textbook", "bike", "bicycle", "desk", "chair", "couch",
			"sofa", "table", "lamp", "fridge", "microwave", "tv",
			"camera", "guitar", "calculator", "backpack", "shoes",
			"jacket", "dress", "scooter",
		},
	}
}

func (h *Heuristic) Classify(query string, hasResults bool) Kind {
	q := normalize(query)
	if q == "" {
		return KindSearch
	}

	if h.isGratitude(q) {
		return KindGratitude
	}
	if hasResults && h.hasFilterLanguage(q) && !h.mentionsProduct(q) {
		return KindFilterOnly
	}
	return KindSearch
}

// isGratitude accepts short acknowledgments with no product or filter
// content.
func (h *Heuristic) isGratitude(q string) bool {
	if len(strings.Fields(q)) > 4 {
		return false
	}
	if h.mentionsProduct(q) || priceRe.MatchString(q) {
		return false
	}
	for _, phrase := range h.Gratitude {
		if q == phrase || containsWord(q, phrase) {
			return true
		}
	}
	return false
}

func (h *Heuristic) hasFilterLanguage(q string) bool {
	if priceRe.MatchString(q) {
		return true
	}
	for _, t := range h.FilterTerms {
		if containsWord(q, t) {
			return true
		}
	}
	return false
}

func (h *Heuristic) mentionsProduct(q string) bool {
	for _, n := range h.ProductNouns {
		if containsWord(q, n) || containsWord(q, n+"s") || containsWord(q, n+"es") {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "!.?,")
	return s
}

// containsWord matches term on word boundaries so "new" does not fire
// inside "newspaper".
func containsWord(q, term string) bool {
	idx := 0
	for {
		i := strings.Index(q[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		leftOK := start == 0 || !isWordChar(q[start-1])
		rightOK := end == len(q) || !isWordChar(q[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
		if idx >= len(q) {
			return false
		}
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
