package assistant

import (
	"regexp"
	"strconv"

	"campusmarket/module/market/model"
)

// Refinement is a pure client-side filter over the held result set.
type Refinement struct {
	MinPrice  *float64
	MaxPrice  *float64
	Condition string
}

var (
	underRe   = regexp.MustCompile(`(?i)\b(?:under|below|less\s+than|cheaper\s+than|max(?:imum)?(?:\s+of)?)\s*\$?\s*(\d+(?:\.\d+)?)`)
	overRe    = regexp.MustCompile(`(?i)\b(?:over|above|more\s+than|min(?:imum)?(?:\s+of)?|at\s+least)\s*\$?\s*(\d+(?:\.\d+)?)`)
	betweenRe = regexp.MustCompile(`(?i)\bbetween\s*\$?\s*(\d+(?:\.\d+)?)\s*(?:and|-|to)\s*\$?\s*(\d+(?:\.\d+)?)`)

	conditionRes = []struct {
		re   *regexp.Regexp
		cond string
	}{
		{regexp.MustCompile(`(?i)\blike\s*new\b`), model.ConditionLikeNew},
		{regexp.MustCompile(`(?i)\balmost\s*new\b`), model.ConditionLikeNew},
		{regexp.MustCompile(`(?i)\bnew\b`), model.ConditionNew},
		{regexp.MustCompile(`(?i)\bgood\b`), model.ConditionGood},
		{regexp.MustCompile(`(?i)\bfair\b`), model.ConditionFair},
		{regexp.MustCompile(`(?i)\bpoor\b`), model.ConditionPoor},
		{regexp.MustCompile(`(?i)\bused\b`), model.ConditionGood},
	}
)

// ParseRefinement extracts price bounds and a condition from
// constraint language. "like new" must win over the bare "new" match,
// hence the ordered pattern list.
func ParseRefinement(query string) Refinement {
	var r Refinement

	if m := betweenRe.FindStringSubmatch(query); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		if lo > hi {
			lo, hi = hi, lo
		}
		r.MinPrice, r.MaxPrice = &lo, &hi
	} else {
		if m := underRe.FindStringSubmatch(query); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			r.MaxPrice = &v
		}
		if m := overRe.FindStringSubmatch(query); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			r.MinPrice = &v
		}
	}

	for _, c := range conditionRes {
		if c.re.MatchString(query) {
			r.Condition = c.cond
			break
		}
	}
	return r
}

// Apply filters items against the refinement. Price bounds are
// inclusive; the condition filter is hierarchical, keeping anything at
// the requested condition or better. The result is always a subset of
// the input.
func Apply(items []model.ItemSummary, r Refinement) []model.ItemSummary {
	out := make([]model.ItemSummary, 0, len(items))
	for _, it := range items {
		if r.MinPrice != nil && it.Price < *r.MinPrice {
			continue
		}
		if r.MaxPrice != nil && it.Price > *r.MaxPrice {
			continue
		}
		if r.Condition != "" && !model.ConditionAtLeast(it.Condition, r.Condition) {
			continue
		}
		out = append(out, it)
	}
	return out
}
