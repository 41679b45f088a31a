package model

import "time"

// Item condition values, ordered best first. Condition filters are
// hierarchical: asking for "good" accepts anything at good or better.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

var conditionRank = map[string]int{
	ConditionNew:     0,
	ConditionLikeNew: 1,
	ConditionGood:    2,
	ConditionFair:    3,
	ConditionPoor:    4,
}

// ConditionAtLeast reports whether have is at least as good as want.
// Unknown conditions never satisfy a filter.
func ConditionAtLeast(have, want string) bool {
	h, ok1 := conditionRank[have]
	w, ok2 := conditionRank[want]
	return ok1 && ok2 && h <= w
}

type ItemSummary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
	Condition   string    `json:"condition,omitempty"`
	Status      string    `json:"status,omitempty"`
	SellerID    int64     `json:"seller_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// SearchCriteria is the structured filter state extracted from a
// natural-language search, accumulated across assistant turns.
type SearchCriteria struct {
	ProductNames []string `json:"product_names,omitempty"`
	Category     string   `json:"category,omitempty"`
	Condition    string   `json:"condition,omitempty"`
	MinPrice     *float64 `json:"min_price,omitempty"`
	MaxPrice     *float64 `json:"max_price,omitempty"`
}

// Merge folds newer criteria into the receiver: non-empty incoming
// values win, absent ones keep the prior context.
func (c SearchCriteria) Merge(in SearchCriteria) SearchCriteria {
	out := c
	if len(in.ProductNames) > 0 {
		out.ProductNames = in.ProductNames
	}
	if in.Category != "" {
		out.Category = in.Category
	}
	if in.Condition != "" {
		out.Condition = in.Condition
	}
	if in.MinPrice != nil {
		out.MinPrice = in.MinPrice
	}
	if in.MaxPrice != nil {
		out.MaxPrice = in.MaxPrice
	}
	return out
}
