package stub

import (
	"encoding/json"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"campusmarket/module/market/model"
)

var (
	maxPriceRe  = regexp.MustCompile(`(?i)\b(?:under|below|less\s+than|cheaper\s+than|max(?:imum)?(?:\s+of)?)\s*\$?\s*(\d+(?:\.\d+)?)`)
	minPriceRe  = regexp.MustCompile(`(?i)\b(?:over|above|more\s+than|min(?:imum)?(?:\s+of)?|at\s+least)\s*\$?\s*(\d+(?:\.\d+)?)`)
	rangeRe     = regexp.MustCompile(`(?i)\bbetween\s*\$?\s*(\d+(?:\.\d+)?)\s*(?:and|-|to)\s*\$?\s*(\d+(?:\.\d+)?)`)
	searchWords = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9]*`)
)

var searchConditions = []struct {
	phrase string
	cond   string
}{
	{"like new", model.ConditionLikeNew},
	{"almost new", model.ConditionLikeNew},
	{"new", model.ConditionNew},
	{"good", model.ConditionGood},
	{"fair", model.ConditionFair},
	{"poor", model.ConditionPoor},
	{"used", model.ConditionGood},
}

// searchStopwords are query words that never name a product.
var searchStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "i": true, "im": true, "me": true,
	"for": true, "in": true, "of": true, "to": true, "and": true, "or": true,
	"under": true, "below": true, "over": true, "above": true, "between": true,
	"less": true, "more": true, "than": true, "max": true, "maximum": true,
	"min": true, "minimum": true, "at": true, "least": true, "cheaper": true,
	"looking": true, "find": true, "show": true, "want": true, "need": true,
	"search": true, "searching": true, "buy": true, "get": true, "some": true,
	"any": true, "with": true, "that": true, "this": true, "it": true,
	"those": true, "them": true, "these": true, "ones": true, "one": true,
	"condition": true, "price": true, "priced": true, "dollars": true,
	"new": true, "used": true, "like": true, "almost": true, "good": true,
	"fair": true, "poor": true, "only": true, "cheap": true, "please": true,
}

// extractCriteria pulls structured filters from a natural-language
// query with the same keyword rules the real extractor falls back to.
func extractCriteria(query string) model.SearchCriteria {
	var crit model.SearchCriteria

	if m := rangeRe.FindStringSubmatch(query); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		if lo > hi {
			lo, hi = hi, lo
		}
		crit.MinPrice, crit.MaxPrice = &lo, &hi
	} else {
		if m := maxPriceRe.FindStringSubmatch(query); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			crit.MaxPrice = &v
		}
		if m := minPriceRe.FindStringSubmatch(query); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			crit.MinPrice = &v
		}
	}

	lower := strings.ToLower(query)
	for _, sc := range searchConditions {
		if strings.Contains(lower, sc.phrase) {
			crit.Condition = sc.cond
			break
		}
	}

	for _, w := range searchWords.FindAllString(lower, -1) {
		if searchStopwords[w] || len(w) < 2 {
			continue
		}
		crit.ProductNames = append(crit.ProductNames, w)
	}
	return crit
}

func matchesProduct(it *item, names []string) bool {
	if len(names) == 0 {
		return true
	}
	hay := strings.ToLower(it.Title + " " + it.Description + " " + it.Category)
	for _, n := range names {
		n = strings.ToLower(n)
		if strings.Contains(hay, n) {
			return true
		}
		// "bikes" should still find a "Bike".
		if s := strings.TrimSuffix(strings.TrimSuffix(n, "es"), "s"); s != n && len(s) >= 2 && strings.Contains(hay, s) {
			return true
		}
	}
	return false
}

func (s *Server) filterItems(crit model.SearchCriteria, usePrice, useCondition bool) []model.ItemSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.ItemSummary{}
	for _, it := range s.items {
		if it.ItemSummary.Status != "AVAILABLE" {
			continue
		}
		if !matchesProduct(it, crit.ProductNames) {
			continue
		}
		if crit.Category != "" && !strings.EqualFold(it.Category, crit.Category) {
			continue
		}
		if usePrice {
			if crit.MinPrice != nil && it.Price < *crit.MinPrice {
				continue
			}
			if crit.MaxPrice != nil && it.Price > *crit.MaxPrice {
				continue
			}
		}
		if useCondition && crit.Condition != "" && !model.ConditionAtLeast(it.Condition, crit.Condition) {
			continue
		}
		out = append(out, it.ItemSummary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// aiSearch extracts criteria from the query, merges the caller's
// carried context, filters the catalog, and progressively relaxes
// filters when nothing matches. The extraction metadata rides back in
// response headers so the body stays a plain item list.
func (s *Server) aiSearch(c *gin.Context) {
	var in struct {
		Query   string                `json:"query"`
		Context *model.SearchCriteria `json:"context"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	crit := extractCriteria(in.Query)
	if in.Context != nil {
		crit = in.Context.Merge(crit)
	}

	relaxed := []string{}
	items := s.filterItems(crit, true, true)
	if len(items) == 0 && crit.Condition != "" {
		items = s.filterItems(crit, true, false)
		if len(items) > 0 {
			relaxed = append(relaxed, "condition")
		}
	}
	if len(items) == 0 && (crit.MinPrice != nil || crit.MaxPrice != nil) {
		items = s.filterItems(crit, false, false)
		if len(items) > 0 {
			if crit.Condition != "" && len(relaxed) == 0 {
				relaxed = append(relaxed, "condition")
			}
			relaxed = append(relaxed, "price")
		}
	}

	critJSON, _ := json.Marshal(crit)
	relaxedJSON, _ := json.Marshal(relaxed)
	c.Header("X-Extracted-Criteria", string(critJSON))
	c.Header("X-Extraction-Method", "keyword")
	c.Header("X-Filters-Relaxed", string(relaxedJSON))
	c.JSON(http.StatusOK, items)
}
