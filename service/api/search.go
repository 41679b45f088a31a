package api

import (
	"context"
	"encoding/json"
	"net/http"

	"campusmarket/logger"
	"campusmarket/module/market/model"
)

// Response headers carrying the collaborator's extraction metadata.
const (
	HeaderExtractedCriteria = "X-Extracted-Criteria"
	HeaderExtractionMethod  = "X-Extraction-Method"
	HeaderFiltersRelaxed    = "X-Filters-Relaxed"
)

type SearchRequest struct {
	Query   string                `json:"query"`
	Context *model.SearchCriteria `json:"context,omitempty"`
}

type SearchResult struct {
	Items    []model.ItemSummary
	Criteria model.SearchCriteria
	Method   string
	Relaxed  []string
}

// AISearch runs a natural-language item query. The accumulated context
// rides along so follow-up queries refine rather than restart; the
// extracted criteria come back header-encoded next to the item list.
func (c *Client) AISearch(ctx context.Context, query string, sctx *model.SearchCriteria) (*SearchResult, error) {
	var items []model.ItemSummary
	hdr, err := c.do(ctx, http.MethodPost, "/items/ai-search", SearchRequest{Query: query, Context: sctx}, &items)
	if err != nil {
		return nil, err
	}

	out := &SearchResult{Items: items, Method: hdr.Get(HeaderExtractionMethod)}
	if raw := hdr.Get(HeaderExtractedCriteria); raw != "" {
		if uerr := json.Unmarshal([]byte(raw), &out.Criteria); uerr != nil {
			logger.Warnf("[api] bad %s header: %v", HeaderExtractedCriteria, uerr)
		}
	}
	if raw := hdr.Get(HeaderFiltersRelaxed); raw != "" {
		if uerr := json.Unmarshal([]byte(raw), &out.Relaxed); uerr != nil {
			logger.Warnf("[api] bad %s header: %v", HeaderFiltersRelaxed, uerr)
		}
	}
	return out, nil
}
