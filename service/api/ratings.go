package api

import (
	"context"
	"fmt"
	"net/http"

	"campusmarket/module/market/model"
)

type RatingCreate struct {
	RatedUserID int64  `json:"rated_user_id"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment,omitempty"`
}

type TransactionRatings struct {
	Ratings  []model.Rating `json:"ratings"`
	HasRated bool           `json:"has_rated"`
}

// RateUser rates the counterparty of a settled transaction. Rating the
// same transaction twice updates the existing rating.
func (c *Client) RateUser(ctx context.Context, transactionID int64, in RatingCreate) (*model.Rating, error) {
	var out model.Rating
	path := fmt.Sprintf("/chat/transactions/%d/rate", transactionID)
	if _, err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetTransactionRatings(ctx context.Context, transactionID int64) (*TransactionRatings, error) {
	var out TransactionRatings
	path := fmt.Sprintf("/chat/transactions/%d/ratings", transactionID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetUserRatingSummary(ctx context.Context, userID int64) (*model.RatingSummary, error) {
	var out model.RatingSummary
	path := fmt.Sprintf("/chat/users/%d/rating-summary", userID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactionSummary returns the caller's aggregated sales and
// purchases for the post-sale screen.
func (c *Client) GetTransactionSummary(ctx context.Context) (*model.TransactionSummary, error) {
	var out model.TransactionSummary
	if _, err := c.do(ctx, http.MethodGet, "/chat/transactions/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
