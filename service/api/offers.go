package api

import (
	"context"
	"fmt"
	"net/http"

	"campusmarket/module/market/model"
)

// Offer response actions.
const (
	OfferAccept  = "accept"
	OfferReject  = "reject"
	OfferCounter = "counter"
)

type OfferCreate struct {
	SalePrice float64 `json:"sale_price"`
}

// SendOffer installs a pending offer on the conversation, replacing
// any previous one. Fails with a conflict once the item is sold there.
func (c *Client) SendOffer(ctx context.Context, conversationID int64, price float64) error {
	path := fmt.Sprintf("/chat/conversations/%d/offer", conversationID)
	_, err := c.do(ctx, http.MethodPost, path, OfferCreate{SalePrice: price}, nil)
	return err
}

type offerResponse struct {
	Action       string  `json:"action"`
	CounterPrice float64 `json:"counter_price,omitempty"`
}

// AcceptOffer settles the pending offer into a transaction. A second
// accept on a settled conversation returns a conflict.
func (c *Client) AcceptOffer(ctx context.Context, conversationID int64) (*model.Transaction, error) {
	var out model.Transaction
	path := fmt.Sprintf("/chat/conversations/%d/respond-offer", conversationID)
	if _, err := c.do(ctx, http.MethodPost, path, offerResponse{Action: OfferAccept}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RejectOffer clears the pending offer.
func (c *Client) RejectOffer(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/chat/conversations/%d/respond-offer", conversationID)
	_, err := c.do(ctx, http.MethodPost, path, offerResponse{Action: OfferReject}, nil)
	return err
}

// CounterOffer replaces the pending offer with one from the caller.
func (c *Client) CounterOffer(ctx context.Context, conversationID int64, price float64) error {
	path := fmt.Sprintf("/chat/conversations/%d/respond-offer", conversationID)
	_, err := c.do(ctx, http.MethodPost, path, offerResponse{Action: OfferCounter, CounterPrice: price}, nil)
	return err
}
