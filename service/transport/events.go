package transport

import (
	"campusmarket/module/market/model"
	"campusmarket/tools/decode"
	"time"
)

// Push event types delivered by the collaborator.
const (
	EventMessage             = "message"
	EventNotification        = "notification"
	EventConversationUpdated = "conversation_updated"
	EventPurchaseOffer       = "purchase_offer"
	EventItemSold            = "item_sold"
	EventNotificationsRead   = "notifications_read"
	EventPong                = "pong"
)

// frame is the wire shape of every push event.
type frame struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// ConversationUpdate announces that conversation metadata changed
// (new message, offer movement, sale, reopen).
type ConversationUpdate struct {
	ConversationID int64              `json:"conversation_id"`
	ItemID         int64              `json:"item_id"`
	IsSold         bool               `json:"is_sold"`
	IsEnded        bool               `json:"is_ended"`
	TransactionID  int64              `json:"transaction_id"`
	Transaction    *model.Transaction `json:"transaction,omitempty"`
	ItemTitle      string             `json:"item_title,omitempty"`
	ItemStatus     string             `json:"item_status,omitempty"`
	ItemPrice      float64            `json:"item_price,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// PurchaseOffer announces a new or countered offer to the counterparty.
type PurchaseOffer struct {
	ConversationID int64   `json:"conversation_id"`
	ItemID         int64   `json:"item_id"`
	ItemTitle      string  `json:"item_title"`
	OffererName    string  `json:"offerer_name"`
	OfferPrice     float64 `json:"offer_price"`
	OriginalPrice  float64 `json:"original_price"`
	IsFromSeller   bool    `json:"is_from_seller"`
}

// ItemSold announces a settled sale to both parties.
type ItemSold struct {
	TransactionID  int64              `json:"transaction_id"`
	ConversationID int64              `json:"conversation_id"`
	ItemID         int64              `json:"item_id"`
	ItemTitle      string             `json:"item_title"`
	SellerName     string             `json:"seller_name"`
	BuyerName      string             `json:"buyer_name"`
	SalePrice      float64            `json:"sale_price"`
	OriginalPrice  float64            `json:"original_price"`
	Transaction    *model.Transaction `json:"transaction,omitempty"`
}

// NotificationsRead reports how many notifications were settled when a
// conversation was opened elsewhere.
type NotificationsRead struct {
	ConversationID    int64 `json:"conversation_id"`
	NotificationsRead int   `json:"notifications_read"`
}

// Decode* helpers turn a raw event payload into its typed form.

func DecodeMessage(data map[string]any) (*model.Message, error) {
	return decode.Map[model.Message](data)
}

func DecodeNotification(data map[string]any) (*model.Notification, error) {
	return decode.Map[model.Notification](data)
}

func DecodeConversationUpdate(data map[string]any) (*ConversationUpdate, error) {
	return decode.Map[ConversationUpdate](data)
}

func DecodePurchaseOffer(data map[string]any) (*PurchaseOffer, error) {
	return decode.Map[PurchaseOffer](data)
}

func DecodeItemSold(data map[string]any) (*ItemSold, error) {
	return decode.Map[ItemSold](data)
}

func DecodeNotificationsRead(data map[string]any) (*NotificationsRead, error) {
	return decode.Map[NotificationsRead](data)
}
