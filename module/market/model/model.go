// Package model holds the marketplace domain types exchanged with the
// collaborator. JSON field names follow its wire schema.
package model

import "time"

// ConversationStatus is the per-user view status. A conversation is
// never removed for the counterpart; each side archives or deletes its
// own view.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusDeleted  = "deleted"
)

type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	Content        string     `json:"content"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	SenderUsername string     `json:"sender_username,omitempty"`
	SenderFullName string     `json:"sender_full_name,omitempty"`
}

type Transaction struct {
	ID             int64      `json:"id"`
	ItemID         int64      `json:"item_id"`
	SellerID       int64      `json:"seller_id"`
	BuyerID        int64      `json:"buyer_id"`
	ConversationID int64      `json:"conversation_id"`
	SalePrice      float64    `json:"sale_price"`
	OriginalPrice  float64    `json:"original_price"`
	IsCompleted    bool       `json:"is_completed"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Conversation struct {
	ID                     int64        `json:"id"`
	User1ID                int64        `json:"user1_id"`
	User2ID                int64        `json:"user2_id"`
	ItemID                 int64        `json:"item_id,omitempty"`
	LastMessageAt          *time.Time   `json:"last_message_at,omitempty"`
	CreatedAt              time.Time    `json:"created_at"`
	OtherUserID            int64        `json:"other_user_id"`
	OtherUserUsername      string       `json:"other_user_username"`
	OtherUserFullName      string       `json:"other_user_full_name"`
	UnreadCount            int          `json:"unread_count"`
	LastMessage            *Message     `json:"last_message,omitempty"`
	Status                 string       `json:"status"`
	IsSold                 bool         `json:"is_sold"`
	IsEnded                bool         `json:"is_ended"`
	TransactionID          int64        `json:"transaction_id,omitempty"`
	Transaction            *Transaction `json:"transaction,omitempty"`
	PendingOfferPrice      *float64     `json:"pending_offer_price,omitempty"`
	PendingOfferFromUserID int64        `json:"pending_offer_from_user_id,omitempty"`
	PendingOfferAt         *time.Time   `json:"pending_offer_at,omitempty"`
}

// HasPendingOffer reports whether a proposed price is awaiting the
// counterparty's response.
func (c *Conversation) HasPendingOffer() bool {
	return c.PendingOfferPrice != nil && c.PendingOfferFromUserID != 0
}

// OtherParty returns the participant that is not userID.
func (c *Conversation) OtherParty(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Involves reports whether userID participates in the conversation.
func (c *Conversation) Involves(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

type Rating struct {
	ID            int64     `json:"id"`
	TransactionID int64     `json:"transaction_id"`
	RaterID       int64     `json:"rater_id"`
	RatedUserID   int64     `json:"rated_user_id"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type RatingSummary struct {
	AverageRating *float64 `json:"average_rating"`
	RatingCount   int      `json:"rating_count"`
	ViewerRating  *int     `json:"viewer_rating"`
}

type TransactionDetail struct {
	ID             int64      `json:"id"`
	ItemID         int64      `json:"item_id"`
	ConversationID int64      `json:"conversation_id"`
	ItemTitle      string     `json:"item_title,omitempty"`
	SellerID       int64      `json:"seller_id"`
	SellerName     string     `json:"seller_name,omitempty"`
	BuyerID        int64      `json:"buyer_id"`
	BuyerName      string     `json:"buyer_name,omitempty"`
	SalePrice      float64    `json:"sale_price"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type TransactionSummary struct {
	Sales             []TransactionDetail `json:"sales"`
	Purchases         []TransactionDetail `json:"purchases"`
	SoldItems         int                 `json:"sold_items"`
	PurchasedItems    int                 `json:"purchased_items"`
	TotalAmountEarned float64             `json:"total_amount_earned"`
	TotalAmountSpent  float64             `json:"total_amount_spent"`
}

type NotificationType string

const (
	NotificationMessage      NotificationType = "message"
	NotificationItemInterest NotificationType = "item_interest"
	NotificationItemSold     NotificationType = "item_sold"
	NotificationSystem       NotificationType = "system"
)

type Notification struct {
	ID                    int64            `json:"id"`
	Type                  NotificationType `json:"type"`
	Title                 string           `json:"title"`
	Message               string           `json:"message"`
	IsRead                bool             `json:"is_read"`
	ReadAt                *time.Time       `json:"read_at,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	RelatedItemID         int64            `json:"related_item_id,omitempty"`
	RelatedUserID         int64            `json:"related_user_id,omitempty"`
	RelatedConversationID int64            `json:"related_conversation_id,omitempty"`
}
