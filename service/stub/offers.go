package stub

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusmarket/module/market/model"
)

func toCents(dollars float64) int64 {
	return int64(math.Round(dollars * 100))
}

func fromCents(cents int64) float64 {
	return float64(cents) / 100.0
}

func (s *Server) sendOffer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in struct {
		SalePrice float64 `json:"sale_price"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.SalePrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Offer price must be positive"})
		return
	}
	me := currentUser(c)

	s.mu.Lock()
	conv := s.participant(c, id)
	if conv == nil {
		return
	}
	if conv.IsSold {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Item already sold in this conversation"})
		return
	}
	now := time.Now()
	conv.PendingOfferCents = toCents(in.SalePrice)
	conv.PendingOfferFrom = me
	conv.PendingOfferAt = &now
	price := fromCents(conv.PendingOfferCents)
	s.appendMessage(conv, me, fmt.Sprintf("💰 Purchase offer: $%.2f", price))
	offer := s.offerEvent(conv, me, price)
	other := conv.User1ID
	if other == me {
		other = conv.User2ID
	}
	notif := s.createNotification(other, model.NotificationItemInterest, "New Offer",
		fmt.Sprintf("%s made an offer of $%.2f", s.users[me].FullName, price), conv.ItemID, me, conv.ID)
	s.mu.Unlock()

	s.push(other, "purchase_offer", offer)
	s.push(other, "notification", notif)
	s.broadcastConversationUpdate(conv)
	c.JSON(http.StatusOK, gin.H{"message": "Offer sent", "offer_price": price})
}

// offerEvent builds the purchase_offer payload. Callers hold s.mu.
func (s *Server) offerEvent(conv *conversation, offererID int64, price float64) gin.H {
	ev := gin.H{
		"conversation_id": conv.ID,
		"item_id":         conv.ItemID,
		"offer_price":     price,
	}
	if u := s.users[offererID]; u != nil {
		ev["offerer_name"] = u.FullName
	}
	if it := s.items[conv.ItemID]; it != nil {
		ev["item_title"] = it.Title
		ev["original_price"] = it.Price
		ev["is_from_seller"] = it.SellerID == offererID
	}
	return ev
}

func (s *Server) respondOffer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Action       string  `json:"action"`
		CounterPrice float64 `json:"counter_price"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	me := currentUser(c)

	s.mu.Lock()
	conv := s.participant(c, id)
	if conv == nil {
		return
	}
	if conv.IsSold {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Item already sold in this conversation"})
		return
	}
	if conv.PendingOfferCents == 0 || conv.PendingOfferFrom == 0 {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No pending offer to respond to"})
		return
	}
	if conv.PendingOfferFrom == me {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cannot respond to your own offer"})
		return
	}

	switch in.Action {
	case "accept":
		s.acceptOffer(c, conv, me)
	case "reject":
		conv.PendingOfferCents = 0
		conv.PendingOfferFrom = 0
		conv.PendingOfferAt = nil
		s.appendMessage(conv, me, "❌ Rejected the offer")
		s.mu.Unlock()
		s.broadcastConversationUpdate(conv)
		c.JSON(http.StatusOK, gin.H{"message": "Offer rejected"})
	case "counter":
		if in.CounterPrice <= 0 {
			s.mu.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Counter price must be positive"})
			return
		}
		now := time.Now()
		conv.PendingOfferCents = toCents(in.CounterPrice)
		conv.PendingOfferFrom = me
		conv.PendingOfferAt = &now
		price := fromCents(conv.PendingOfferCents)
		s.appendMessage(conv, me, fmt.Sprintf("💵 Counter offer: $%.2f", price))
		offer := s.offerEvent(conv, me, price)
		other := conv.OtherParty(me)
		s.mu.Unlock()
		s.push(other, "purchase_offer", offer)
		s.broadcastConversationUpdate(conv)
		c.JSON(http.StatusOK, gin.H{"message": "Counter offer sent", "offer_price": price})
	default:
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid action"})
	}
}

// acceptOffer settles the pending offer into a completed transaction.
// Entered holding s.mu; unlocks before pushing.
func (s *Server) acceptOffer(c *gin.Context, conv *conversation, me int64) {
	now := time.Now()
	it := s.items[conv.ItemID]
	sellerID := conv.User1ID
	if it != nil {
		sellerID = it.SellerID
	}
	buyerID := conv.User1ID
	if buyerID == sellerID {
		buyerID = conv.User2ID
	}
	tx := &model.Transaction{
		ID:             s.nextID(),
		ItemID:         conv.ItemID,
		SellerID:       sellerID,
		BuyerID:        buyerID,
		ConversationID: conv.ID,
		SalePrice:      fromCents(conv.PendingOfferCents),
		IsCompleted:    true,
		CompletedAt:    &now,
		CreatedAt:      now,
	}
	if it != nil {
		tx.OriginalPrice = it.Price
		it.ItemSummary.Status = "SOLD"
	}
	s.txs[tx.ID] = tx
	conv.IsSold = true
	conv.IsEnded = true
	conv.TransactionID = tx.ID
	conv.PendingOfferCents = 0
	conv.PendingOfferFrom = 0
	conv.PendingOfferAt = nil
	s.appendMessage(conv, me, "✅ Accepted offer")

	sold := gin.H{
		"transaction_id":  tx.ID,
		"conversation_id": conv.ID,
		"item_id":         conv.ItemID,
		"sale_price":      tx.SalePrice,
		"original_price":  tx.OriginalPrice,
		"transaction":     tx,
	}
	if it != nil {
		sold["item_title"] = it.Title
	}
	if u := s.users[sellerID]; u != nil {
		sold["seller_name"] = u.FullName
	}
	if u := s.users[buyerID]; u != nil {
		sold["buyer_name"] = u.FullName
	}
	notif := s.createNotification(sellerID, model.NotificationItemSold, "Item Sold",
		fmt.Sprintf("Your item sold for $%.2f", tx.SalePrice), conv.ItemID, buyerID, conv.ID)
	s.mu.Unlock()

	s.push(conv.User1ID, "item_sold", sold)
	s.push(conv.User2ID, "item_sold", sold)
	s.push(sellerID, "notification", notif)
	s.broadcastConversationUpdate(conv)
	c.JSON(http.StatusOK, tx)
}

func (s *Server) rateUser(c *gin.Context) {
	txID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Rating < 1 || in.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Rating must be between 1 and 5"})
		return
	}
	me := currentUser(c)

	s.mu.Lock()
	tx := s.txs[txID]
	if tx == nil {
		s.mu.Unlock()
		abortNotFound(c, "Transaction")
		return
	}
	if tx.SellerID != me && tx.BuyerID != me {
		s.mu.Unlock()
		abortForbidden(c)
		return
	}
	rated := tx.SellerID
	if rated == me {
		rated = tx.BuyerID
	}
	// One rating per rater per transaction; re-rating updates in place.
	list := s.ratings[txID]
	for i := range list {
		if list[i].RaterID == me {
			list[i].Rating = in.Rating
			list[i].Comment = in.Comment
			out := list[i]
			s.mu.Unlock()
			c.JSON(http.StatusOK, out)
			return
		}
	}
	r := model.Rating{
		ID:            s.nextID(),
		TransactionID: txID,
		RaterID:       me,
		RatedUserID:   rated,
		Rating:        in.Rating,
		Comment:       in.Comment,
		CreatedAt:     time.Now(),
	}
	s.ratings[txID] = append(list, r)
	s.mu.Unlock()
	c.JSON(http.StatusOK, r)
}

func (s *Server) transactionRatings(c *gin.Context) {
	txID, ok := pathID(c, "id")
	if !ok {
		return
	}
	me := currentUser(c)

	s.mu.Lock()
	if s.txs[txID] == nil {
		s.mu.Unlock()
		abortNotFound(c, "Transaction")
		return
	}
	list := append([]model.Rating(nil), s.ratings[txID]...)
	s.mu.Unlock()

	hasRated := false
	for _, r := range list {
		if r.RaterID == me {
			hasRated = true
		}
	}
	c.JSON(http.StatusOK, gin.H{"ratings": list, "has_rated": hasRated})
}

func (s *Server) userRatingSummary(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	me := currentUser(c)

	s.mu.Lock()
	var sum, count int
	var viewer *int
	for _, list := range s.ratings {
		for _, r := range list {
			if r.RatedUserID != userID {
				continue
			}
			sum += r.Rating
			count++
			if r.RaterID == me {
				v := r.Rating
				viewer = &v
			}
		}
	}
	s.mu.Unlock()

	out := model.RatingSummary{RatingCount: count, ViewerRating: viewer}
	if count > 0 {
		avg := float64(sum) / float64(count)
		out.AverageRating = &avg
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) transactionSummary(c *gin.Context) {
	me := currentUser(c)

	s.mu.Lock()
	var out model.TransactionSummary
	out.Sales = []model.TransactionDetail{}
	out.Purchases = []model.TransactionDetail{}
	for _, tx := range s.txs {
		if tx.SellerID != me && tx.BuyerID != me {
			continue
		}
		d := model.TransactionDetail{
			ID:             tx.ID,
			ItemID:         tx.ItemID,
			ConversationID: tx.ConversationID,
			SellerID:       tx.SellerID,
			BuyerID:        tx.BuyerID,
			SalePrice:      tx.SalePrice,
			CompletedAt:    tx.CompletedAt,
		}
		if it := s.items[tx.ItemID]; it != nil {
			d.ItemTitle = it.Title
		}
		if u := s.users[tx.SellerID]; u != nil {
			d.SellerName = u.FullName
		}
		if u := s.users[tx.BuyerID]; u != nil {
			d.BuyerName = u.FullName
		}
		if tx.SellerID == me {
			out.Sales = append(out.Sales, d)
			out.SoldItems++
			out.TotalAmountEarned += tx.SalePrice
		} else {
			out.Purchases = append(out.Purchases, d)
			out.PurchasedItems++
			out.TotalAmountSpent += tx.SalePrice
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}
