package stub

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"campusmarket/module/market/model"
)

// serialize builds the viewer-specific conversation response.
// Callers hold s.mu.
func (s *Server) serialize(conv *conversation, viewerID int64) model.Conversation {
	otherID := conv.User2ID
	status := conv.User1Status
	if conv.User1ID != viewerID {
		otherID = conv.User1ID
		status = conv.User2Status
	}
	if status == "" {
		status = model.StatusActive
	}

	out := model.Conversation{
		ID:            conv.ID,
		User1ID:       conv.User1ID,
		User2ID:       conv.User2ID,
		ItemID:        conv.ItemID,
		LastMessageAt: conv.LastMessageAt,
		CreatedAt:     conv.CreatedAt,
		OtherUserID:   otherID,
		Status:        status,
		IsSold:        conv.IsSold,
		IsEnded:       conv.IsEnded,
		TransactionID: conv.TransactionID,
	}
	if other := s.users[otherID]; other != nil {
		out.OtherUserUsername = other.Username
		out.OtherUserFullName = other.FullName
	}
	if conv.TransactionID != 0 {
		out.Transaction = s.txs[conv.TransactionID]
	}
	if conv.PendingOfferCents != 0 && conv.PendingOfferFrom != 0 {
		price := float64(conv.PendingOfferCents) / 100.0
		out.PendingOfferPrice = &price
		out.PendingOfferFromUserID = conv.PendingOfferFrom
		out.PendingOfferAt = conv.PendingOfferAt
	}
	for _, m := range s.msgs[conv.ID] {
		if !m.IsRead && m.SenderID != viewerID {
			out.UnreadCount++
		}
	}
	if list := s.msgs[conv.ID]; len(list) > 0 {
		last := list[len(list)-1]
		out.LastMessage = &last
	}
	return out
}

func (s *Server) createConversation(c *gin.Context) {
	var in struct {
		User2ID int64 `json:"user2_id"`
		ItemID  int64 `json:"item_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	me := currentUser(c)
	if in.User2ID == me {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cannot create conversation with yourself"})
		return
	}

	s.mu.Lock()
	if s.users[in.User2ID] == nil {
		s.mu.Unlock()
		abortNotFound(c, "User")
		return
	}
	for _, conv := range s.convs {
		if (conv.User1ID == me && conv.User2ID == in.User2ID) ||
			(conv.User1ID == in.User2ID && conv.User2ID == me) {
			// Re-pointing at a new item resumes an ended conversation
			// and resets the sale flags for the fresh negotiation.
			if in.ItemID != 0 && conv.ItemID != in.ItemID {
				conv.ItemID = in.ItemID
				conv.IsEnded = false
				conv.IsSold = false
				conv.TransactionID = 0
			}
			out := s.serialize(conv, me)
			s.mu.Unlock()
			s.broadcastConversationUpdate(conv)
			c.JSON(http.StatusOK, out)
			return
		}
	}
	conv := &conversation{
		ID:        s.nextID(),
		User1ID:   me,
		User2ID:   in.User2ID,
		ItemID:    in.ItemID,
		CreatedAt: time.Now(),
	}
	s.convs[conv.ID] = conv
	out := s.serialize(conv, me)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) listConversations(c *gin.Context) {
	me := currentUser(c)
	includeArchived := c.DefaultQuery("include_archived", "true") == "true"

	s.mu.Lock()
	out := make([]model.Conversation, 0, len(s.convs))
	for _, conv := range s.convs {
		if conv.User1ID != me && conv.User2ID != me {
			continue
		}
		sc := s.serialize(conv, me)
		if sc.Status == model.StatusDeleted || (sc.Status == model.StatusArchived && !includeArchived) {
			continue
		}
		out = append(out, sc)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt, out[j].CreatedAt
		if out[i].LastMessageAt != nil {
			ti = *out[i].LastMessageAt
		}
		if out[j].LastMessageAt != nil {
			tj = *out[j].LastMessageAt
		}
		return ti.After(tj)
	})
	c.JSON(http.StatusOK, out)
}

// participant looks up the conversation and enforces membership.
// Callers hold s.mu; a nil return means the response was written.
func (s *Server) participant(c *gin.Context, id int64) *conversation {
	conv := s.convs[id]
	if conv == nil {
		s.mu.Unlock()
		abortNotFound(c, "Conversation")
		return nil
	}
	me := currentUser(c)
	if conv.User1ID != me && conv.User2ID != me {
		s.mu.Unlock()
		abortForbidden(c)
		return nil
	}
	return conv
}

func (s *Server) listMessages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	me := currentUser(c)

	s.mu.Lock()
	conv := s.participant(c, id)
	if conv == nil {
		return
	}
	now := time.Now()
	read := 0
	list := s.msgs[id]
	for i := range list {
		if !list[i].IsRead && list[i].SenderID != me {
			list[i].IsRead = true
			list[i].ReadAt = &now
			read++
		}
	}
	s.msgs[id] = list
	if read > 0 {
		mine := s.notifs[me]
		for i := range mine {
			if mine[i].RelatedConversationID == id && !mine[i].IsRead {
				mine[i].IsRead = true
				mine[i].ReadAt = &now
			}
		}
		s.notifs[me] = mine
	}
	out := append([]model.Message(nil), list...)
	s.mu.Unlock()

	if read > 0 {
		s.push(me, "notifications_read", gin.H{
			"conversation_id":    id,
			"notifications_read": read,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createMessage(c *gin.Context) {
	var in struct {
		ConversationID int64  `json:"conversation_id"`
		Content        string `json:"content"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if in.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Message cannot be empty"})
		return
	}
	me := currentUser(c)

	s.mu.Lock()
	conv := s.participant(c, in.ConversationID)
	if conv == nil {
		return
	}
	sender := s.users[me]
	msg := s.appendMessage(conv, me, in.Content)
	recipient := conv.User1ID
	if recipient == me {
		recipient = conv.User2ID
	}
	notif := s.createNotification(recipient, model.NotificationMessage, "New Message",
		fmt.Sprintf("%s sent you a message", sender.FullName), 0, me, conv.ID)
	s.mu.Unlock()

	s.push(recipient, "notification", notif)
	s.push(recipient, "message", msg)
	s.broadcastConversationUpdate(conv)
	c.JSON(http.StatusOK, msg)
}

// appendMessage stores a message and bumps last_message_at. Callers
// hold s.mu.
func (s *Server) appendMessage(conv *conversation, senderID int64, content string) model.Message {
	now := time.Now()
	msg := model.Message{
		ID:             s.nextID(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now,
	}
	if u := s.users[senderID]; u != nil {
		msg.SenderUsername = u.Username
		msg.SenderFullName = u.FullName
	}
	s.msgs[conv.ID] = append(s.msgs[conv.ID], msg)
	conv.LastMessageAt = &now
	return msg
}

func (s *Server) setStatus(c *gin.Context, status string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	conv := s.participant(c, id)
	if conv == nil {
		return
	}
	if conv.User1ID == currentUser(c) {
		conv.User1Status = status
	} else {
		conv.User2Status = status
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) archiveConversation(c *gin.Context) {
	s.setStatus(c, model.StatusArchived)
}

func (s *Server) unarchiveConversation(c *gin.Context) {
	s.setStatus(c, model.StatusActive)
}

// deleteConversation hides the thread for the caller only; the
// counterpart keeps their view.
func (s *Server) deleteConversation(c *gin.Context) {
	s.setStatus(c, model.StatusDeleted)
}

func (s *Server) reportConversation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)

	s.mu.Lock()
	conv := s.participant(c, id)
	if conv == nil {
		return
	}
	conv.IsReported = true
	conv.ReportedBy = currentUser(c)
	conv.ReportReason = in.Reason
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"message": "Conversation reported successfully"})
}

func (s *Server) continueConversation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	conv := s.participant(c, id)
	if conv == nil {
		return
	}
	conv.IsEnded = false
	s.mu.Unlock()
	s.broadcastConversationUpdate(conv)
	c.JSON(http.StatusOK, gin.H{"message": "Conversation can now continue"})
}
