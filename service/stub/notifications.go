package stub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusmarket/module/market/model"
)

// createNotification records a notification for userID and returns it
// for pushing. Callers hold s.mu.
func (s *Server) createNotification(userID int64, typ model.NotificationType, title, message string, itemID, relatedUserID, convID int64) model.Notification {
	n := model.Notification{
		ID:                    s.nextID(),
		Type:                  typ,
		Title:                 title,
		Message:               message,
		CreatedAt:             time.Now(),
		RelatedItemID:         itemID,
		RelatedUserID:         relatedUserID,
		RelatedConversationID: convID,
	}
	s.notifs[userID] = append(s.notifs[userID], n)
	return n
}

func (s *Server) listNotifications(c *gin.Context) {
	me := currentUser(c)
	unreadOnly := c.DefaultQuery("unread_only", "false") == "true"

	s.mu.Lock()
	mine := s.notifs[me]
	out := make([]model.Notification, 0, len(mine))
	// Newest first.
	for i := len(mine) - 1; i >= 0; i-- {
		if unreadOnly && mine[i].IsRead {
			continue
		}
		out = append(out, mine[i])
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) unreadCount(c *gin.Context) {
	me := currentUser(c)

	s.mu.Lock()
	count := 0
	for _, n := range s.notifs[me] {
		if !n.IsRead {
			count++
		}
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (s *Server) markNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	me := currentUser(c)

	s.mu.Lock()
	mine := s.notifs[me]
	for i := range mine {
		if mine[i].ID == id {
			now := time.Now()
			mine[i].IsRead = true
			mine[i].ReadAt = &now
			s.mu.Unlock()
			c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
			return
		}
	}
	s.mu.Unlock()
	abortNotFound(c, "Notification")
}

func (s *Server) markAllNotificationsRead(c *gin.Context) {
	me := currentUser(c)

	s.mu.Lock()
	now := time.Now()
	marked := 0
	mine := s.notifs[me]
	for i := range mine {
		if !mine[i].IsRead {
			mine[i].IsRead = true
			mine[i].ReadAt = &now
			marked++
		}
	}
	s.mu.Unlock()

	s.push(me, "notifications_read", gin.H{"notifications_read": marked})
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

func (s *Server) deleteNotification(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	me := currentUser(c)

	s.mu.Lock()
	mine := s.notifs[me]
	for i := range mine {
		if mine[i].ID == id {
			s.notifs[me] = append(mine[:i:i], mine[i+1:]...)
			s.mu.Unlock()
			c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
			return
		}
	}
	s.mu.Unlock()
	abortNotFound(c, "Notification")
}
