package stub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campusmarket/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsSession is one user's push connection. Writes are serialized so
// concurrent handlers can push to the same socket.
type wsSession struct {
	userID int64
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (w *wsSession) send(typ string, data any) error {
	raw, err := json.Marshal(map[string]any{"type": typ, "data": data})
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, raw)
}

// handleWS upgrades the connection, then authenticates: a bad or
// mismatched token gets a policy-violation close so the client knows
// not to retry.
func (s *Server) handleWS(c *gin.Context) {
	userID, ok := pathID(c, "userID")
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("ws upgrade failed: %v", err)
		return
	}

	tokenUser, valid := s.verify(c.Query("token"))
	if !valid || tokenUser != userID {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"), deadline)
		_ = conn.Close()
		return
	}

	sess := &wsSession{userID: userID, conn: conn}
	s.mu.Lock()
	if prev := s.conns[userID]; prev != nil {
		_ = prev.conn.Close()
	}
	s.conns[userID] = sess
	s.mu.Unlock()

	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if mt == websocket.TextMessage && string(raw) == "ping" {
			_ = sess.send("pong", gin.H{})
		}
	}

	s.mu.Lock()
	if s.conns[userID] == sess {
		delete(s.conns, userID)
	}
	s.mu.Unlock()
	_ = conn.Close()
}

// push delivers one event to userID if they are connected.
func (s *Server) push(userID int64, typ string, data any) {
	s.mu.Lock()
	sess := s.conns[userID]
	s.mu.Unlock()
	if sess == nil {
		return
	}
	if err := sess.send(typ, data); err != nil {
		logger.Warnf("ws push to user %d failed: %v", userID, err)
	}
}

// broadcastConversationUpdate tells both participants the conversation
// metadata changed.
func (s *Server) broadcastConversationUpdate(conv *conversation) {
	s.mu.Lock()
	ev := gin.H{
		"conversation_id": conv.ID,
		"item_id":         conv.ItemID,
		"is_sold":         conv.IsSold,
		"is_ended":        conv.IsEnded,
		"transaction_id":  conv.TransactionID,
		"updated_at":      time.Now(),
	}
	if conv.TransactionID != 0 {
		ev["transaction"] = s.txs[conv.TransactionID]
	}
	if it := s.items[conv.ItemID]; it != nil {
		ev["item_title"] = it.Title
		ev["item_status"] = it.ItemSummary.Status
		ev["item_price"] = it.Price
	}
	u1, u2 := conv.User1ID, conv.User2ID
	s.mu.Unlock()

	s.push(u1, "conversation_updated", ev)
	s.push(u2, "conversation_updated", ev)
}
