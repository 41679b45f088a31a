// Package stub is an in-memory development double of the marketplace
// collaborator. It serves the REST surface and the push WebSocket the
// client core consumes, with the same negotiation semantics: pending
// offers live on the conversation, accept settles an immutable
// transaction, and both parties get item_sold pushed.
package stub

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"campusmarket/module/market/model"
)

type User struct {
	ID       int64
	Username string
	FullName string
	Role     string
}

type item struct {
	model.ItemSummary
}

// conversation is the server-side record; prices are kept in cents the
// way the real collaborator stores them.
type conversation struct {
	ID            int64
	User1ID       int64
	User2ID       int64
	ItemID        int64
	CreatedAt     time.Time
	LastMessageAt *time.Time

	IsSold        bool
	IsEnded       bool
	TransactionID int64

	PendingOfferCents int64
	PendingOfferFrom  int64
	PendingOfferAt    *time.Time

	User1Status string
	User2Status string

	IsReported   bool
	ReportedBy   int64
	ReportReason string
}

func (c *conversation) OtherParty(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

type Server struct {
	secret []byte

	mu      sync.Mutex
	seq     int64
	users   map[int64]*User
	items   map[int64]*item
	convs   map[int64]*conversation
	msgs    map[int64][]model.Message
	txs     map[int64]*model.Transaction
	ratings map[int64][]model.Rating
	notifs  map[int64][]model.Notification
	conns   map[int64]*wsSession
}

func NewServer(secret string) *Server {
	return &Server{
		secret:  []byte(secret),
		users:   make(map[int64]*User),
		items:   make(map[int64]*item),
		convs:   make(map[int64]*conversation),
		msgs:    make(map[int64][]model.Message),
		txs:     make(map[int64]*model.Transaction),
		ratings: make(map[int64][]model.Rating),
		notifs:  make(map[int64][]model.Notification),
		conns:   make(map[int64]*wsSession),
	}
}

func (s *Server) nextID() int64 {
	s.seq++
	return s.seq
}

// AddUser seeds a user and returns it.
func (s *Server) AddUser(username, fullName, role string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{ID: s.nextID(), Username: username, FullName: fullName, Role: role}
	s.users[u.ID] = u
	return u
}

// AddItem seeds a listing owned by sellerID.
func (s *Server) AddItem(sellerID int64, title, description, category, condition string, price float64) model.ItemSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := &item{
		ItemSummary: model.ItemSummary{
			ID:          s.nextID(),
			Title:       title,
			Description: description,
			Price:       price,
			Category:    category,
			Condition:   condition,
			Status:      "AVAILABLE",
			SellerID:    sellerID,
			CreatedAt:   time.Now(),
		},
	}
	s.items[it.ID] = it
	return it.ItemSummary
}

// Token mints an access token for userID.
func (s *Server) Token(userID int64) string {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return tok
}

func (s *Server) verify(token string) (int64, bool) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return 0, false
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	return id, err == nil
}

// auth extracts and verifies the bearer token.
func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}
		uid, ok := s.verify(strings.TrimPrefix(h, "Bearer "))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
			return
		}
		c.Set("user_id", uid)
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}

// Router builds the collaborator's HTTP surface under /api.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())

	apiGroup := r.Group("/api")

	chat := apiGroup.Group("/chat")
	chat.GET("/ws/:userID", s.handleWS)

	authed := chat.Group("", s.auth())
	authed.POST("/conversations", s.createConversation)
	authed.GET("/conversations", s.listConversations)
	authed.GET("/conversations/:id/messages", s.listMessages)
	authed.POST("/messages", s.createMessage)
	authed.PUT("/conversations/:id/archive", s.archiveConversation)
	authed.PUT("/conversations/:id/unarchive", s.unarchiveConversation)
	authed.DELETE("/conversations/:id", s.deleteConversation)
	authed.POST("/conversations/:id/report", s.reportConversation)
	authed.PUT("/conversations/:id/continue", s.continueConversation)
	authed.POST("/conversations/:id/offer", s.sendOffer)
	authed.POST("/conversations/:id/respond-offer", s.respondOffer)
	authed.GET("/transactions/summary", s.transactionSummary)
	authed.GET("/transactions/:id/ratings", s.transactionRatings)
	authed.POST("/transactions/:id/rate", s.rateUser)
	authed.GET("/users/:id/rating-summary", s.userRatingSummary)

	notif := apiGroup.Group("/notifications", s.auth())
	notif.GET("/", s.listNotifications)
	notif.GET("/unread-count", s.unreadCount)
	notif.PUT("/:id/read", s.markNotificationRead)
	notif.PUT("/read-all", s.markAllNotificationsRead)
	notif.DELETE("/:id", s.deleteNotification)

	items := apiGroup.Group("/items")
	items.POST("/ai-search", s.aiSearch)

	return r
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid id"})
		return 0, false
	}
	return id, true
}

func abortNotFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"detail": what + " not found"})
}

func abortForbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"detail": "Not authorized for this conversation"})
}
