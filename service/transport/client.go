// Package transport maintains the one realtime connection a logged-in
// user holds to the collaborator and fans typed push events out to
// registered handlers. It reconnects on transient failures with linear
// backoff and treats a policy-violation close as a hard auth boundary.
package transport

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"campusmarket/logger"
	"campusmarket/tools/safe"
)

// Handler receives the raw data object of one push event. Handlers for
// the same type run in registration order; a panicking handler does
// not stop its siblings.
type Handler func(data map[string]any)

type Config struct {
	// URL is the ws endpoint without the user path segment,
	// e.g. ws://host/api/chat/ws
	URL string
	// PingInterval between keepalive writes. The keepalive payload is
	// the bare literal "ping", not a JSON frame.
	PingInterval time.Duration
	// MaxAttempts caps automatic reconnects. Past the cap the client
	// stays down until the next explicit Connect.
	MaxAttempts int
	// BackoffStep: attempt n waits n*BackoffStep before redialing.
	BackoffStep time.Duration
}

type state int

const (
	stateIdle state = iota
	stateConnecting
	stateOpen
)

type registration struct {
	id int64
	fn Handler
}

// Client is the process-wide realtime transport. Construct with New
// and inject it where events are consumed.
type Client struct {
	cfg Config

	// OnAuthExpired runs when the server closes with a policy
	// violation. The installer is expected to clear local auth state
	// and route to re-authentication. Never retried.
	OnAuthExpired func(reason string)

	mu       sync.Mutex
	conn     *websocket.Conn
	st       state
	handlers map[string][]registration
	nextID   int64
	attempts int
	stopped  bool // manual disconnect: no further auto-reconnect
	userID   int64
	token    string
	gen      int // connection generation, invalidates stale loops

	writeMu sync.Mutex
}

func New(cfg Config) *Client {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = 2 * time.Second
	}
	return &Client{
		cfg:      cfg,
		handlers: make(map[string][]registration),
	}
}

// Connect opens the connection for userID. Idempotent: a no-op while
// already open or connecting. Any stale handle is torn down first.
func (c *Client) Connect(userID int64, token string) error {
	c.mu.Lock()
	if c.st == stateOpen || c.st == stateConnecting {
		c.mu.Unlock()
		return nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.st = stateConnecting
	c.stopped = false
	c.userID = userID
	c.token = token
	c.mu.Unlock()

	u := fmt.Sprintf("%s/%d?token=%s", c.cfg.URL, userID, url.QueryEscape(token))
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		c.mu.Lock()
		c.st = stateIdle
		c.mu.Unlock()
		logger.Warnf("[transport] dial %s failed: %v", c.cfg.URL, err)
		c.scheduleReconnect()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.st = stateOpen
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	logger.Infof("[transport] connected user=%d", userID)
	safe.Go(func() { c.readLoop(conn, gen) })
	safe.Go(func() { c.pingLoop(conn, gen) })
	return nil
}

// On registers a handler for one event type and returns its cancel
// func. Multiple handlers per type are permitted.
func (c *Client) On(eventType string, h Handler) (off func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[eventType] = append(c.handlers[eventType], registration{id: id, fn: h})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		list := c.handlers[eventType]
		for i, r := range list {
			if r.id == id {
				c.handlers[eventType] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Send writes a {type,data} frame. Failures are logged, never
// propagated; a broken connection surfaces through the read loop.
func (c *Client) Send(eventType string, data map[string]any) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		logger.Debugf("[transport] send %s dropped: not connected", eventType)
		return
	}
	raw, err := json.Marshal(frame{Type: eventType, Data: data})
	if err != nil {
		logger.Errorf("[transport] marshal %s: %v", eventType, err)
		return
	}
	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, raw)
	c.writeMu.Unlock()
	if err != nil {
		logger.Warnf("[transport] send %s: %v", eventType, err)
	}
}

// Disconnect closes with the normal code, clears all handler
// registrations and disables auto-reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	c.st = stateIdle
	c.gen++
	conn := c.conn
	c.conn = nil
	c.handlers = make(map[string][]registration)
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = conn.Close()
	}
	logger.Info("[transport] disconnected")
}

// Connected reports whether the connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st == stateOpen
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.onReadError(conn, gen, err)
			return
		}
		var f frame
		if uerr := json.Unmarshal(raw, &f); uerr != nil {
			sample := raw
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[transport] malformed frame dropped: %v sample=%q", uerr, sample)
			continue
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	c.mu.Lock()
	list := append([]registration(nil), c.handlers[f.Type]...)
	c.mu.Unlock()

	if len(list) == 0 {
		logger.Debugf("[transport] no handler for type=%s", f.Type)
		return
	}
	for _, r := range list {
		fn := r.fn
		safe.Call(func() { fn(f.Data) })
	}
}

func (c *Client) onReadError(conn *websocket.Conn, gen int, err error) {
	c.mu.Lock()
	stale := gen != c.gen
	if !stale {
		c.st = stateIdle
		c.conn = nil
	}
	stopped := c.stopped
	c.mu.Unlock()

	_ = conn.Close()
	if stale || stopped {
		return
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		logger.Info("[transport] closed normally by peer")
		return
	}
	if websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		reason := "session expired"
		if ce, ok := err.(*websocket.CloseError); ok && ce.Text != "" {
			reason = ce.Text
		}
		logger.Warnf("[transport] policy violation close: %s", reason)
		if c.OnAuthExpired != nil {
			cb := c.OnAuthExpired
			safe.Call(func() { cb(reason) })
		}
		return
	}

	logger.Warnf("[transport] abnormal close: %v", err)
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.stopped || c.st != stateIdle {
		c.mu.Unlock()
		return
	}
	c.attempts++
	attempt := c.attempts
	userID, token := c.userID, c.token
	c.mu.Unlock()

	if attempt > c.cfg.MaxAttempts {
		logger.Errorf("[transport] giving up after %d reconnect attempts", c.cfg.MaxAttempts)
		return
	}

	delay := time.Duration(attempt) * c.cfg.BackoffStep
	logger.Infof("[transport] reconnect attempt %d/%d in %s", attempt, c.cfg.MaxAttempts, delay)
	safe.Go(func() {
		time.Sleep(delay)
		c.mu.Lock()
		stopped := c.stopped
		c.mu.Unlock()
		if stopped {
			return
		}
		_ = c.Connect(userID, token)
	})
}

func (c *Client) pingLoop(conn *websocket.Conn, gen int) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		live := gen == c.gen && c.conn == conn
		c.mu.Unlock()
		if !live {
			return
		}
		c.writeMu.Lock()
		err := conn.WriteMessage(websocket.TextMessage, []byte("ping"))
		c.writeMu.Unlock()
		if err != nil {
			logger.Debugf("[transport] keepalive write failed: %v", err)
			return
		}
	}
}
