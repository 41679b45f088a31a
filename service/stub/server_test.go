package stub_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/service/api"
	"campusmarket/service/stub"
)

type wsFrame struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func dialWS(t *testing.T, base string, userID int64, token string) *websocket.Conn {
	t.Helper()
	u := fmt.Sprintf("%s/api/chat/ws/%d?token=%s",
		"ws"+strings.TrimPrefix(base, "http"), userID, url.QueryEscape(token))
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f wsFrame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func TestWSRejectsBadToken(t *testing.T) {
	srv := stub.NewServer("s3cret")
	alice := srv.AddUser("alice", "Alice Chen", "student")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	t.Run("garbage token", func(t *testing.T) {
		conn := dialWS(t, ts.URL, alice.ID, "garbage")
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := conn.ReadMessage()
		require.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	})

	t.Run("token for another user", func(t *testing.T) {
		bob := srv.AddUser("bob", "Bob Park", "student")
		conn := dialWS(t, ts.URL, alice.ID, srv.Token(bob.ID))
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := conn.ReadMessage()
		require.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	})
}

func TestWSPingPong(t *testing.T) {
	srv := stub.NewServer("s3cret")
	alice := srv.AddUser("alice", "Alice Chen", "student")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	conn := dialWS(t, ts.URL, alice.ID, srv.Token(alice.ID))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	f := readFrame(t, conn)
	assert.Equal(t, "pong", f.Type)
}

func TestNegotiationPushes(t *testing.T) {
	srv := stub.NewServer("s3cret")
	alice := srv.AddUser("alice", "Alice Chen", "student")
	bob := srv.AddUser("bob", "Bob Park", "student")
	item := srv.AddItem(bob.ID, "Desk Lamp", "LED", "furniture", "new", 25)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	aliceTok, bobTok := srv.Token(alice.ID), srv.Token(bob.ID)
	aliceAPI := api.NewClient(ts.URL+"/api", func() string { return aliceTok })
	bobAPI := api.NewClient(ts.URL+"/api", func() string { return bobTok })

	bobWS := dialWS(t, ts.URL, bob.ID, bobTok)
	aliceWS := dialWS(t, ts.URL, alice.ID, aliceTok)

	ctx := context.Background()
	conv, err := aliceAPI.CreateConversation(ctx, api.ConversationCreate{User2ID: bob.ID, ItemID: item.ID})
	require.NoError(t, err)

	// Collect frames by type; delivery order between types is not fixed.
	collect := func(conn *websocket.Conn, want string) wsFrame {
		for i := 0; i < 8; i++ {
			f := readFrame(t, conn)
			if f.Type == want {
				return f
			}
		}
		t.Fatalf("never received %s frame", want)
		return wsFrame{}
	}

	t.Run("message pushes to the recipient", func(t *testing.T) {
		_, err := aliceAPI.SendMessage(ctx, api.MessageCreate{ConversationID: conv.ID, Content: "hi"})
		require.NoError(t, err)

		// notification, message and conversation_updated all land.
		seen := map[string]wsFrame{}
		for i := 0; i < 3; i++ {
			f := readFrame(t, bobWS)
			seen[f.Type] = f
		}
		require.Contains(t, seen, "message")
		require.Contains(t, seen, "notification")
		assert.Equal(t, "hi", seen["message"].Data["content"])
		assert.Equal(t, "Alice Chen sent you a message", seen["notification"].Data["message"])
	})

	t.Run("offer pushes purchase_offer to the counterparty", func(t *testing.T) {
		require.NoError(t, aliceAPI.SendOffer(ctx, conv.ID, 20))

		f := collect(bobWS, "purchase_offer")
		assert.Equal(t, 20.0, f.Data["offer_price"])
		assert.Equal(t, "Alice Chen", f.Data["offerer_name"])
		assert.Equal(t, false, f.Data["is_from_seller"])
	})

	t.Run("accept pushes item_sold to both parties", func(t *testing.T) {
		tx, err := bobAPI.AcceptOffer(ctx, conv.ID)
		require.NoError(t, err)

		forBob := collect(bobWS, "item_sold")
		forAlice := collect(aliceWS, "item_sold")
		assert.Equal(t, float64(tx.ID), forBob.Data["transaction_id"])
		assert.Equal(t, forBob.Data["transaction_id"], forAlice.Data["transaction_id"])
		assert.Equal(t, 20.0, forAlice.Data["sale_price"])

		upd := collect(aliceWS, "conversation_updated")
		assert.Equal(t, true, upd.Data["is_sold"])
	})

	t.Run("negotiation leaves a system message trail", func(t *testing.T) {
		msgs, err := aliceAPI.ListMessages(ctx, conv.ID)
		require.NoError(t, err)
		var contents []string
		for _, m := range msgs {
			contents = append(contents, m.Content)
		}
		assert.Contains(t, contents, "💰 Purchase offer: $20.00")
		assert.Contains(t, contents, "✅ Accepted offer")
	})

	t.Run("reading messages pushes notifications_read", func(t *testing.T) {
		_, err := bobAPI.SendMessage(ctx, api.MessageCreate{ConversationID: conv.ID, Content: "congrats"})
		require.NoError(t, err)
		collect(aliceWS, "message")

		_, err = aliceAPI.ListMessages(ctx, conv.ID)
		require.NoError(t, err)
		f := collect(aliceWS, "notifications_read")
		assert.Equal(t, float64(conv.ID), f.Data["conversation_id"])
	})
}
