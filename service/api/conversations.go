package api

import (
	"context"
	"fmt"
	"net/http"

	"campusmarket/module/market/model"
)

type ConversationCreate struct {
	User2ID int64 `json:"user2_id"`
	ItemID  int64 `json:"item_id,omitempty"`
}

// CreateConversation creates a thread with another user (or returns
// the existing one, possibly re-pointed at a new item).
func (c *Client) CreateConversation(ctx context.Context, in ConversationCreate) (*model.Conversation, error) {
	var out model.Conversation
	if _, err := c.do(ctx, http.MethodPost, "/chat/conversations", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListConversations returns the caller's threads, most recent first.
// Archived threads are included when includeArchived is set; deleted
// ones never come back.
func (c *Client) ListConversations(ctx context.Context, includeArchived bool) ([]model.Conversation, error) {
	var out []model.Conversation
	path := fmt.Sprintf("/chat/conversations?include_archived=%t", includeArchived)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMessages returns a conversation's messages oldest first. The
// collaborator marks the caller's unread messages read as a side
// effect and may push a notifications_read event.
func (c *Client) ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	var out []model.Message
	path := fmt.Sprintf("/chat/conversations/%d/messages", conversationID)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type MessageCreate struct {
	ConversationID int64  `json:"conversation_id"`
	Content        string `json:"content"`
}

func (c *Client) SendMessage(ctx context.Context, in MessageCreate) (*model.Message, error) {
	var out model.Message
	if _, err := c.do(ctx, http.MethodPost, "/chat/messages", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ArchiveConversation(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/chat/conversations/%d/archive", conversationID)
	_, err := c.do(ctx, http.MethodPut, path, nil, nil)
	return err
}

func (c *Client) UnarchiveConversation(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/chat/conversations/%d/unarchive", conversationID)
	_, err := c.do(ctx, http.MethodPut, path, nil, nil)
	return err
}

func (c *Client) DeleteConversation(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/chat/conversations/%d", conversationID)
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

func (c *Client) ReportConversation(ctx context.Context, conversationID int64, reason string) error {
	path := fmt.Sprintf("/chat/conversations/%d/report", conversationID)
	_, err := c.do(ctx, http.MethodPost, path, map[string]string{"reason": reason}, nil)
	return err
}

// ContinueConversation reopens an ended thread for further chatting.
// The sold state is untouched.
func (c *Client) ContinueConversation(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/chat/conversations/%d/continue", conversationID)
	_, err := c.do(ctx, http.MethodPut, path, nil, nil)
	return err
}
