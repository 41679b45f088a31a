// Package market reconciles three inputs into one consistent
// negotiation view: push events from the realtime transport, values in
// the query cache refreshed by polling, and the user's own mutations.
// Push is the fast path; the poll interval is the consistency fallback
// when a push is lost. All merges are idempotent and id-keyed, so the
// two paths converge regardless of arrival order.
package market

import (
	"context"
	"sync"
	"time"

	"campusmarket/logger"
	"campusmarket/module/market/model"
	"campusmarket/service/api"
	"campusmarket/service/cache"
	"campusmarket/service/transport"
)

// NegotiationState is the offer lifecycle of one conversation.
type NegotiationState int

const (
	StateNoOffer NegotiationState = iota
	StateOfferPending
	StateSold
)

// Negotiation derives the state machine position from conversation
// data. Sold is terminal; Ended is orthogonal and not represented here.
func Negotiation(c *model.Conversation) NegotiationState {
	switch {
	case c.IsSold:
		return StateSold
	case c.HasPendingOffer():
		return StateOfferPending
	default:
		return StateNoOffer
	}
}

// Backend is the slice of the REST client the view model uses.
type Backend interface {
	ListConversations(ctx context.Context, includeArchived bool) ([]model.Conversation, error)
	ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error)
	SendMessage(ctx context.Context, in api.MessageCreate) (*model.Message, error)
	SendOffer(ctx context.Context, conversationID int64, price float64) error
	AcceptOffer(ctx context.Context, conversationID int64) (*model.Transaction, error)
	RejectOffer(ctx context.Context, conversationID int64) error
	CounterOffer(ctx context.Context, conversationID int64, price float64) error
	ContinueConversation(ctx context.Context, conversationID int64) error
}

// Events is the transport surface the view model subscribes through.
type Events interface {
	On(eventType string, h transport.Handler) (off func())
}

type Config struct {
	ConversationsPoll time.Duration
	MessagesPoll      time.Duration
}

type ViewModel struct {
	userID  int64
	backend Backend
	cache   *cache.Cache
	fete    *Celebrations
	cfg     Config

	// OnCelebrate fires the one-time sale feedback. Set before Start.
	OnCelebrate func(sold transport.ItemSold)

	mu       sync.Mutex
	openConv int64
	offs     []func()
	stopConv func()
	stopMsgs func()
}

func NewViewModel(userID int64, backend Backend, qc *cache.Cache, fete *Celebrations, cfg Config) *ViewModel {
	if cfg.ConversationsPoll <= 0 {
		cfg.ConversationsPoll = 30 * time.Second
	}
	if cfg.MessagesPoll <= 0 {
		cfg.MessagesPoll = 5 * time.Second
	}
	return &ViewModel{
		userID:  userID,
		backend: backend,
		cache:   qc,
		fete:    fete,
		cfg:     cfg,
	}
}

// Start binds cache fetchers, begins conversation polling and
// subscribes to push events.
func (vm *ViewModel) Start(events Events) {
	vm.cache.Register(KeyConversations, func(ctx context.Context) (any, error) {
		convs, err := vm.backend.ListConversations(ctx, true)
		if err != nil {
			return nil, err
		}
		return convs, nil
	})

	vm.mu.Lock()
	vm.stopConv = vm.cache.Poll(KeyConversations, vm.cfg.ConversationsPoll)
	vm.offs = append(vm.offs,
		events.On(transport.EventMessage, vm.onMessage),
		events.On(transport.EventItemSold, vm.onItemSold),
		events.On(transport.EventConversationUpdated, vm.onConversationUpdated),
		events.On(transport.EventPurchaseOffer, vm.onPurchaseOffer),
		events.On(transport.EventNotificationsRead, vm.onNotificationsRead),
	)
	vm.mu.Unlock()
}

// Stop unsubscribes from pushes and stops polling.
func (vm *ViewModel) Stop() {
	vm.mu.Lock()
	offs := vm.offs
	vm.offs = nil
	stopConv, stopMsgs := vm.stopConv, vm.stopMsgs
	vm.stopConv, vm.stopMsgs = nil, nil
	vm.openConv = 0
	vm.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if stopConv != nil {
		stopConv()
	}
	if stopMsgs != nil {
		stopMsgs()
	}
}

// OpenConversation focuses a thread: its messages get a fetcher and a
// fast poll. Any previously open thread's poll is stopped.
func (vm *ViewModel) OpenConversation(conversationID int64) {
	key := KeyMessages(conversationID)
	vm.cache.Register(key, func(ctx context.Context) (any, error) {
		msgs, err := vm.backend.ListMessages(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		return msgs, nil
	})

	vm.mu.Lock()
	if vm.stopMsgs != nil {
		vm.stopMsgs()
	}
	vm.openConv = conversationID
	vm.stopMsgs = vm.cache.Poll(key, vm.cfg.MessagesPoll)
	vm.mu.Unlock()

	vm.cache.Invalidate(key)
}

// CloseConversation drops focus and its poll.
func (vm *ViewModel) CloseConversation() {
	vm.mu.Lock()
	if vm.stopMsgs != nil {
		vm.stopMsgs()
		vm.stopMsgs = nil
	}
	vm.openConv = 0
	vm.mu.Unlock()
}

// Conversations returns the cached thread list.
func (vm *ViewModel) Conversations(ctx context.Context) ([]model.Conversation, error) {
	v, err := vm.cache.Get(ctx, KeyConversations)
	if err != nil {
		return nil, err
	}
	return v.([]model.Conversation), nil
}

// Conversation returns one cached thread.
func (vm *ViewModel) Conversation(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	convs, err := vm.Conversations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		if convs[i].ID == conversationID {
			c := convs[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// Messages returns the cached message list of the focused thread.
func (vm *ViewModel) Messages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	v, err := vm.cache.Get(ctx, KeyMessages(conversationID))
	if err != nil {
		return nil, err
	}
	return v.([]model.Message), nil
}

// SendMessage posts a message and refreshes the affected keys.
func (vm *ViewModel) SendMessage(ctx context.Context, conversationID int64, content string) (*model.Message, error) {
	msg, err := vm.backend.SendMessage(ctx, api.MessageCreate{ConversationID: conversationID, Content: content})
	if err != nil {
		return nil, err
	}
	vm.appendMessage(*msg)
	vm.cache.Invalidate(KeyConversations)
	return msg, nil
}

// SendOffer proposes a price. Refused locally once the conversation is
// settled; otherwise the server installs it as the pending offer.
func (vm *ViewModel) SendOffer(ctx context.Context, conversationID int64, price float64) error {
	if conv, err := vm.Conversation(ctx, conversationID); err == nil && conv.IsSold {
		return ErrAlreadySold
	}
	if err := vm.backend.SendOffer(ctx, conversationID, price); err != nil {
		return err
	}
	vm.invalidateNegotiation(conversationID)
	return nil
}

// AcceptOffer settles the pending offer. Only the non-proposing party
// may accept; accepting a settled conversation is a conflict. No
// optimistic write happens: on failure the cached state is untouched.
func (vm *ViewModel) AcceptOffer(ctx context.Context, conversationID int64) (*model.Transaction, error) {
	if err := vm.guardRespond(ctx, conversationID); err != nil {
		return nil, err
	}
	tx, err := vm.backend.AcceptOffer(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	vm.applyTransaction(conversationID, tx)
	vm.invalidateNegotiation(conversationID)
	vm.cache.Invalidate(KeyTransactionRatings(tx.ID))
	return tx, nil
}

// RejectOffer clears the pending offer.
func (vm *ViewModel) RejectOffer(ctx context.Context, conversationID int64) error {
	if err := vm.guardRespond(ctx, conversationID); err != nil {
		return err
	}
	if err := vm.backend.RejectOffer(ctx, conversationID); err != nil {
		return err
	}
	vm.invalidateNegotiation(conversationID)
	return nil
}

// CounterOffer replaces the pending offer with one from the caller,
// flipping the proposer.
func (vm *ViewModel) CounterOffer(ctx context.Context, conversationID int64, price float64) error {
	if err := vm.guardRespond(ctx, conversationID); err != nil {
		return err
	}
	if err := vm.backend.CounterOffer(ctx, conversationID, price); err != nil {
		return err
	}
	vm.invalidateNegotiation(conversationID)
	return nil
}

// ContinueConversation reopens an ended thread without undoing Sold.
func (vm *ViewModel) ContinueConversation(ctx context.Context, conversationID int64) error {
	if err := vm.backend.ContinueConversation(ctx, conversationID); err != nil {
		return err
	}
	vm.cache.SetData(KeyConversations, func(old any) any {
		convs, _ := old.([]model.Conversation)
		out := append([]model.Conversation(nil), convs...)
		for i := range out {
			if out[i].ID == conversationID {
				out[i].IsEnded = false
			}
		}
		return out
	})
	vm.cache.Invalidate(KeyConversations)
	return nil
}

// guardRespond enforces the local transition rules before an
// accept/reject/counter round trip.
func (vm *ViewModel) guardRespond(ctx context.Context, conversationID int64) error {
	conv, err := vm.Conversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.IsSold {
		return ErrAlreadySold
	}
	if !conv.HasPendingOffer() {
		return ErrNoPendingOffer
	}
	if conv.PendingOfferFromUserID == vm.userID {
		return ErrOwnOffer
	}
	return nil
}

// invalidateNegotiation refetches everything an offer action can have
// changed.
func (vm *ViewModel) invalidateNegotiation(conversationID int64) {
	vm.cache.Invalidate(KeyConversations)
	vm.cache.Invalidate(KeyMessages(conversationID))
}

// applyTransaction writes the settled sale into the cached
// conversation list. Idempotent keyed by transaction id: replaying the
// same sale rewrites identical data, so pushes and poll results can
// land in any order.
func (vm *ViewModel) applyTransaction(conversationID int64, tx *model.Transaction) {
	vm.cache.SetData(KeyConversations, func(old any) any {
		convs, _ := old.([]model.Conversation)
		out := append([]model.Conversation(nil), convs...)
		for i := range out {
			if out[i].ID != conversationID {
				continue
			}
			out[i].IsSold = true
			out[i].IsEnded = true
			out[i].TransactionID = tx.ID
			out[i].Transaction = tx
			out[i].PendingOfferPrice = nil
			out[i].PendingOfferFromUserID = 0
			out[i].PendingOfferAt = nil
		}
		return out
	})
}

// appendMessage adds a message to its cached list, skipping ids that
// already landed via the other path (push vs poll).
func (vm *ViewModel) appendMessage(msg model.Message) {
	key := KeyMessages(msg.ConversationID)
	if _, ok := vm.cache.Data(key); !ok {
		// Nothing cached for this thread; the next fetch includes it.
		return
	}
	vm.cache.SetData(key, func(old any) any {
		msgs, _ := old.([]model.Message)
		for _, m := range msgs {
			if m.ID == msg.ID {
				return msgs
			}
		}
		out := append(append([]model.Message(nil), msgs...), msg)
		return out
	})
}

// --- push event handlers ---

func (vm *ViewModel) onMessage(data map[string]any) {
	msg, err := transport.DecodeMessage(data)
	if err != nil {
		logger.Warnf("[market] bad message payload dropped: %v", err)
		return
	}
	vm.mu.Lock()
	open := vm.openConv
	vm.mu.Unlock()
	if msg.ConversationID == open {
		vm.appendMessage(*msg)
	}
	vm.cache.Invalidate(KeyConversations)
}

func (vm *ViewModel) onItemSold(data map[string]any) {
	sold, err := transport.DecodeItemSold(data)
	if err != nil {
		logger.Warnf("[market] bad item_sold payload dropped: %v", err)
		return
	}
	tx := sold.Transaction
	if tx == nil {
		tx = &model.Transaction{
			ID:             sold.TransactionID,
			ItemID:         sold.ItemID,
			ConversationID: sold.ConversationID,
			SalePrice:      sold.SalePrice,
			OriginalPrice:  sold.OriginalPrice,
			IsCompleted:    true,
		}
	}
	vm.applyTransaction(sold.ConversationID, tx)

	if vm.fete.FireOnce(sold.ConversationID, tx.ID, vm.userID) && vm.OnCelebrate != nil {
		vm.OnCelebrate(*sold)
	}
}

func (vm *ViewModel) onConversationUpdated(data map[string]any) {
	upd, err := transport.DecodeConversationUpdate(data)
	if err != nil {
		logger.Warnf("[market] bad conversation_updated payload dropped: %v", err)
		return
	}
	vm.cache.SetData(KeyConversations, func(old any) any {
		convs, _ := old.([]model.Conversation)
		out := append([]model.Conversation(nil), convs...)
		for i := range out {
			if out[i].ID != upd.ConversationID {
				continue
			}
			// Sold is terminal: a stale update delivered after
			// item_sold must not resurrect the listing.
			out[i].IsSold = out[i].IsSold || upd.IsSold
			out[i].IsEnded = upd.IsEnded
			if upd.TransactionID != 0 {
				out[i].TransactionID = upd.TransactionID
			}
			if upd.Transaction != nil {
				out[i].Transaction = upd.Transaction
			}
			if upd.IsSold {
				out[i].PendingOfferPrice = nil
				out[i].PendingOfferFromUserID = 0
				out[i].PendingOfferAt = nil
			}
		}
		return out
	})
}

func (vm *ViewModel) onPurchaseOffer(data map[string]any) {
	offer, err := transport.DecodePurchaseOffer(data)
	if err != nil {
		logger.Warnf("[market] bad purchase_offer payload dropped: %v", err)
		return
	}
	// The authoritative pending-offer fields arrive with the refetch.
	vm.cache.Invalidate(KeyConversations)
	vm.cache.Invalidate(KeyMessages(offer.ConversationID))
}

func (vm *ViewModel) onNotificationsRead(data map[string]any) {
	nr, err := transport.DecodeNotificationsRead(data)
	if err != nil {
		logger.Warnf("[market] bad notifications_read payload dropped: %v", err)
		return
	}
	vm.cache.SetData(KeyConversations, func(old any) any {
		convs, _ := old.([]model.Conversation)
		out := append([]model.Conversation(nil), convs...)
		for i := range out {
			if out[i].ID == nr.ConversationID {
				out[i].UnreadCount = 0
			}
		}
		return out
	})
}
