package market

import (
	"fmt"

	"campusmarket/logger"
	"campusmarket/storage"
)

// Celebrations tracks the one-time sale feedback. The marker lives in
// session-scoped storage, separate from the durable conversation
// state, keyed by (conversation, transaction, viewing user) so the
// feedback fires exactly once per sale per viewer even across
// reconnects and repeated visits within the session.
type Celebrations struct {
	session storage.Store
}

func NewCelebrations(session storage.Store) *Celebrations {
	return &Celebrations{session: session}
}

func key(conversationID, transactionID, userID int64) string {
	return fmt.Sprintf("confetti_shown:%d:%d:%d", conversationID, transactionID, userID)
}

// FireOnce returns true the first time this triple is seen and false
// ever after. Marker write failures err toward celebrating once more
// rather than never.
func (c *Celebrations) FireOnce(conversationID, transactionID, userID int64) bool {
	k := key(conversationID, transactionID, userID)
	if _, seen, err := c.session.Get(k); err != nil {
		logger.Warnf("[celebrate] read marker: %v", err)
	} else if seen {
		return false
	}
	if err := c.session.Set(k, "1"); err != nil {
		logger.Warnf("[celebrate] write marker: %v", err)
	}
	return true
}
