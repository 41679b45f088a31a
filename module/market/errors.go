package market

import "github.com/pkg/errors"

// Local guard failures. These mirror the collaborator's conflict
// responses so obviously-invalid actions fail before a round trip;
// the server remains the authority when the guards race a push.
var (
	ErrAlreadySold    = errors.New("market: item already sold in this conversation")
	ErrOwnOffer       = errors.New("market: cannot respond to your own pending offer")
	ErrNoPendingOffer = errors.New("market: no pending offer to respond to")
	ErrNotFound       = errors.New("market: conversation not known")
)
