package market

import "fmt"

// Cache key builders. Every mutation invalidates the keys it can have
// made stale; pollers refetch the same keys as the consistency
// fallback for pushes that never arrived.

const KeyConversations = "conversations"

func KeyMessages(conversationID int64) string {
	return fmt.Sprintf("messages:%d", conversationID)
}

func KeyItem(itemID int64) string {
	return fmt.Sprintf("item:%d", itemID)
}

func KeyTransactionRatings(transactionID int64) string {
	return fmt.Sprintf("ratings:tx:%d", transactionID)
}

func KeyUserRatingSummary(userID int64) string {
	return fmt.Sprintf("ratings:user:%d", userID)
}
