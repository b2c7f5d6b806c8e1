// Package idgen derives the deterministic ids used across the order_created
// / payment.results exchange, so a redelivered broker message can always be
// recognized for what it is instead of minted a fresh identity.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

var namespaceOID = uuid.NameSpaceOID

// MessageID derives the id stamped on an order_created event:
// uuid5(NAMESPACE_OID, "{order_id}_{unix_nanos}").
func MessageID(orderID int64, timestampUnixNano int64) string {
	name := fmt.Sprintf("%d_%d", orderID, timestampUnixNano)
	return uuid.NewSHA1(namespaceOID, []byte(name)).String()
}

// TransactionID derives the id used to dedupe a payment attempt, independent
// of inbox dedup: uuid5(NAMESPACE_OID, "{order_id}_{message_id}_tx").
func TransactionID(orderID int64, messageID string) string {
	name := fmt.Sprintf("%d_%s_tx", orderID, messageID)
	return uuid.NewSHA1(namespaceOID, []byte(name)).String()
}
