// Package queue carries pass lifecycle events over RabbitMQ: a publisher used
// by the pass service and a consumer that appends them to an audit log.
package queue

import (
	"crypto/sha256"
	"encoding/hex"
)

// QueueName is the durable queue pass events are routed to.
const QueueName = "pass.events"

// Event kinds.
const (
	KindIssued   = "issued"
	KindRedeemed = "redeemed"
)

// PassEvent is published when a pass is minted or redeemed.  It carries
// enough for downstream consumers to log or notify without reading the
// pass store.  The token itself is never included since it is
// bearer-equivalent; PassRef identifies it instead.
type PassEvent struct {
	Kind       string `json:"kind"`
	PassRef    string `json:"pass_ref"`
	UserID     int64  `json:"user_id"`
	EventID    int64  `json:"event_id"`
	OccurredAt string `json:"occurred_at"`
}

// passRefLen is the number of hex characters kept from the digest.
const passRefLen = 12

// PassRef returns a short SHA-256 fingerprint of a pass token.  Operators
// can match it against a token they hold; it cannot be redeemed.
func PassRef(passID string) string {
	sum := sha256.Sum256([]byte(passID))
	return hex.EncodeToString(sum[:])[:passRefLen]
}
