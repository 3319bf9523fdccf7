package model

import "time"

// Pass is a single-use credential binding a user to an event.  It is
// live while Valid is true and becomes used, permanently, at the first
// successful verification.
//
// Fields:
//
//	PassID   – opaque token, also the QR payload.
//	UserID   – owning session principal.
//	EventID  – event the pass admits to.
//	Valid    – true until redeemed.
//	IssuedAt – when the pass was created.
//	UsedAt   – when it was redeemed; nil while live.
type Pass struct {
	PassID   string     `json:"pass_key"`
	UserID   int64      `json:"user_id"`
	EventID  int64      `json:"event_id"`
	Valid    bool       `json:"valid"`
	IssuedAt time.Time  `json:"issued_at"`
	UsedAt   *time.Time `json:"used_at,omitempty"`
}

// VerifyResult is the outcome of redeeming a token.  UserID and EventID are
// only set when Valid is true.
type VerifyResult struct {
	Valid   bool  `json:"valid"`
	UserID  int64 `json:"user_id,omitempty"`
	EventID int64 `json:"event_id,omitempty"`
}
