// Package service holds the pass issuance and verification logic.  It talks
// to a PassStore capability and never knows where passes are kept.
package service

import "errors"

// Error taxonomy surfaced to the HTTP layer.
var (
	// ErrBadInput: malformed or missing identifiers.  Never retried; 400.
	ErrBadInput = errors.New("bad input")
	// ErrUpstream: the pass store failed or answered unexpectedly; 502.
	ErrUpstream = errors.New("pass store failure")
	// ErrInternal: a local fault such as token generation failing; 500.
	ErrInternal = errors.New("internal fault")
)
