// Package repository implements the pass stores.  All backends share the
// sentinel errors below so the issuance service can react to the same
// conditions regardless of where passes live.
package repository

import (
	"errors"
	"strings"
)

// MaxPassIDLen is the longest pass id any backend stores; it matches the
// passes.pass_id column.
const MaxPassIDLen = 128

// ErrInvalidInput is returned when a pass id is blank or longer than
// MaxPassIDLen bytes, or a user/event id is not a positive integer.  No
// store mutation happens in that case.
var ErrInvalidInput = errors.New("invalid input")

// ErrLivePassExists is returned by Insert when the (user, event) pair already
// holds a live pass.  Callers should re-read the live pass instead.
var ErrLivePassExists = errors.New("live pass already exists")

// ErrDuplicatePass is returned by Insert when the pass id has been used
// before, live or not.  Pass ids are never reused.
var ErrDuplicatePass = errors.New("pass id already used")

func checkPassID(passID string) error {
	if strings.TrimSpace(passID) == "" || len(passID) > MaxPassIDLen {
		return ErrInvalidInput
	}
	return nil
}

func checkOwner(userID, eventID int64) error {
	if userID <= 0 || eventID <= 0 {
		return ErrInvalidInput
	}
	return nil
}
