package service

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/eventhub/internal/queue"
	"github.com/iliyamo/eventhub/internal/repository"
)

// maxMintAttempts bounds how often a colliding token is regenerated.
const maxMintAttempts = 3

// issueStripes serialize get-or-create per (user, event) inside one process.
// Across processes the store's insert guard decides the winner.
const issueStripes = 64

// IssueResult is what IssuePass hands back.  Created is false when an
// existing live pass was reused.
type IssueResult struct {
	PassID  string
	Created bool
}

// Issuer is the get-or-create service over a PassStore.
type Issuer struct {
	store   PassStore
	tokens  *TokenGenerator
	events  EventPublisher
	log     *slog.Logger
	timeout time.Duration

	seed    maphash.Seed
	stripes [issueStripes]sync.Mutex
}

// NewIssuer wires an Issuer.  events and log may be nil.
func NewIssuer(store PassStore, tokens *TokenGenerator, events EventPublisher, log *slog.Logger, timeout time.Duration) *Issuer {
	if store == nil || tokens == nil {
		panic("nil dependency passed to NewIssuer")
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Issuer{store: store, tokens: tokens, events: events, log: log, timeout: timeout, seed: maphash.MakeSeed()}
}

func (s *Issuer) stripe(userID, eventID int64) *sync.Mutex {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_, _ = fmt.Fprintf(&h, "%d:%d", userID, eventID)
	return &s.stripes[h.Sum64()%issueStripes]
}

// IssuePass returns the live pass of (userID, eventID), minting one when the
// pair has none.  Repeated calls return the same PassID until it is redeemed.
// The issued event is published after the pair's lock is released.
func (s *Issuer) IssuePass(ctx context.Context, eventID, userID int64) (IssueResult, error) {
	if eventID <= 0 || userID <= 0 {
		return IssueResult{}, fmt.Errorf("issue pass: %w", ErrBadInput)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.getOrCreate(ctx, userID, eventID)
	if err != nil {
		return IssueResult{}, err
	}
	if res.Created {
		s.log.Info("pass issued", "user_id", userID, "event_id", eventID)
		s.publish(ctx, queue.KindIssued, res.PassID, userID, eventID)
	}
	return res, nil
}

// getOrCreate runs under the pair's stripe lock and touches only the store.
func (s *Issuer) getOrCreate(ctx context.Context, userID, eventID int64) (IssueResult, error) {
	mu := s.stripe(userID, eventID)
	mu.Lock()
	defer mu.Unlock()

	live, ok, err := s.store.FindLivePass(ctx, userID, eventID)
	if err != nil {
		return IssueResult{}, storeErr("find live pass", err)
	}
	if ok {
		return IssueResult{PassID: live.PassID}, nil
	}

	reloaded := false
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		token := s.tokens.Next()
		err := s.store.Insert(ctx, token, userID, eventID)
		switch {
		case err == nil:
			return IssueResult{PassID: token, Created: true}, nil
		case errors.Is(err, repository.ErrDuplicatePass):
			continue
		case errors.Is(err, repository.ErrLivePassExists):
			// another instance won the race; hand out its pass
			live, ok, err := s.store.FindLivePass(ctx, userID, eventID)
			if err != nil {
				return IssueResult{}, storeErr("reload live pass", err)
			}
			if ok {
				return IssueResult{PassID: live.PassID}, nil
			}
			// the winner's pass was redeemed in between; mint once more
			if reloaded {
				return IssueResult{}, fmt.Errorf("reload live pass: %w: conflicting pass vanished twice", ErrUpstream)
			}
			reloaded = true
		default:
			return IssueResult{}, storeErr("insert pass", err)
		}
	}
	return IssueResult{}, fmt.Errorf("issue pass: %w: %d token collisions", ErrInternal, maxMintAttempts)
}

func (s *Issuer) publish(ctx context.Context, kind, passID string, userID, eventID int64) {
	ev := queue.PassEvent{
		Kind:       kind,
		PassRef:    queue.PassRef(passID),
		UserID:     userID,
		EventID:    eventID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish pass event failed", "kind", kind, "error", err)
	}
}
