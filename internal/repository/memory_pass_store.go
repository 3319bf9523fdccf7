package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/eventhub/internal/model"
)

type ownerKey struct{ userID, eventID int64 }

// MemoryPassStore keeps passes in process memory.  It is meant for tests and
// single-instance development; all data is lost on restart.
type MemoryPassStore struct {
	mu     sync.Mutex
	passes map[string]*model.Pass
	live   map[ownerKey]string // owner -> pass id of the live pass
	now    func() time.Time
}

func NewMemoryPassStore() *MemoryPassStore {
	return &MemoryPassStore{
		passes: make(map[string]*model.Pass),
		live:   make(map[ownerKey]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryPassStore) Insert(_ context.Context, passID string, userID, eventID int64) error {
	if err := checkPassID(passID); err != nil {
		return err
	}
	if err := checkOwner(userID, eventID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.passes[passID]; ok {
		return ErrDuplicatePass
	}
	k := ownerKey{userID, eventID}
	if _, ok := s.live[k]; ok {
		return ErrLivePassExists
	}
	s.passes[passID] = &model.Pass{
		PassID:   passID,
		UserID:   userID,
		EventID:  eventID,
		Valid:    true,
		IssuedAt: s.now(),
	}
	s.live[k] = passID
	return nil
}

func (s *MemoryPassStore) Verify(_ context.Context, passID string) (model.VerifyResult, error) {
	if strings.TrimSpace(passID) == "" {
		return model.VerifyResult{}, ErrInvalidInput
	}
	if len(passID) > MaxPassIDLen {
		return model.VerifyResult{Valid: false}, nil // never stored
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.passes[passID]
	if !ok || !p.Valid {
		return model.VerifyResult{Valid: false}, nil
	}
	used := s.now()
	p.Valid = false
	p.UsedAt = &used
	delete(s.live, ownerKey{p.UserID, p.EventID})
	return model.VerifyResult{Valid: true, UserID: p.UserID, EventID: p.EventID}, nil
}

func (s *MemoryPassStore) FindLivePass(_ context.Context, userID, eventID int64) (model.Pass, bool, error) {
	if err := checkOwner(userID, eventID); err != nil {
		return model.Pass{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.live[ownerKey{userID, eventID}]
	if !ok {
		return model.Pass{}, false, nil
	}
	return *s.passes[id], true, nil
}

// Len returns the number of stored passes, live or used.  It is a test and
// diagnostics helper; other packages' tests use it to assert that rejected
// requests stored nothing.
func (s *MemoryPassStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.passes)
}

// Ping always succeeds; it lets the memory store back the readiness probe.
func (s *MemoryPassStore) Ping(context.Context) error { return nil }
