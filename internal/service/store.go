package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/eventhub/internal/model"
	"github.com/iliyamo/eventhub/internal/queue"
	"github.com/iliyamo/eventhub/internal/repository"
)

// PassStore is implemented by every pass backend: the MySQL, Redis and
// in-memory repositories and the remote pass service client.
type PassStore interface {
	Insert(ctx context.Context, passID string, userID, eventID int64) error
	Verify(ctx context.Context, passID string) (model.VerifyResult, error)
	FindLivePass(ctx context.Context, userID, eventID int64) (model.Pass, bool, error)
}

// EventPublisher receives pass lifecycle events.  Failures are logged by the
// caller and never fail the request.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.PassEvent) error
}

// storeErr classifies an error coming out of a PassStore.
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrInvalidInput) {
		return fmt.Errorf("%s: %w", op, ErrBadInput)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUpstream, err)
}
