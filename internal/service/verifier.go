package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/eventhub/internal/model"
	"github.com/iliyamo/eventhub/internal/queue"
)

// Verifier redeems pass tokens.  The store's atomic check-and-flip is the
// only guard against double redemption; Verifier adds validation, logging
// and the redeemed event.
type Verifier struct {
	store   PassStore
	events  EventPublisher
	log     *slog.Logger
	timeout time.Duration
}

func NewVerifier(store PassStore, events EventPublisher, log *slog.Logger, timeout time.Duration) *Verifier {
	if store == nil {
		panic("nil store passed to NewVerifier")
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Verifier{store: store, events: events, log: log, timeout: timeout}
}

// Verify consumes token.  Unknown and already-used tokens are reported as
// {Valid: false}, not as errors.
func (v *Verifier) Verify(ctx context.Context, token string) (model.VerifyResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.VerifyResult{}, fmt.Errorf("verify pass: %w", ErrBadInput)
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	res, err := v.store.Verify(ctx, token)
	if err != nil {
		return model.VerifyResult{}, storeErr("verify pass", err)
	}
	if !res.Valid {
		v.log.Info("pass rejected")
		return model.VerifyResult{Valid: false}, nil
	}
	v.log.Info("pass redeemed", "user_id", res.UserID, "event_id", res.EventID)
	ev := queue.PassEvent{
		Kind:       queue.KindRedeemed,
		PassRef:    queue.PassRef(token),
		UserID:     res.UserID,
		EventID:    res.EventID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := v.events.Publish(ctx, ev); err != nil {
		v.log.Warn("publish pass event failed", "kind", ev.Kind, "error", err)
	}
	return res, nil
}
