// README: Notification service; append-only enqueue into the outbox.
package notify

import (
	"context"
	"errors"

	"fleetbook/internal/types"
)

var ErrBadRequest = errors.New("bad notification")

type Service struct {
	store Store
	clock types.Clock
}

func NewService(store Store, clock types.Clock) *Service {
	return &Service{store: store, clock: clock}
}

// Enqueue writes one outbox row. Fire-and-forget from the engine's point of
// view: the queue consumer owns delivery and its failure handling.
func (s *Service) Enqueue(ctx context.Context, n Notification) error {
	if n.Type == "" {
		return ErrBadRequest
	}
	n.ID = types.NewID()
	n.Status = StatusQueued
	n.CreatedAt = s.clock.Now()
	return s.store.Insert(ctx, &n)
}

func (s *Service) ExistsForBooking(ctx context.Context, bookingID types.ID, ntype string) (bool, error) {
	return s.store.ExistsForBooking(ctx, bookingID, ntype)
}
