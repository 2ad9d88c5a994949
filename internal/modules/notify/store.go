// README: Persistence contract for the notification outbox.
package notify

import (
	"context"

	"fleetbook/internal/types"
)

type Store interface {
	Insert(ctx context.Context, n *Notification) error
	// ExistsForBooking reports whether a notification of the given type was
	// already enqueued for the booking. Dedup guard for the pre-ride sweep.
	ExistsForBooking(ctx context.Context, bookingID types.ID, ntype string) (bool, error)
}
