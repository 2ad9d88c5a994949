// README: Notification outbox rows; delivery is a downstream consumer's job.
package notify

import (
	"time"

	"fleetbook/internal/types"
)

const (
	// TypeStatusChange goes to the customer on every booking transition.
	TypeStatusChange = "booking.status_change"
	// TypeDriverAssignment goes to the driver when a booking is assigned; carries the OTP.
	TypeDriverAssignment = "booking.driver_assignment"
	// TypePreRideDetails goes to the customer shortly before pickup; enqueued at most once per booking.
	TypePreRideDetails = "booking.pre_ride_details"
)

const StatusQueued = "queued"

type Notification struct {
	ID        types.ID
	Type      string
	TargetID  *types.ID
	ActorID   *types.ID
	BookingID *types.ID
	Payload   map[string]any
	Status    string
	CreatedAt time.Time
}
