// README: Booking aggregate, status machine, audit entries, and ride summaries.
package booking

import (
	"time"

	"fleetbook/internal/types"
)

type Status string

const (
	StatusUpcoming   Status = "upcoming"
	StatusToday      Status = "today"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

type Booking struct {
	ID            types.ID
	CustomerID    types.ID
	PickupAddress string
	Destination   string
	PickupAt      time.Time
	// VehicleModel is the customer's preferred model; empty means any.
	VehicleModel string
	VehicleID    *types.ID
	DriverID     *types.ID
	Status       Status
	OTPCode      *string
	OTPExpiresAt *time.Time
	DistanceKm   *float64
	FareBase     types.Money
	FareTax      types.Money
	FareTotal    types.Money
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (b *Booking) Terminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCanceled
}

func (b *Booking) HasAssignment() bool {
	return b.VehicleID != nil || b.DriverID != nil
}

// AllowedTransitions is the forward-only booking state flow. `today` is absent
// as a target: only the promotion job's bulk update produces it.
var AllowedTransitions = map[Status][]Status{
	StatusUpcoming:   {StatusAssigned, StatusCanceled},
	StatusToday:      {StatusAssigned, StatusCanceled},
	StatusAssigned:   {StatusInProgress, StatusCanceled},
	StatusInProgress: {StatusCompleted, StatusCanceled},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AuditEntry records one transition with before/after snapshots of the row.
type AuditEntry struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	Before     []byte
	After      []byte
	CreatedAt  time.Time
}

// RideSummary is written exactly once, when a booking completes with a
// vehicle, a driver, and a distance. Never mutated afterward.
type RideSummary struct {
	BookingID   types.ID
	VehicleID   types.ID
	DriverID    types.ID
	DistanceKm  float64
	FareTotal   types.Money
	CompletedAt time.Time
}
