// README: Persistence contract for bookings. The transition write is
// conditional on the expected current status so concurrent writers cannot
// both believe they performed it.
package booking

import (
	"context"
	"time"

	"fleetbook/internal/types"
)

// TransitionSet carries the field changes applied together with a status
// change. Nil pointers leave the stored value untouched.
type TransitionSet struct {
	VehicleID    *types.ID
	DriverID     *types.ID
	OTPCode      *string
	OTPExpiresAt *time.Time
	// ClearOTP nulls the code and expiry; set when leaving `assigned`.
	ClearOTP   bool
	DistanceKm *float64
}

// TransitionRecord is one atomic unit: the conditional status write, the
// audit entry, and (on completion) the ride summary commit together or not
// at all.
type TransitionRecord struct {
	BookingID types.ID
	From      Status
	To        Status
	Set       TransitionSet
	Audit     *AuditEntry
	Summary   *RideSummary
	At        time.Time
}

type Store interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	// ApplyTransition returns false without writing anything when the row's
	// status no longer matches rec.From.
	ApplyTransition(ctx context.Context, rec TransitionRecord) (bool, error)
	// ListUnassigned returns upcoming bookings with no vehicle/driver,
	// earliest pickup first.
	ListUnassigned(ctx context.Context) ([]*Booking, error)
	// ListAssignedInWindow returns assigned bookings with both references set
	// and pickup_at in [from, to).
	ListAssignedInWindow(ctx context.Context, from, to time.Time) ([]*Booking, error)
	// PromoteDue bulk-moves upcoming bookings with pickup_at in [from, to]
	// to `today` and returns how many rows changed.
	PromoteDue(ctx context.Context, from, to, at time.Time) (int64, error)
	// HasConflict reports whether the driver has a booking in status
	// assigned/in_progress with pickup_at in [from, to] (inclusive).
	HasConflict(ctx context.Context, driverID types.ID, from, to time.Time) (bool, error)
}
