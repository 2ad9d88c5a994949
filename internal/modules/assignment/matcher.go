// README: Ordered two-phase candidate search over fleet shifts. First feasible
// pair wins; enumeration order is vehicle/assignment creation order so the
// tie-break is reproducible.
package assignment

import (
	"context"
	"time"

	"fleetbook/internal/modules/booking"
	"fleetbook/internal/modules/fleet"
	"fleetbook/internal/types"
)

// AvailabilityHalfWindow models pickup + ride + buffer around a booking's
// pickup time. Fixed, not derived from the ride; conservative on purpose.
const AvailabilityHalfWindow = 2 * time.Hour

type Criteria struct {
	// Model is the preferred vehicle model; empty means any.
	Model    string
	PickupAt time.Time
}

type Pair struct {
	VehicleID types.ID
	DriverID  types.ID
}

type Matcher struct {
	fleet    fleet.Store
	bookings booking.Store
}

func NewMatcher(fleetStore fleet.Store, bookingStore booking.Store) *Matcher {
	return &Matcher{fleet: fleetStore, bookings: bookingStore}
}

// DriverAvailable reports whether the driver has no assigned/in-progress
// booking with a pickup inside [at − 2h, at + 2h].
func (m *Matcher) DriverAvailable(ctx context.Context, driverID types.ID, at time.Time) (bool, error) {
	conflict, err := m.bookings.HasConflict(ctx, driverID,
		at.Add(-AvailabilityHalfWindow), at.Add(AvailabilityHalfWindow))
	if err != nil {
		return false, err
	}
	return !conflict, nil
}

// Find returns the first feasible vehicle/driver pair, or nil when none
// exists. No load balancing, no proximity: a linear ordered scan.
func (m *Matcher) Find(ctx context.Context, c Criteria) (*Pair, error) {
	if p, err := m.findVehicleFirst(ctx, c); p != nil || err != nil {
		return p, err
	}
	return m.findDriverFirst(ctx, c)
}

// findVehicleFirst is the preferred path: vehicles with spare shift capacity,
// then their actively assigned drivers.
func (m *Matcher) findVehicleFirst(ctx context.Context, c Criteria) (*Pair, error) {
	vehicles, err := m.fleet.ListServiceableVehicles(ctx, c.Model)
	if err != nil {
		return nil, err
	}
	for _, v := range vehicles {
		assigns, err := m.fleet.ActiveAssignmentsByVehicle(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		if len(assigns) >= fleet.MaxActiveAssignments {
			continue
		}
		for _, a := range assigns {
			d, err := m.fleet.GetDriver(ctx, a.DriverID)
			if err != nil {
				return nil, err
			}
			if d.Status != fleet.DriverStatusApproved {
				continue
			}
			free, err := m.DriverAvailable(ctx, d.ID, c.PickupAt)
			if err != nil {
				return nil, err
			}
			if free {
				return &Pair{VehicleID: v.ID, DriverID: d.ID}, nil
			}
		}
	}
	return nil, nil
}

// findDriverFirst is the fallback: a driver can be reachable even when their
// vehicle was not discovered by the vehicle-first ordering (for instance a
// fully staffed vehicle).
func (m *Matcher) findDriverFirst(ctx context.Context, c Criteria) (*Pair, error) {
	drivers, err := m.fleet.ListApprovedDrivers(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drivers {
		a, err := m.fleet.ActiveAssignmentByDriver(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			continue
		}
		v, err := m.fleet.GetVehicle(ctx, a.VehicleID)
		if err != nil {
			return nil, err
		}
		if !v.Serviceable() {
			continue
		}
		if c.Model != "" && v.Model != c.Model {
			continue
		}
		free, err := m.DriverAvailable(ctx, d.ID, c.PickupAt)
		if err != nil {
			return nil, err
		}
		if free {
			return &Pair{VehicleID: v.ID, DriverID: d.ID}, nil
		}
	}
	return nil, nil
}
