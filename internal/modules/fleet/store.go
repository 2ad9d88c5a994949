// README: Persistence contract for fleet assets. List methods return rows in
// creation order; the matcher depends on that ordering for its tie-break.
package fleet

import (
	"context"
	"time"

	"fleetbook/internal/types"
)

type Store interface {
	CreateVehicle(ctx context.Context, v *Vehicle) error
	GetVehicle(ctx context.Context, id types.ID) (*Vehicle, error)
	UpdateVehicleStatus(ctx context.Context, id types.ID, status VehicleStatus) error
	// ListServiceableVehicles returns vehicles with status approved or active,
	// optionally filtered by model (empty model matches any), in creation order.
	ListServiceableVehicles(ctx context.Context, model string) ([]*Vehicle, error)

	CreateDriver(ctx context.Context, d *Driver) error
	GetDriver(ctx context.Context, id types.ID) (*Driver, error)
	UpdateDriverStatus(ctx context.Context, id types.ID, status DriverStatus) error
	// ListApprovedDrivers returns approved drivers in creation order.
	ListApprovedDrivers(ctx context.Context) ([]*Driver, error)

	CreateAssignment(ctx context.Context, a *Assignment) error
	// CloseAssignment sets unassigned_at iff the row is still active.
	CloseAssignment(ctx context.Context, id types.ID, at time.Time) (bool, error)
	// ActiveAssignmentsByVehicle returns active rows ordered by assigned_at.
	ActiveAssignmentsByVehicle(ctx context.Context, vehicleID types.ID) ([]*Assignment, error)
	// ActiveAssignmentByDriver returns the driver's current pairing, or nil.
	ActiveAssignmentByDriver(ctx context.Context, driverID types.ID) (*Assignment, error)
	CountActiveAssignments(ctx context.Context, vehicleID types.ID) (int, error)
}

// Locker guards the vehicle-capacity check-then-act. Implementations: redis
// SETNX in production, an in-process mutex table in tests.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
