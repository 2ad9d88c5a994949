// README: Fleet assets: vehicles, drivers, and shift assignments linking them.
package fleet

import (
	"time"

	"fleetbook/internal/types"
)

type VehicleStatus string

const (
	VehicleStatusPending   VehicleStatus = "pending"
	VehicleStatusApproved  VehicleStatus = "approved"
	VehicleStatusActive    VehicleStatus = "active"
	VehicleStatusSuspended VehicleStatus = "suspended"
)

type DriverStatus string

const (
	DriverStatusPending   DriverStatus = "pending"
	DriverStatusApproved  DriverStatus = "approved"
	DriverStatusSuspended DriverStatus = "suspended"
)

// MaxActiveAssignments is the shift capacity of one vehicle: two concurrently
// active driver assignments (two shift slots).
const MaxActiveAssignments = 2

type Vehicle struct {
	ID           types.ID
	Model        string
	LicensePlate string
	Status       VehicleStatus
	CreatedAt    time.Time
}

func (v *Vehicle) Serviceable() bool {
	return v.Status == VehicleStatusApproved || v.Status == VehicleStatusActive
}

type Driver struct {
	ID        types.ID
	Name      string
	Phone     string
	Status    DriverStatus
	CreatedAt time.Time
}

// Assignment is a driver↔vehicle pairing for an open-ended interval. A row
// with no UnassignedAt is active.
type Assignment struct {
	ID           types.ID
	VehicleID    types.ID
	DriverID     types.ID
	AssignedAt   time.Time
	UnassignedAt *time.Time
}

func (a *Assignment) Active() bool { return a.UnassignedAt == nil }
