// README: Fleet service: asset registration, approval, and capacity-guarded shifts.
package fleet

import (
	"context"
	"errors"
	"time"

	"fleetbook/internal/types"
)

var (
	ErrNotFound        = errors.New("fleet record not found")
	ErrBadRequest      = errors.New("bad request")
	ErrVehicleCapacity = errors.New("vehicle shift capacity reached")
	ErrDriverAssigned  = errors.New("driver already has an active assignment")
	ErrNotServiceable  = errors.New("vehicle or driver not approved")
	ErrShiftClosed     = errors.New("assignment already closed")
	ErrLockBusy        = errors.New("vehicle is being modified, retry")
)

const lockTTL = 5 * time.Second

type Service struct {
	store  Store
	locker Locker
	clock  types.Clock
}

func NewService(store Store, locker Locker, clock types.Clock) *Service {
	return &Service{store: store, locker: locker, clock: clock}
}

type RegisterVehicleCommand struct {
	Model        string
	LicensePlate string
}

type RegisterDriverCommand struct {
	Name  string
	Phone string
}

type OpenShiftCommand struct {
	VehicleID types.ID
	DriverID  types.ID
}

func (s *Service) RegisterVehicle(ctx context.Context, cmd RegisterVehicleCommand) (*Vehicle, error) {
	if cmd.Model == "" || cmd.LicensePlate == "" {
		return nil, ErrBadRequest
	}
	v := &Vehicle{
		ID:           types.NewID(),
		Model:        cmd.Model,
		LicensePlate: cmd.LicensePlate,
		Status:       VehicleStatusPending,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.store.CreateVehicle(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) ApproveVehicle(ctx context.Context, id types.ID) error {
	if _, err := s.store.GetVehicle(ctx, id); err != nil {
		return err
	}
	return s.store.UpdateVehicleStatus(ctx, id, VehicleStatusApproved)
}

func (s *Service) RegisterDriver(ctx context.Context, cmd RegisterDriverCommand) (*Driver, error) {
	if cmd.Name == "" {
		return nil, ErrBadRequest
	}
	d := &Driver{
		ID:        types.NewID(),
		Name:      cmd.Name,
		Phone:     cmd.Phone,
		Status:    DriverStatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateDriver(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ApproveDriver(ctx context.Context, id types.ID) error {
	if _, err := s.store.GetDriver(ctx, id); err != nil {
		return err
	}
	return s.store.UpdateDriverStatus(ctx, id, DriverStatusApproved)
}

// OpenShift pairs a driver with a vehicle. The capacity check and the insert
// run under a per-vehicle advisory lock so two concurrent staff actions cannot
// push a vehicle past its two shift slots.
func (s *Service) OpenShift(ctx context.Context, cmd OpenShiftCommand) (*Assignment, error) {
	v, err := s.store.GetVehicle(ctx, cmd.VehicleID)
	if err != nil {
		return nil, err
	}
	d, err := s.store.GetDriver(ctx, cmd.DriverID)
	if err != nil {
		return nil, err
	}
	if !v.Serviceable() || d.Status != DriverStatusApproved {
		return nil, ErrNotServiceable
	}

	// Both keys are held for the checks below: the vehicle key guards the
	// seat-capacity count, the driver key guards the one-active-shift rule
	// when the same driver races onto two different vehicles.
	vehicleKey := "fleet:vehicle:" + string(cmd.VehicleID)
	ok, err := s.locker.Acquire(ctx, vehicleKey, lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockBusy
	}
	defer func() { _ = s.locker.Release(ctx, vehicleKey) }()

	driverKey := "fleet:driver:" + string(cmd.DriverID)
	ok, err = s.locker.Acquire(ctx, driverKey, lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockBusy
	}
	defer func() { _ = s.locker.Release(ctx, driverKey) }()

	if cur, err := s.store.ActiveAssignmentByDriver(ctx, cmd.DriverID); err != nil {
		return nil, err
	} else if cur != nil {
		return nil, ErrDriverAssigned
	}
	count, err := s.store.CountActiveAssignments(ctx, cmd.VehicleID)
	if err != nil {
		return nil, err
	}
	if count >= MaxActiveAssignments {
		return nil, ErrVehicleCapacity
	}

	a := &Assignment{
		ID:         types.NewID(),
		VehicleID:  cmd.VehicleID,
		DriverID:   cmd.DriverID,
		AssignedAt: s.clock.Now(),
	}
	if err := s.store.CreateAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) CloseShift(ctx context.Context, assignmentID types.ID) error {
	ok, err := s.store.CloseAssignment(ctx, assignmentID, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrShiftClosed
	}
	return nil
}
