// README: Shift lifecycle tests over the in-memory store: vehicle seat
// capacity, single active shift per driver, lock serialization.
package fleet_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fleetbook/internal/modules/fleet"
	"fleetbook/internal/storage/memory"
	"fleetbook/internal/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func newService() (*fleet.Service, *memory.FleetStore) {
	store := memory.NewFleetStore()
	clock := &fakeClock{now: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}
	return fleet.NewService(store, memory.NewLocker(), clock), store
}

func seedVehicle(t *testing.T, ctx context.Context, svc *fleet.Service) *fleet.Vehicle {
	t.Helper()
	v, err := svc.RegisterVehicle(ctx, fleet.RegisterVehicleCommand{Model: "Windsor", LicensePlate: "KA-01-1234"})
	if err != nil {
		t.Fatalf("register vehicle: %v", err)
	}
	if err := svc.ApproveVehicle(ctx, v.ID); err != nil {
		t.Fatalf("approve vehicle: %v", err)
	}
	return v
}

func seedDriver(t *testing.T, ctx context.Context, svc *fleet.Service, name string) *fleet.Driver {
	t.Helper()
	d, err := svc.RegisterDriver(ctx, fleet.RegisterDriverCommand{Name: name, Phone: "555-0100"})
	if err != nil {
		t.Fatalf("register driver: %v", err)
	}
	if err := svc.ApproveDriver(ctx, d.ID); err != nil {
		t.Fatalf("approve driver: %v", err)
	}
	return d
}

func TestOpenShiftCapacity(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()
	v := seedVehicle(t, ctx, svc)
	d1 := seedDriver(t, ctx, svc, "Asha")
	d2 := seedDriver(t, ctx, svc, "Bram")
	d3 := seedDriver(t, ctx, svc, "Cal")

	a1, err := svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: v.ID, DriverID: d1.ID})
	if err != nil {
		t.Fatalf("first shift: %v", err)
	}
	if _, err := svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: v.ID, DriverID: d2.ID}); err != nil {
		t.Fatalf("second shift: %v", err)
	}
	_, err = svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: v.ID, DriverID: d3.ID})
	if !errors.Is(err, fleet.ErrVehicleCapacity) {
		t.Fatalf("third shift: expected ErrVehicleCapacity, got %v", err)
	}

	if err := svc.CloseShift(ctx, a1.ID); err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if _, err := svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: v.ID, DriverID: d3.ID}); err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	n, err := store.CountActiveAssignments(ctx, v.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != fleet.MaxActiveAssignments {
		t.Fatalf("expected %d active assignments, got %d", fleet.MaxActiveAssignments, n)
	}
}

func TestOpenShiftDriverAlreadyOnShift(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	v1 := seedVehicle(t, ctx, svc)
	v2 := seedVehicle(t, ctx, svc)
	d := seedDriver(t, ctx, svc, "Asha")

	if _, err := svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: v1.ID, DriverID: d.ID}); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: v2.ID, DriverID: d.ID})
	if !errors.Is(err, fleet.ErrDriverAssigned) {
		t.Fatalf("expected ErrDriverAssigned, got %v", err)
	}
}

func TestOpenShiftRequiresServiceableVehicle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	v, err := svc.RegisterVehicle(ctx, fleet.RegisterVehicleCommand{Model: "Windsor", LicensePlate: "KA-01-9999"})
	if err != nil {
		t.Fatalf("register vehicle: %v", err)
	}
	d := seedDriver(t, ctx, svc, "Asha")
	_, err = svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: v.ID, DriverID: d.ID})
	if !errors.Is(err, fleet.ErrNotServiceable) {
		t.Fatalf("expected ErrNotServiceable, got %v", err)
	}
}

func TestCloseShiftTwice(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	v := seedVehicle(t, ctx, svc)
	d := seedDriver(t, ctx, svc, "Asha")
	a, err := svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: v.ID, DriverID: d.ID})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := svc.CloseShift(ctx, a.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := svc.CloseShift(ctx, a.ID); !errors.Is(err, fleet.ErrShiftClosed) {
		t.Fatalf("expected ErrShiftClosed, got %v", err)
	}
}

func TestCloseShiftUnknown(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	if err := svc.CloseShift(ctx, types.NewID()); !errors.Is(err, fleet.ErrShiftClosed) {
		t.Fatalf("expected ErrShiftClosed, got %v", err)
	}
}

func TestConcurrentOpenShiftOneShiftPerDriver(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()
	v1 := seedVehicle(t, ctx, svc)
	v2 := seedVehicle(t, ctx, svc)
	d := seedDriver(t, ctx, svc, "Asha")

	// The same driver races onto two different vehicles. The driver lock
	// serializes the pair, so exactly one shift opens.
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, vID := range []types.ID{v1.ID, v2.ID} {
		wg.Add(1)
		go func(vID types.ID) {
			defer wg.Done()
			for {
				_, err := svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: vID, DriverID: d.ID})
				if errors.Is(err, fleet.ErrLockBusy) {
					time.Sleep(time.Millisecond)
					continue
				}
				errs <- err
				return
			}
		}(vID)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
		} else if !errors.Is(err, fleet.ErrDriverAssigned) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 open shift for the driver, got %d", success)
	}
	a, err := store.ActiveAssignmentByDriver(ctx, d.ID)
	if err != nil {
		t.Fatalf("active assignment: %v", err)
	}
	if a == nil {
		t.Fatal("expected one active assignment for the driver")
	}
}

func TestConcurrentOpenShiftNeverExceedsCapacity(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()
	v := seedVehicle(t, ctx, svc)

	const attempts = 8
	drivers := make([]*fleet.Driver, attempts)
	for i := range drivers {
		drivers[i] = seedDriver(t, ctx, svc, fmt.Sprintf("driver-%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for _, d := range drivers {
		wg.Add(1)
		go func(d *fleet.Driver) {
			defer wg.Done()
			// Contenders retry on lock contention so every goroutine reaches
			// the capacity check.
			for {
				_, err := svc.OpenShift(ctx, fleet.OpenShiftCommand{VehicleID: v.ID, DriverID: d.ID})
				if errors.Is(err, fleet.ErrLockBusy) {
					time.Sleep(time.Millisecond)
					continue
				}
				errs <- err
				return
			}
		}(d)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
		} else if !errors.Is(err, fleet.ErrVehicleCapacity) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != fleet.MaxActiveAssignments {
		t.Fatalf("expected %d open shifts, got %d", fleet.MaxActiveAssignments, success)
	}
	n, err := store.CountActiveAssignments(ctx, v.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != fleet.MaxActiveAssignments {
		t.Fatalf("capacity breached: %d active assignments", n)
	}
}
