// README: Tick-level tests for the periodic jobs: pre-ride window bounds,
// outbox dedup, day-of promotion boundaries.
package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"fleetbook/internal/logging"
	"fleetbook/internal/modules/assignment"
	"fleetbook/internal/modules/booking"
	"fleetbook/internal/modules/notify"
	"fleetbook/internal/modules/otp"
	"fleetbook/internal/modules/pricing"
	"fleetbook/internal/scheduler"
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

var baseTime = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

type fixture struct {
	ctx       context.Context
	clock     *fakeClock
	bookings  *memory.BookingStore
	outbox    *memory.NotificationStore
	lifecycle *booking.Service
	sched     *scheduler.Scheduler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: baseTime}
	bookings := memory.NewBookingStore()
	fleets := memory.NewFleetStore()
	outbox := memory.NewNotificationStore()
	notifier := notify.NewService(outbox, clock)
	log := logging.New("error")
	lifecycle := booking.NewService(bookings, notifier, pricing.NewService(), clock, log)
	assigner := assignment.NewService(assignment.NewMatcher(fleets, bookings), lifecycle, bookings, notifier, clock, log, 0)
	return &fixture{
		ctx:       context.Background(),
		clock:     clock,
		bookings:  bookings,
		outbox:    outbox,
		lifecycle: lifecycle,
		sched:     scheduler.New(assigner, bookings, notifier, clock, log),
	}
}

func (f *fixture) upcoming(t *testing.T, pickupAt time.Time) *booking.Booking {
	t.Helper()
	b, err := f.lifecycle.Create(f.ctx, booking.CreateCommand{
		CustomerID:    "c1",
		PickupAddress: "12 Harbor St",
		Destination:   "Airport",
		PickupAt:      pickupAt,
		VehicleModel:  "Windsor",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func (f *fixture) assigned(t *testing.T, pickupAt time.Time) *booking.Booking {
	t.Helper()
	b := f.upcoming(t, pickupAt)
	vehicleID, driverID := types.NewID(), types.NewID()
	code, expiresAt := otp.Issue(f.clock.Now())
	got, err := f.lifecycle.Transition(f.ctx, booking.TransitionCommand{
		BookingID:    b.ID,
		Target:       booking.StatusAssigned,
		ActorType:    "staff",
		VehicleID:    &vehicleID,
		DriverID:     &driverID,
		OTPCode:      &code,
		OTPExpiresAt: &expiresAt,
	})
	if err != nil {
		t.Fatalf("assign booking: %v", err)
	}
	return got
}

func (f *fixture) preRideCount(bookingID types.ID) int {
	n := 0
	for _, note := range f.outbox.All() {
		if note.Type == notify.TypePreRideDetails && note.BookingID != nil && *note.BookingID == bookingID {
			n++
		}
	}
	return n
}

func TestPreRideTickWindowAndDedup(t *testing.T) {
	f := setup(t)
	due := f.assigned(t, baseTime.Add(57*time.Minute))
	tooSoon := f.assigned(t, baseTime.Add(54*time.Minute))
	tooFar := f.assigned(t, baseTime.Add(70*time.Minute))
	notAssigned := f.upcoming(t, baseTime.Add(57*time.Minute))

	f.sched.RunPreRideTick(f.ctx, f.clock.Now())

	if got := f.preRideCount(due.ID); got != 1 {
		t.Fatalf("due booking: expected 1 pre-ride notification, got %d", got)
	}
	for _, b := range []*booking.Booking{tooSoon, tooFar, notAssigned} {
		if got := f.preRideCount(b.ID); got != 0 {
			t.Fatalf("booking %s: expected no pre-ride notification, got %d", b.ID, got)
		}
	}

	// The dedup guard makes a repeated tick over the same window a no-op.
	f.sched.RunPreRideTick(f.ctx, f.clock.Now())
	if got := f.preRideCount(due.ID); got != 1 {
		t.Fatalf("after second tick: expected 1 pre-ride notification, got %d", got)
	}

	for _, note := range f.outbox.All() {
		if note.Type != notify.TypePreRideDetails {
			continue
		}
		if note.Payload["otp_code"] == "" || note.Payload["otp_code"] == nil {
			t.Fatal("pre-ride notification must include the OTP")
		}
	}
}

func TestPreRideTickLowerBoundInclusive(t *testing.T) {
	f := setup(t)
	atEdge := f.assigned(t, baseTime.Add(55*time.Minute))
	f.sched.RunPreRideTick(f.ctx, f.clock.Now())
	if got := f.preRideCount(atEdge.ID); got != 1 {
		t.Fatalf("pickup at now+55m: expected 1 notification, got %d", got)
	}
}

func TestPromoteTickDayBoundary(t *testing.T) {
	f := setup(t)
	lateToday := f.upcoming(t, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))
	earlyTomorrow := f.upcoming(t, time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC))
	alreadyAssigned := f.assigned(t, time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC))

	f.sched.RunPromoteTick(f.ctx, f.clock.Now())

	got, _ := f.bookings.Get(f.ctx, lateToday.ID)
	if got.Status != booking.StatusToday {
		t.Fatalf("pickup later today: expected today, got %s", got.Status)
	}
	got, _ = f.bookings.Get(f.ctx, earlyTomorrow.ID)
	if got.Status != booking.StatusUpcoming {
		t.Fatalf("pickup tomorrow: expected upcoming, got %s", got.Status)
	}
	got, _ = f.bookings.Get(f.ctx, alreadyAssigned.ID)
	if got.Status != booking.StatusAssigned {
		t.Fatalf("assigned booking must be left alone, got %s", got.Status)
	}
}

func TestPromoteTickIdempotent(t *testing.T) {
	f := setup(t)
	b := f.upcoming(t, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))
	f.sched.RunPromoteTick(f.ctx, f.clock.Now())
	f.sched.RunPromoteTick(f.ctx, f.clock.Now())
	got, _ := f.bookings.Get(f.ctx, b.ID)
	if got.Status != booking.StatusToday {
		t.Fatalf("expected today, got %s", got.Status)
	}
}
