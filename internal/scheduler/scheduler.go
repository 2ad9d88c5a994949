// README: Periodic jobs that drive bookings forward without human action:
// batch assignment + pre-ride notices every 5 minutes, day-of promotion every
// hour. Constructed with injected dependencies and started explicitly.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"fleetbook/internal/modules/assignment"
	"fleetbook/internal/modules/booking"
	"fleetbook/internal/modules/notify"
	"fleetbook/internal/types"
)

const (
	assignInterval  = 5 * time.Minute
	promoteInterval = 60 * time.Minute

	// Pre-ride notices go to bookings picking up 55–60 minutes from now. The
	// window matches the tick period so each booking is normally visited once,
	// but exactly-once is enforced by the outbox dedup check, not the window.
	preRideLeadMin = 55 * time.Minute
	preRideLeadMax = 60 * time.Minute
)

type Scheduler struct {
	assigner *assignment.Service
	bookings booking.Store
	notifier *notify.Service
	clock    types.Clock
	log      *logrus.Logger
}

func New(assigner *assignment.Service, bookings booking.Store, notifier *notify.Service, clock types.Clock, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		assigner: assigner,
		bookings: bookings,
		notifier: notifier,
		clock:    clock,
		log:      log,
	}
}

// Start launches both ticker loops and returns. Each tick runs on its own
// goroutine so a slow batch cannot delay later ticks; safety comes from the
// conditional writes and the dedup guard, not from non-overlap.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, assignInterval, func(ctx context.Context, now time.Time) {
		s.RunAssignTick(ctx)
		s.RunPreRideTick(ctx, now)
	})
	go s.loop(ctx, promoteInterval, func(ctx context.Context, now time.Time) {
		s.RunPromoteTick(ctx, now)
	})
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, fn func(context.Context, time.Time)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go fn(ctx, s.clock.Now())
		}
	}
}

func (s *Scheduler) RunAssignTick(ctx context.Context) {
	if _, err := s.assigner.RunBatch(ctx); err != nil {
		s.log.WithField("job", "batch_auto_assign").WithError(err).Error("batch run failed")
	}
}

// RunPreRideTick enqueues one details notification per qualifying booking.
func (s *Scheduler) RunPreRideTick(ctx context.Context, now time.Time) {
	list, err := s.bookings.ListAssignedInWindow(ctx, now.Add(preRideLeadMin), now.Add(preRideLeadMax))
	if err != nil {
		s.log.WithField("job", "pre_ride_notifier").WithError(err).Error("window query failed")
		return
	}
	for _, b := range list {
		if err := s.notifyPreRide(ctx, b); err != nil {
			s.log.WithFields(logrus.Fields{
				"job":        "pre_ride_notifier",
				"booking_id": b.ID,
			}).WithError(err).Warn("pre-ride notification failed")
		}
	}
}

func (s *Scheduler) notifyPreRide(ctx context.Context, b *booking.Booking) error {
	sent, err := s.notifier.ExistsForBooking(ctx, b.ID, notify.TypePreRideDetails)
	if err != nil {
		return err
	}
	if sent {
		return nil
	}
	payload := map[string]any{
		"booking_id":     string(b.ID),
		"vehicle_id":     string(*b.VehicleID),
		"driver_id":      string(*b.DriverID),
		"pickup_address": b.PickupAddress,
		"pickup_at":      b.PickupAt,
	}
	if b.OTPCode != nil {
		payload["otp_code"] = *b.OTPCode
	}
	return s.notifier.Enqueue(ctx, notify.Notification{
		Type:      notify.TypePreRideDetails,
		TargetID:  &b.CustomerID,
		BookingID: &b.ID,
		Payload:   payload,
	})
}

// RunPromoteTick bulk-moves upcoming bookings picking up today (local day
// boundary) to `today`. No per-row side effects, no notifications.
func (s *Scheduler) RunPromoteTick(ctx context.Context, now time.Time) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Millisecond)
	n, err := s.bookings.PromoteDue(ctx, dayStart, dayEnd, now)
	if err != nil {
		s.log.WithField("job", "stale_booking_promoter").WithError(err).Error("promotion failed")
		return
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{
			"job":      "stale_booking_promoter",
			"promoted": n,
		}).Info("promoted bookings to today")
	}
}
