// README: Auto-assignment: matcher + OTP + lifecycle orchestration for one
// booking, plus the batch sweep that drains unassigned bookings.
package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"fleetbook/internal/modules/booking"
	"fleetbook/internal/modules/notify"
	"fleetbook/internal/modules/otp"
	"fleetbook/internal/types"
)

type Result string

const (
	ResultAssigned Result = "assigned"
	// ResultSkipped: the booking already has an assignment (or lost the race
	// to a concurrent assigner). Makes AutoAssign idempotent under retries.
	ResultSkipped Result = "skipped"
	// ResultNoCandidate is a normal outcome, not an error; the next batch run
	// retries.
	ResultNoCandidate Result = "no_candidate"
)

type BatchStats struct {
	Succeeded int
	Failed    int
}

type Notifier interface {
	Enqueue(ctx context.Context, n notify.Notification) error
}

type Service struct {
	matcher  *Matcher
	bookings *booking.Service
	store    booking.Store
	notifier Notifier
	clock    types.Clock
	log      *logrus.Logger
	// throttle spaces consecutive attempts inside one batch run.
	throttle time.Duration
}

func NewService(matcher *Matcher, bookings *booking.Service, store booking.Store, notifier Notifier, clock types.Clock, log *logrus.Logger, throttle time.Duration) *Service {
	return &Service{
		matcher:  matcher,
		bookings: bookings,
		store:    store,
		notifier: notifier,
		clock:    clock,
		log:      log,
		throttle: throttle,
	}
}

func (s *Service) AutoAssign(ctx context.Context, bookingID types.ID) (Result, error) {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if b.Status == booking.StatusAssigned || b.HasAssignment() {
		return ResultSkipped, nil
	}
	if b.Status != booking.StatusUpcoming && b.Status != booking.StatusToday {
		return ResultSkipped, nil
	}

	pair, err := s.matcher.Find(ctx, Criteria{Model: b.VehicleModel, PickupAt: b.PickupAt})
	if err != nil {
		return "", err
	}
	if pair == nil {
		return ResultNoCandidate, nil
	}

	code, expiresAt := otp.Issue(s.clock.Now())
	_, err = s.bookings.Transition(ctx, booking.TransitionCommand{
		BookingID:    b.ID,
		Target:       booking.StatusAssigned,
		ActorType:    "system",
		VehicleID:    &pair.VehicleID,
		DriverID:     &pair.DriverID,
		OTPCode:      &code,
		OTPExpiresAt: &expiresAt,
	})
	if errors.Is(err, booking.ErrConflict) {
		// A concurrent assigner got there first.
		return ResultSkipped, nil
	}
	if err != nil {
		return "", err
	}

	s.notifyDriver(ctx, b, pair, code)
	return ResultAssigned, nil
}

// RunBatch drains all unassigned upcoming bookings, earliest pickup first.
// Per-item failures are logged and counted; the run never aborts on one
// booking, and failed bookings are retried on the next scheduled run.
func (s *Service) RunBatch(ctx context.Context) (BatchStats, error) {
	var stats BatchStats
	list, err := s.store.ListUnassigned(ctx)
	if err != nil {
		return stats, err
	}
	for i, b := range list {
		if i > 0 && s.throttle > 0 {
			time.Sleep(s.throttle)
		}
		res, err := s.AutoAssign(ctx, b.ID)
		if err != nil {
			stats.Failed++
			s.log.WithFields(logrus.Fields{
				"job":        "batch_auto_assign",
				"booking_id": b.ID,
			}).WithError(err).Warn("auto assign failed")
			continue
		}
		if res == ResultAssigned {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
	s.log.WithFields(logrus.Fields{
		"job":       "batch_auto_assign",
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
	}).Info("batch auto assign finished")
	return stats, nil
}

// notifyDriver sends assignment details including the OTP. The customer's
// confirmation (without the OTP) is enqueued by the lifecycle transition.
func (s *Service) notifyDriver(ctx context.Context, b *booking.Booking, pair *Pair, code string) {
	err := s.notifier.Enqueue(ctx, notify.Notification{
		Type:      notify.TypeDriverAssignment,
		TargetID:  &pair.DriverID,
		BookingID: &b.ID,
		Payload: map[string]any{
			"booking_id":     string(b.ID),
			"vehicle_id":     string(pair.VehicleID),
			"pickup_address": b.PickupAddress,
			"destination":    b.Destination,
			"pickup_at":      b.PickupAt,
			"otp_code":       code,
		},
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"driver_id":  pair.DriverID,
		}).WithError(err).Warn("driver notification enqueue failed")
	}
}
