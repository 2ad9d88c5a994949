// README: Booking lifecycle service: intake, guarded transitions with audit +
// customer notification, and OTP validation.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"fleetbook/internal/modules/notify"
	"fleetbook/internal/modules/otp"
	"fleetbook/internal/types"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("booking state conflict")
	ErrBadRequest        = errors.New("bad request")
)

// Notifier is the outbox the lifecycle writes to. Enqueue failures after the
// status write are accepted (at-least-once, not exactly-once).
type Notifier interface {
	Enqueue(ctx context.Context, n notify.Notification) error
}

// Quoter is the external pricing collaborator: a pure function of the
// requested vehicle model.
type Quoter interface {
	Quote(vehicleModel string) (base, tax, total types.Money)
}

type Service struct {
	store    Store
	notifier Notifier
	quoter   Quoter
	clock    types.Clock
	log      *logrus.Logger
}

func NewService(store Store, notifier Notifier, quoter Quoter, clock types.Clock, log *logrus.Logger) *Service {
	return &Service{store: store, notifier: notifier, quoter: quoter, clock: clock, log: log}
}

type CreateCommand struct {
	CustomerID    types.ID
	PickupAddress string
	Destination   string
	PickupAt      time.Time
	VehicleModel  string
}

type TransitionCommand struct {
	BookingID types.ID
	Target    Status
	ActorType string
	ActorID   *types.ID
	Reason    string

	// Assignment fields; required when Target is `assigned`.
	VehicleID    *types.ID
	DriverID     *types.ID
	OTPCode      *string
	OTPExpiresAt *time.Time

	// Completion distance; required when Target is `completed` unless the
	// booking already carries one.
	DistanceKm *float64
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	if cmd.CustomerID == "" || cmd.PickupAddress == "" || cmd.Destination == "" || cmd.PickupAt.IsZero() {
		return nil, ErrBadRequest
	}
	now := s.clock.Now()
	b := &Booking{
		ID:            types.NewID(),
		CustomerID:    cmd.CustomerID,
		PickupAddress: cmd.PickupAddress,
		Destination:   cmd.Destination,
		PickupAt:      cmd.PickupAt,
		VehicleModel:  cmd.VehicleModel,
		Status:        StatusUpcoming,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.quoter != nil {
		b.FareBase, b.FareTax, b.FareTotal = s.quoter.Quote(cmd.VehicleModel)
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

// Transition applies one state-machine step. The status write is conditional
// on the status read here; a concurrent writer winning the race surfaces as
// ErrConflict, never as a silent lost update.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	// `today` is owned by the promotion job.
	if cmd.Target == StatusToday {
		return nil, ErrInvalidTransition
	}
	if !CanTransition(b.Status, cmd.Target) {
		return nil, ErrInvalidTransition
	}

	set, summary, err := s.buildSet(b, cmd)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	before, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	afterRow := projected(b, cmd.Target, set, now)
	after, err := json.Marshal(afterRow)
	if err != nil {
		return nil, err
	}

	rec := TransitionRecord{
		BookingID: b.ID,
		From:      b.Status,
		To:        cmd.Target,
		Set:       set,
		At:        now,
		Summary:   summary,
		Audit: &AuditEntry{
			BookingID:  b.ID,
			FromStatus: b.Status,
			ToStatus:   cmd.Target,
			ActorType:  cmd.ActorType,
			ActorID:    cmd.ActorID,
			Before:     before,
			After:      after,
			CreatedAt:  now,
		},
	}
	ok, err := s.store.ApplyTransition(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	s.notifyStatusChange(ctx, afterRow, b.Status, cmd.Reason)
	return afterRow, nil
}

// ValidateOTP is a pure check; it can be called any number of times until the
// code expires.
func (s *Service) ValidateOTP(ctx context.Context, id types.ID, submitted string) (otp.Result, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if b.OTPCode == nil || b.OTPExpiresAt == nil {
		return otp.ResultNotSet, nil
	}
	return otp.Validate(*b.OTPCode, *b.OTPExpiresAt, submitted, s.clock.Now()), nil
}

func (s *Service) buildSet(b *Booking, cmd TransitionCommand) (TransitionSet, *RideSummary, error) {
	var set TransitionSet

	switch cmd.Target {
	case StatusAssigned:
		// Assignment always carries both references and a fresh OTP.
		if cmd.VehicleID == nil || cmd.DriverID == nil || cmd.OTPCode == nil || cmd.OTPExpiresAt == nil {
			return set, nil, ErrInvalidTransition
		}
		set.VehicleID = cmd.VehicleID
		set.DriverID = cmd.DriverID
		set.OTPCode = cmd.OTPCode
		set.OTPExpiresAt = cmd.OTPExpiresAt
		return set, nil, nil

	case StatusCompleted:
		vehicleID := b.VehicleID
		driverID := b.DriverID
		if cmd.VehicleID != nil {
			vehicleID = cmd.VehicleID
			set.VehicleID = cmd.VehicleID
		}
		if cmd.DriverID != nil {
			driverID = cmd.DriverID
			set.DriverID = cmd.DriverID
		}
		distance := b.DistanceKm
		if cmd.DistanceKm != nil {
			distance = cmd.DistanceKm
			set.DistanceKm = cmd.DistanceKm
		}
		if vehicleID == nil || driverID == nil || distance == nil {
			return set, nil, ErrInvalidTransition
		}
		set.ClearOTP = true
		summary := &RideSummary{
			BookingID:   b.ID,
			VehicleID:   *vehicleID,
			DriverID:    *driverID,
			DistanceKm:  *distance,
			FareTotal:   b.FareTotal,
			CompletedAt: s.clock.Now(),
		}
		return set, summary, nil

	default:
		// The OTP lives only while the booking is assigned.
		if b.Status == StatusAssigned {
			set.ClearOTP = true
		}
		return set, nil, nil
	}
}

func (s *Service) notifyStatusChange(ctx context.Context, b *Booking, from Status, reason string) {
	payload := map[string]any{
		"booking_id": string(b.ID),
		"from":       string(from),
		"to":         string(b.Status),
		"pickup_at":  b.PickupAt,
	}
	if reason != "" {
		payload["reason"] = reason
	}
	err := s.notifier.Enqueue(ctx, notify.Notification{
		Type:      notify.TypeStatusChange,
		TargetID:  &b.CustomerID,
		BookingID: &b.ID,
		Payload:   payload,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"to":         b.Status,
		}).WithError(err).Warn("status notification enqueue failed")
	}
}

// projected applies the transition set to a copy of the row, mirroring what
// the store writes.
func projected(b *Booking, to Status, set TransitionSet, at time.Time) *Booking {
	after := *b
	after.Status = to
	after.UpdatedAt = at
	if set.VehicleID != nil {
		after.VehicleID = set.VehicleID
	}
	if set.DriverID != nil {
		after.DriverID = set.DriverID
	}
	if set.OTPCode != nil {
		after.OTPCode = set.OTPCode
	}
	if set.OTPExpiresAt != nil {
		after.OTPExpiresAt = set.OTPExpiresAt
	}
	if set.DistanceKm != nil {
		after.DistanceKm = set.DistanceKm
	}
	if set.ClearOTP {
		after.OTPCode = nil
		after.OTPExpiresAt = nil
	}
	return &after
}
