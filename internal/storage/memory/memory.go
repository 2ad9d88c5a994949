// README: In-memory implementations of the module store contracts. Used by
// package tests and DSN-less local runs; mutex-guarded, insertion-ordered.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fleetbook/internal/modules/booking"
	"fleetbook/internal/modules/fleet"
	"fleetbook/internal/modules/notify"
	"fleetbook/internal/types"
)

// BookingStore implements booking.Store.
type BookingStore struct {
	mu        sync.Mutex
	rows      map[types.ID]*booking.Booking
	order     []types.ID
	audits    []*booking.AuditEntry
	summaries map[types.ID]*booking.RideSummary
}

func NewBookingStore() *BookingStore {
	return &BookingStore{
		rows:      make(map[types.ID]*booking.Booking),
		summaries: make(map[types.ID]*booking.RideSummary),
	}
}

func (s *BookingStore) Create(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[b.ID] = cloneBooking(b)
	s.order = append(s.order, b.ID)
	return nil
}

func (s *BookingStore) Get(_ context.Context, id types.ID) (*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *BookingStore) ApplyTransition(_ context.Context, rec booking.TransitionRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.rows[rec.BookingID]
	if !ok {
		return false, booking.ErrNotFound
	}
	if b.Status != rec.From {
		return false, nil
	}

	b.Status = rec.To
	b.UpdatedAt = rec.At
	if rec.Set.VehicleID != nil {
		b.VehicleID = clonePtr(rec.Set.VehicleID)
	}
	if rec.Set.DriverID != nil {
		b.DriverID = clonePtr(rec.Set.DriverID)
	}
	if rec.Set.OTPCode != nil {
		b.OTPCode = clonePtr(rec.Set.OTPCode)
	}
	if rec.Set.OTPExpiresAt != nil {
		b.OTPExpiresAt = clonePtr(rec.Set.OTPExpiresAt)
	}
	if rec.Set.DistanceKm != nil {
		b.DistanceKm = clonePtr(rec.Set.DistanceKm)
	}
	if rec.Set.ClearOTP {
		b.OTPCode = nil
		b.OTPExpiresAt = nil
	}

	if rec.Audit != nil {
		a := *rec.Audit
		a.ID = int64(len(s.audits) + 1)
		s.audits = append(s.audits, &a)
	}
	if rec.Summary != nil {
		if _, exists := s.summaries[rec.Summary.BookingID]; !exists {
			sum := *rec.Summary
			s.summaries[sum.BookingID] = &sum
		}
	}
	return true, nil
}

func (s *BookingStore) ListUnassigned(_ context.Context) ([]*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*booking.Booking
	for _, id := range s.order {
		b := s.rows[id]
		if b.Status == booking.StatusUpcoming && b.VehicleID == nil && b.DriverID == nil {
			out = append(out, cloneBooking(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PickupAt.Before(out[j].PickupAt) })
	return out, nil
}

func (s *BookingStore) ListAssignedInWindow(_ context.Context, from, to time.Time) ([]*booking.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*booking.Booking
	for _, id := range s.order {
		b := s.rows[id]
		if b.Status != booking.StatusAssigned || b.VehicleID == nil || b.DriverID == nil {
			continue
		}
		if b.PickupAt.Before(from) || !b.PickupAt.Before(to) {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PickupAt.Before(out[j].PickupAt) })
	return out, nil
}

func (s *BookingStore) PromoteDue(_ context.Context, from, to, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, b := range s.rows {
		if b.Status != booking.StatusUpcoming {
			continue
		}
		if b.PickupAt.Before(from) || b.PickupAt.After(to) {
			continue
		}
		b.Status = booking.StatusToday
		b.UpdatedAt = at
		n++
	}
	return n, nil
}

func (s *BookingStore) HasConflict(_ context.Context, driverID types.ID, from, to time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.rows {
		if b.DriverID == nil || *b.DriverID != driverID {
			continue
		}
		if b.Status != booking.StatusAssigned && b.Status != booking.StatusInProgress {
			continue
		}
		if b.PickupAt.Before(from) || b.PickupAt.After(to) {
			continue
		}
		return true, nil
	}
	return false, nil
}

// Audits returns the audit log in append order.
func (s *BookingStore) Audits() []*booking.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*booking.AuditEntry, len(s.audits))
	copy(out, s.audits)
	return out
}

// Summary returns the ride summary for a booking, or nil.
func (s *BookingStore) Summary(id types.ID) *booking.RideSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[id]
	if !ok {
		return nil
	}
	c := *sum
	return &c
}

// FleetStore implements fleet.Store.
type FleetStore struct {
	mu          sync.Mutex
	vehicles    map[types.ID]*fleet.Vehicle
	vehicleIDs  []types.ID
	drivers     map[types.ID]*fleet.Driver
	driverIDs   []types.ID
	assignments map[types.ID]*fleet.Assignment
	assignIDs   []types.ID
}

func NewFleetStore() *FleetStore {
	return &FleetStore{
		vehicles:    make(map[types.ID]*fleet.Vehicle),
		drivers:     make(map[types.ID]*fleet.Driver),
		assignments: make(map[types.ID]*fleet.Assignment),
	}
}

func (s *FleetStore) CreateVehicle(_ context.Context, v *fleet.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *v
	s.vehicles[v.ID] = &c
	s.vehicleIDs = append(s.vehicleIDs, v.ID)
	return nil
}

func (s *FleetStore) GetVehicle(_ context.Context, id types.ID) (*fleet.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return nil, fleet.ErrNotFound
	}
	c := *v
	return &c, nil
}

func (s *FleetStore) UpdateVehicleStatus(_ context.Context, id types.ID, status fleet.VehicleStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return fleet.ErrNotFound
	}
	v.Status = status
	return nil
}

func (s *FleetStore) ListServiceableVehicles(_ context.Context, model string) ([]*fleet.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fleet.Vehicle
	for _, id := range s.vehicleIDs {
		v := s.vehicles[id]
		if !v.Serviceable() {
			continue
		}
		if model != "" && v.Model != model {
			continue
		}
		c := *v
		out = append(out, &c)
	}
	return out, nil
}

func (s *FleetStore) CreateDriver(_ context.Context, d *fleet.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *d
	s.drivers[d.ID] = &c
	s.driverIDs = append(s.driverIDs, d.ID)
	return nil
}

func (s *FleetStore) GetDriver(_ context.Context, id types.ID) (*fleet.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, fleet.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (s *FleetStore) UpdateDriverStatus(_ context.Context, id types.ID, status fleet.DriverStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return fleet.ErrNotFound
	}
	d.Status = status
	return nil
}

func (s *FleetStore) ListApprovedDrivers(_ context.Context) ([]*fleet.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fleet.Driver
	for _, id := range s.driverIDs {
		d := s.drivers[id]
		if d.Status != fleet.DriverStatusApproved {
			continue
		}
		c := *d
		out = append(out, &c)
	}
	return out, nil
}

func (s *FleetStore) CreateAssignment(_ context.Context, a *fleet.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.assignments[a.ID] = &c
	s.assignIDs = append(s.assignIDs, a.ID)
	return nil
}

func (s *FleetStore) CloseAssignment(_ context.Context, id types.ID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[id]
	if !ok || a.UnassignedAt != nil {
		return false, nil
	}
	t := at
	a.UnassignedAt = &t
	return true, nil
}

func (s *FleetStore) ActiveAssignmentsByVehicle(_ context.Context, vehicleID types.ID) ([]*fleet.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fleet.Assignment
	for _, id := range s.assignIDs {
		a := s.assignments[id]
		if a.VehicleID != vehicleID || a.UnassignedAt != nil {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

func (s *FleetStore) ActiveAssignmentByDriver(_ context.Context, driverID types.ID) (*fleet.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.assignIDs {
		a := s.assignments[id]
		if a.DriverID == driverID && a.UnassignedAt == nil {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (s *FleetStore) CountActiveAssignments(_ context.Context, vehicleID types.ID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.assignments {
		if a.VehicleID == vehicleID && a.UnassignedAt == nil {
			n++
		}
	}
	return n, nil
}

// NotificationStore implements notify.Store.
type NotificationStore struct {
	mu   sync.Mutex
	rows []*notify.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (s *NotificationStore) Insert(_ context.Context, n *notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *n
	s.rows = append(s.rows, &c)
	return nil
}

func (s *NotificationStore) ExistsForBooking(_ context.Context, bookingID types.ID, ntype string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.rows {
		if n.Type == ntype && n.BookingID != nil && *n.BookingID == bookingID {
			return true, nil
		}
	}
	return false, nil
}

// All returns enqueued notifications in append order.
func (s *NotificationStore) All() []*notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*notify.Notification, len(s.rows))
	copy(out, s.rows)
	return out
}

// Locker implements fleet.Locker in-process. TTLs are ignored: holders always
// release via defer in the same process.
type Locker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]struct{})}
}

func (l *Locker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = struct{}{}
	return true, nil
}

func (l *Locker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	c := *b
	c.VehicleID = clonePtr(b.VehicleID)
	c.DriverID = clonePtr(b.DriverID)
	c.OTPCode = clonePtr(b.OTPCode)
	c.OTPExpiresAt = clonePtr(b.OTPExpiresAt)
	c.DistanceKm = clonePtr(b.DistanceKm)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
