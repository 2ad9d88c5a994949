// README: Booking store backed by PostgreSQL. The transition UPDATE is
// guarded by the expected current status; audit and summary ride in the same
// transaction.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetbook/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const bookingColumns = `
	id, customer_id, pickup_address, destination, pickup_at, vehicle_model,
	vehicle_id, driver_id, status, otp_code, otp_expires_at, distance_km,
	fare_base, fare_tax, fare_total, currency, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, customer_id, pickup_address, destination, pickup_at, vehicle_model,
			vehicle_id, driver_id, status, otp_code, otp_expires_at, distance_km,
			fare_base, fare_tax, fare_total, currency, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18
		)`,
		string(b.ID),
		string(b.CustomerID),
		b.PickupAddress,
		b.Destination,
		b.PickupAt,
		b.VehicleModel,
		toStringPtr(b.VehicleID),
		toStringPtr(b.DriverID),
		string(b.Status),
		b.OTPCode,
		b.OTPExpiresAt,
		b.DistanceKm,
		b.FareBase.Amount,
		b.FareTax.Amount,
		b.FareTotal.Amount,
		b.FareTotal.Currency,
		b.CreatedAt,
		b.UpdatedAt,
	)
	return err
}

func (s *PGStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `SELECT`+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *PGStore) ApplyTransition(ctx context.Context, rec TransitionRecord) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    vehicle_id = COALESCE($2, vehicle_id),
		    driver_id = COALESCE($3, driver_id),
		    otp_code = CASE WHEN $4 THEN NULL ELSE COALESCE($5, otp_code) END,
		    otp_expires_at = CASE WHEN $4 THEN NULL ELSE COALESCE($6, otp_expires_at) END,
		    distance_km = COALESCE($7, distance_km),
		    updated_at = $8
		WHERE id = $9 AND status = $10`,
		string(rec.To),
		toStringPtr(rec.Set.VehicleID),
		toStringPtr(rec.Set.DriverID),
		rec.Set.ClearOTP,
		rec.Set.OTPCode,
		rec.Set.OTPExpiresAt,
		rec.Set.DistanceKm,
		rec.At,
		string(rec.BookingID),
		string(rec.From),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	a := rec.Audit
	_, err = tx.Exec(ctx, `
		INSERT INTO booking_audit (
			booking_id, from_status, to_status, actor_type, actor_id,
			before_row, after_row, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(a.BookingID),
		string(a.FromStatus),
		string(a.ToStatus),
		a.ActorType,
		toStringPtr(a.ActorID),
		a.Before,
		a.After,
		a.CreatedAt,
	)
	if err != nil {
		return false, err
	}

	if sum := rec.Summary; sum != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO ride_summaries (
				booking_id, vehicle_id, driver_id, distance_km,
				fare_total, currency, completed_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (booking_id) DO NOTHING`,
			string(sum.BookingID),
			string(sum.VehicleID),
			string(sum.DriverID),
			sum.DistanceKm,
			sum.FareTotal.Amount,
			sum.FareTotal.Currency,
			sum.CompletedAt,
		)
		if err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PGStore) ListUnassigned(ctx context.Context) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE status = 'upcoming' AND vehicle_id IS NULL AND driver_id IS NULL
		ORDER BY pickup_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (s *PGStore) ListAssignedInWindow(ctx context.Context, from, to time.Time) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE status = 'assigned'
		  AND vehicle_id IS NOT NULL AND driver_id IS NOT NULL
		  AND pickup_at >= $1 AND pickup_at < $2
		ORDER BY pickup_at, id`, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (s *PGStore) PromoteDue(ctx context.Context, from, to, at time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'today', updated_at = $1
		WHERE status = 'upcoming' AND pickup_at >= $2 AND pickup_at <= $3`,
		at, from, to,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) HasConflict(ctx context.Context, driverID types.ID, from, to time.Time) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE driver_id = $1
			  AND status IN ('assigned', 'in_progress')
			  AND pickup_at >= $2 AND pickup_at <= $3
		)`, string(driverID), from, to,
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var vehicleID, driverID *string
	var currency string
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.PickupAddress, &b.Destination, &b.PickupAt, &b.VehicleModel,
		&vehicleID, &driverID, &b.Status, &b.OTPCode, &b.OTPExpiresAt, &b.DistanceKm,
		&b.FareBase.Amount, &b.FareTax.Amount, &b.FareTotal.Amount, &currency,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.VehicleID = toIDPtr(vehicleID)
	b.DriverID = toIDPtr(driverID)
	b.FareBase.Currency = currency
	b.FareTax.Currency = currency
	b.FareTotal.Currency = currency
	return &b, nil
}

func scanBookings(rows pgx.Rows) ([]*Booking, error) {
	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toIDPtr(v *string) *types.ID {
	if v == nil {
		return nil
	}
	id := types.ID(*v)
	return &id
}
