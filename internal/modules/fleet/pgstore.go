// README: Fleet store backed by PostgreSQL.
package fleet

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

func (s *PGStore) CreateVehicle(ctx context.Context, v *Vehicle) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicles (id, model, license_plate, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(v.ID), v.Model, v.LicensePlate, string(v.Status), v.CreatedAt,
	)
	return err
}

func (s *PGStore) GetVehicle(ctx context.Context, id types.ID) (*Vehicle, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, model, license_plate, status, created_at
		FROM vehicles WHERE id = $1`, string(id),
	)
	var v Vehicle
	err := row.Scan(&v.ID, &v.Model, &v.LicensePlate, &v.Status, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *PGStore) UpdateVehicleStatus(ctx context.Context, id types.ID, status VehicleStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE vehicles SET status = $1 WHERE id = $2`,
		string(status), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListServiceableVehicles(ctx context.Context, model string) ([]*Vehicle, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, model, license_plate, status, created_at
		FROM vehicles
		WHERE status IN ('approved', 'active')
		  AND ($1 = '' OR model = $1)
		ORDER BY created_at, id`, model,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.Model, &v.LicensePlate, &v.Status, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateDriver(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (id, name, phone, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(d.ID), d.Name, d.Phone, string(d.Status), d.CreatedAt,
	)
	return err
}

func (s *PGStore) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, phone, status, created_at
		FROM drivers WHERE id = $1`, string(id),
	)
	var d Driver
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Status, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PGStore) UpdateDriverStatus(ctx context.Context, id types.ID, status DriverStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers SET status = $1 WHERE id = $2`,
		string(status), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListApprovedDrivers(ctx context.Context) ([]*Driver, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, phone, status, created_at
		FROM drivers
		WHERE status = 'approved'
		ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Phone, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateAssignment(ctx context.Context, a *Assignment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicle_assignments (id, vehicle_id, driver_id, assigned_at, unassigned_at)
		VALUES ($1, $2, $3, $4, NULL)`,
		string(a.ID), string(a.VehicleID), string(a.DriverID), a.AssignedAt,
	)
	return err
}

func (s *PGStore) CloseAssignment(ctx context.Context, id types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE vehicle_assignments
		SET unassigned_at = $1
		WHERE id = $2 AND unassigned_at IS NULL`,
		at, string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ActiveAssignmentsByVehicle(ctx context.Context, vehicleID types.ID) ([]*Assignment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, vehicle_id, driver_id, assigned_at, unassigned_at
		FROM vehicle_assignments
		WHERE vehicle_id = $1 AND unassigned_at IS NULL
		ORDER BY assigned_at, id`, string(vehicleID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) ActiveAssignmentByDriver(ctx context.Context, driverID types.ID) (*Assignment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, vehicle_id, driver_id, assigned_at, unassigned_at
		FROM vehicle_assignments
		WHERE driver_id = $1 AND unassigned_at IS NULL
		ORDER BY assigned_at, id
		LIMIT 1`, string(driverID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanAssignment(rows)
}

func (s *PGStore) CountActiveAssignments(ctx context.Context, vehicleID types.ID) (int, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM vehicle_assignments
		WHERE vehicle_id = $1 AND unassigned_at IS NULL`, string(vehicleID),
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanAssignment(rows pgx.Rows) (*Assignment, error) {
	var a Assignment
	if err := rows.Scan(&a.ID, &a.VehicleID, &a.DriverID, &a.AssignedAt, &a.UnassignedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
