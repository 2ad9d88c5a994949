// README: Notification outbox backed by PostgreSQL.
package notify

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"fleetbook/internal/types"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, n *Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO notifications (
			id, type, target_id, actor_id, booking_id, payload, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(n.ID),
		n.Type,
		toStringPtr(n.TargetID),
		toStringPtr(n.ActorID),
		toStringPtr(n.BookingID),
		payload,
		n.Status,
		n.CreatedAt,
	)
	return err
}

func (s *PGStore) ExistsForBooking(ctx context.Context, bookingID types.ID, ntype string) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE booking_id = $1 AND type = $2
		)`, string(bookingID), ntype,
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
