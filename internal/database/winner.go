// internal/database/winner.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oscarnight/server/internal/models"
	"github.com/oscarnight/server/internal/notify"
)

// DeclareWinner upserts the outcome for one category, keyed on
// (room, category). Re-declaring overwrites the nominee so the host can
// correct a mistake; announced_at keeps its original value so the reveal
// order is preserved. Host identity is checked inside the transaction.
func (s *Store) DeclareWinner(ctx context.Context, roomID, actorID uuid.UUID, categoryID, nomineeID string) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var hostID uuid.UUID
		err := tx.QueryRow(ctx, `
			SELECT host_id FROM rooms WHERE id = $1
		`, roomID).Scan(&hostID)
		if err == pgx.ErrNoRows {
			return models.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if hostID != actorID {
			return models.ErrNotHost
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO winners (id, room_id, category_id, nominee_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (room_id, category_id)
			DO UPDATE SET nominee_id = EXCLUDED.nominee_id
		`, uuid.New(), roomID, categoryID, nomineeID)
		return err
	})
	if err != nil {
		return err
	}

	s.notify(ctx, roomID, notify.TableWinners)
	return nil
}

// GetWinners lists a room's declared winners in announcement order.
func (s *Store) GetWinners(ctx context.Context, roomID uuid.UUID) ([]models.Winner, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, category_id, nominee_id, announced_at
		FROM winners
		WHERE room_id = $1
		ORDER BY announced_at
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query winners: %w", err)
	}
	defer rows.Close()

	var winners []models.Winner
	for rows.Next() {
		var w models.Winner
		if err := rows.Scan(&w.ID, &w.RoomID, &w.CategoryID, &w.NomineeID, &w.AnnouncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, w)
	}
	return winners, rows.Err()
}
