// internal/database/prediction.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oscarnight/server/internal/models"
	"github.com/oscarnight/server/internal/notify"
)

// SavePrediction upserts a participant's pick for one category, keyed on
// (participant, category): last write wins. The room must still be in
// VOTING; late votes are rejected here regardless of what the client
// believed the phase to be.
func (s *Store) SavePrediction(ctx context.Context, participantID, roomID uuid.UUID, categoryID, nomineeID string) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var phase models.Phase
		err := tx.QueryRow(ctx, `
			SELECT phase FROM rooms WHERE id = $1
		`, roomID).Scan(&phase)
		if err == pgx.ErrNoRows {
			return models.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if phase != models.PhaseVoting {
			return models.ErrPhaseViolation
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO predictions (id, participant_id, room_id, category_id, nominee_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (participant_id, category_id)
			DO UPDATE SET nominee_id = EXCLUDED.nominee_id, updated_at = now()
		`, uuid.New(), participantID, roomID, categoryID, nomineeID)
		return err
	})
	if err != nil {
		return err
	}

	s.notify(ctx, roomID, notify.TablePredictions)
	return nil
}

// GetPredictions lists one participant's picks.
func (s *Store) GetPredictions(ctx context.Context, participantID uuid.UUID) ([]models.Prediction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, participant_id, room_id, category_id, nominee_id, updated_at
		FROM predictions
		WHERE participant_id = $1
	`, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()
	return collectPredictions(rows)
}

// GetRoomPredictions lists every pick in a room, for tallies and scoring.
func (s *Store) GetRoomPredictions(ctx context.Context, roomID uuid.UUID) ([]models.Prediction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, participant_id, room_id, category_id, nominee_id, updated_at
		FROM predictions
		WHERE room_id = $1
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query room predictions: %w", err)
	}
	defer rows.Close()
	return collectPredictions(rows)
}

func collectPredictions(rows pgx.Rows) ([]models.Prediction, error) {
	var predictions []models.Prediction
	for rows.Next() {
		var p models.Prediction
		if err := rows.Scan(&p.ID, &p.ParticipantID, &p.RoomID, &p.CategoryID, &p.NomineeID, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}
