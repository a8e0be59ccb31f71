// internal/database/participant.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oscarnight/server/internal/models"
	"github.com/oscarnight/server/internal/notify"
)

// JoinRoomResult is what the join_room compound operation returns.
type JoinRoomResult struct {
	RoomID        uuid.UUID    `json:"roomId"`
	ParticipantID uuid.UUID    `json:"participantId"`
	Phase         models.Phase `json:"phase"`
	IsRejoin      bool         `json:"isRejoin"`
}

// JoinRoom adds a participant to the room identified by code
// (case-insensitive). Rejoin is keyed on the caller's existing participant
// id: when rejoinID names a live participant of this room the existing
// record is reused instead of a duplicate being created. A caller with no
// prior identity always gets a fresh participant.
func (s *Store) JoinRoom(ctx context.Context, code, name string, rejoinID *uuid.UUID) (*JoinRoomResult, error) {
	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if rejoinID != nil {
		var existing uuid.UUID
		err := s.pool.QueryRow(ctx, `
			SELECT id FROM participants WHERE id = $1 AND room_id = $2
		`, *rejoinID, room.ID).Scan(&existing)
		if err == nil {
			return &JoinRoomResult{
				RoomID:        room.ID,
				ParticipantID: existing,
				Phase:         room.Phase,
				IsRejoin:      true,
			}, nil
		}
		if err != pgx.ErrNoRows {
			return nil, fmt.Errorf("failed to look up rejoin participant: %w", err)
		}
		// Stale identity from another room or a retired record: fall
		// through and join fresh.
	}

	participantID := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO participants (id, room_id, name, is_host)
		VALUES ($1, $2, $3, false)
	`, participantID, room.ID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to insert participant: %w", err)
	}

	s.notify(ctx, room.ID, notify.TableParticipants)

	return &JoinRoomResult{
		RoomID:        room.ID,
		ParticipantID: participantID,
		Phase:         room.Phase,
		IsRejoin:      false,
	}, nil
}

// GetParticipants lists a room's roster in join order; the leaderboard's
// tie-break depends on this ordering being stable.
func (s *Store) GetParticipants(ctx context.Context, roomID uuid.UUID) ([]models.Participant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, name, is_host, joined_at
		FROM participants
		WHERE room_id = $1
		ORDER BY joined_at, id
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.RoomID, &p.Name, &p.IsHost, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// GetParticipant fetches one participant by id.
func (s *Store) GetParticipant(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	var p models.Participant
	err := s.pool.QueryRow(ctx, `
		SELECT id, room_id, name, is_host, joined_at
		FROM participants
		WHERE id = $1
	`, id).Scan(&p.ID, &p.RoomID, &p.Name, &p.IsHost, &p.JoinedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("participant %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}
	return &p, nil
}
