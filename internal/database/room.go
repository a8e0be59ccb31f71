// internal/database/room.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oscarnight/server/internal/models"
	"github.com/oscarnight/server/internal/notify"
)

// maxCodeAttempts bounds retries when a generated code collides with an
// active room. With a 31^4 code space collisions are rare.
const maxCodeAttempts = 10

// CreateRoomResult is what the create_room compound operation returns.
type CreateRoomResult struct {
	RoomID   uuid.UUID `json:"roomId"`
	RoomCode string    `json:"roomCode"`
	HostID   uuid.UUID `json:"hostId"`
}

// CreateRoom atomically creates a room in phase VOTING together with its
// host participant. With a custom code it validates the format and fails
// with ErrCodeTaken on collision; otherwise it generates codes until one
// sticks.
func (s *Store) CreateRoom(ctx context.Context, hostName, customCode string) (*CreateRoomResult, error) {
	if customCode != "" {
		code := NormalizeRoomCode(customCode)
		if err := ValidateRoomCode(code); err != nil {
			return nil, err
		}
		res, err := s.insertRoomWithHost(ctx, code, hostName)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, models.ErrCodeTaken
			}
			return nil, err
		}
		return res, nil
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		res, err := s.insertRoomWithHost(ctx, GenerateRoomCode(), hostName)
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("could not allocate a unique room code after %d attempts", maxCodeAttempts)
}

// insertRoomWithHost writes the room and its host participant in one
// transaction. Both ids are generated here so the mutual references can be
// written without a second round trip.
func (s *Store) insertRoomWithHost(ctx context.Context, code, hostName string) (*CreateRoomResult, error) {
	roomID := uuid.New()
	hostID := uuid.New()

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO rooms (id, code, host_id, phase)
			VALUES ($1, $2, $3, $4)
		`, roomID, code, hostID, models.PhaseVoting); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO participants (id, room_id, name, is_host)
			VALUES ($1, $2, $3, true)
		`, hostID, roomID, hostName)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &CreateRoomResult{RoomID: roomID, RoomCode: code, HostID: hostID}, nil
}

const roomColumns = `id, code, host_id, phase, current_category_id, created_at, updated_at`

// GetRoomByCode resolves a room by its shareable code, case-insensitively.
func (s *Store) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+roomColumns+`
		FROM rooms
		WHERE code = $1
	`, NormalizeRoomCode(code))
	return scanRoom(row)
}

// GetRoom fetches a room by ID.
func (s *Store) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+roomColumns+`
		FROM rooms
		WHERE id = $1
	`, roomID)
	return scanRoom(row)
}

// AdvancePhase moves a room to the next phase. Host identity and the
// monotonic VOTING -> LIVE -> CLOSED rule are both enforced inside the
// transaction; the caller's local pre-check is a convenience only.
func (s *Store) AdvancePhase(ctx context.Context, roomID, actorID uuid.UUID, to models.Phase) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var hostID uuid.UUID
		var phase models.Phase
		err := tx.QueryRow(ctx, `
			SELECT host_id, phase FROM rooms WHERE id = $1 FOR UPDATE
		`, roomID).Scan(&hostID, &phase)
		if err == pgx.ErrNoRows {
			return models.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if hostID != actorID {
			return models.ErrNotHost
		}
		if !phase.CanAdvanceTo(to) {
			return models.ErrPhaseViolation
		}
		_, err = tx.Exec(ctx, `
			UPDATE rooms SET phase = $2, updated_at = now() WHERE id = $1
		`, roomID, to)
		return err
	})
	if err != nil {
		return err
	}

	s.notify(ctx, roomID, notify.TableRooms)
	return nil
}

// SetCurrentCategory points the room's live view at a category, or clears it
// with nil. Host-only; independent of whether that category has a winner.
func (s *Store) SetCurrentCategory(ctx context.Context, roomID, actorID uuid.UUID, categoryID *string) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var hostID uuid.UUID
		err := tx.QueryRow(ctx, `
			SELECT host_id FROM rooms WHERE id = $1 FOR UPDATE
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
			UPDATE rooms SET current_category_id = $2, updated_at = now() WHERE id = $1
		`, roomID, categoryID)
		return err
	})
	if err != nil {
		return err
	}

	s.notify(ctx, roomID, notify.TableRooms)
	return nil
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(&r.ID, &r.Code, &r.HostID, &r.Phase, &r.CurrentCategoryID, &r.CreatedAt, &r.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, models.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}
	return &r, nil
}

// isUniqueViolation reports whether err is a postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
