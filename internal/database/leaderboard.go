// internal/database/leaderboard.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/oscarnight/server/internal/models"
	"github.com/oscarnight/server/internal/scoring"
)

// GetLeaderboard computes the room's ranking server-side. It runs the same
// scoring function the sync core runs client-side, so the two can never
// disagree about the algorithm.
func (s *Store) GetLeaderboard(ctx context.Context, roomID uuid.UUID) ([]models.LeaderboardEntry, error) {
	participants, err := s.GetParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}
	predictions, err := s.GetRoomPredictions(ctx, roomID)
	if err != nil {
		return nil, err
	}
	winners, err := s.GetWinners(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return scoring.Leaderboard(participants, predictions, winners), nil
}
