// internal/scoring/scoring.go
package scoring

import (
	"sort"

	"github.com/google/uuid"
	"github.com/oscarnight/server/internal/models"
)

// Leaderboard ranks participants by correct-prediction count. It is a pure
// function of its inputs and is recomputed from scratch whenever predictions
// or winners change; nothing is patched incrementally, so a missed
// notification can never leave scores drifting.
//
// Participants must be supplied in join order. The sort is stable, so ties
// keep that order and every client ranks identically regardless of the order
// its store returned rows in.
func Leaderboard(participants []models.Participant, predictions []models.Prediction, winners []models.Winner) []models.LeaderboardEntry {
	winnerByCategory := make(map[string]string, len(winners))
	for _, w := range winners {
		winnerByCategory[w.CategoryID] = w.NomineeID
	}

	counts := make(map[uuid.UUID]int, len(participants))
	scores := make(map[uuid.UUID]int, len(participants))
	for _, p := range predictions {
		counts[p.ParticipantID]++
		if winnerByCategory[p.CategoryID] == p.NomineeID {
			scores[p.ParticipantID]++
		}
	}

	entries := make([]models.LeaderboardEntry, len(participants))
	for i, p := range participants {
		entries[i] = models.LeaderboardEntry{
			ParticipantID:    p.ID,
			Name:             p.Name,
			PredictionsCount: counts[p.ID],
			Score:            scores[p.ID],
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}

// Complete reports whether every category has a declared winner. The total
// comes from the reference catalog, not from any client-observed maximum,
// so the answer is stable even with stale winner data elsewhere.
func Complete(winners []models.Winner, categoryCount int) bool {
	return categoryCount > 0 && len(winners) >= categoryCount
}
