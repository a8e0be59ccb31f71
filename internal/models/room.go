// internal/models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the room-wide stage gating which mutations are legal.
type Phase string

const (
	PhaseVoting Phase = "VOTING"
	PhaseLive   Phase = "LIVE"
	PhaseClosed Phase = "CLOSED"
)

// phaseRank orders phases for the monotonic-transition rule.
var phaseRank = map[Phase]int{
	PhaseVoting: 0,
	PhaseLive:   1,
	PhaseClosed: 2,
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	_, ok := phaseRank[p]
	return ok
}

// CanAdvanceTo reports whether a room may move from p to next.
// Phase only ever advances VOTING -> LIVE -> CLOSED, one step at a time.
func (p Phase) CanAdvanceTo(next Phase) bool {
	cur, ok := phaseRank[p]
	if !ok {
		return false
	}
	nxt, ok := phaseRank[next]
	if !ok {
		return false
	}
	return nxt == cur+1
}

// Room is one contest session, identified by a short shareable code.
type Room struct {
	ID                uuid.UUID `json:"id"`
	Code              string    `json:"code"`
	HostID            uuid.UUID `json:"host_id"`
	Phase             Phase     `json:"phase"`
	CurrentCategoryID *string   `json:"current_category_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Participant is a member of a room. Exactly one participant per room
// has IsHost set; it is assigned at room creation and never transferred.
type Participant struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"room_id"`
	Name     string    `json:"name"`
	IsHost   bool      `json:"is_host"`
	JoinedAt time.Time `json:"joined_at"`
}

// Prediction is a guest's pick for one category. At most one row exists
// per (participant, category); writes are last-write-wins upserts.
type Prediction struct {
	ID            uuid.UUID `json:"id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	RoomID        uuid.UUID `json:"room_id"`
	CategoryID    string    `json:"category_id"`
	NomineeID     string    `json:"nominee_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Winner is the host-declared outcome for one category in one room.
// At most one row exists per (room, category); re-declaring overwrites.
type Winner struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"room_id"`
	CategoryID  string    `json:"category_id"`
	NomineeID   string    `json:"nominee_id"`
	AnnouncedAt time.Time `json:"announced_at"`
}

// LeaderboardEntry is derived per participant, never stored.
type LeaderboardEntry struct {
	ParticipantID    uuid.UUID `json:"participant_id"`
	Name             string    `json:"name"`
	PredictionsCount int       `json:"predictions_count"`
	Score            int       `json:"score"`
}
