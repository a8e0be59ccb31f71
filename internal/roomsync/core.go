// internal/roomsync/core.go
package roomsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oscarnight/server/internal/catalog"
	"github.com/oscarnight/server/internal/models"
	"github.com/oscarnight/server/internal/notify"
	"github.com/oscarnight/server/internal/scoring"
	"github.com/oscarnight/server/internal/session"
)

// Store is what the core needs from the persistent store.
type Store interface {
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
	GetParticipants(ctx context.Context, roomID uuid.UUID) ([]models.Participant, error)
	GetRoomPredictions(ctx context.Context, roomID uuid.UUID) ([]models.Prediction, error)
	GetWinners(ctx context.Context, roomID uuid.UUID) ([]models.Winner, error)
	SavePrediction(ctx context.Context, participantID, roomID uuid.UUID, categoryID, nomineeID string) error
	AdvancePhase(ctx context.Context, roomID, actorID uuid.UUID, to models.Phase) error
	DeclareWinner(ctx context.Context, roomID, actorID uuid.UUID, categoryID, nomineeID string) error
	SetCurrentCategory(ctx context.Context, roomID, actorID uuid.UUID, categoryID *string) error
}

// Subscription is a live notification stream for one room. Events is closed
// once the subscription ends; Close must be safe to call more than once.
type Subscription interface {
	Events() <-chan notify.Notification
	Close() error
}

// Channel opens per-room notification subscriptions.
type Channel interface {
	SubscribeRoom(ctx context.Context, roomID uuid.UUID) (Subscription, error)
}

// Snapshot is the core's current view of a room, handed to OnChange after
// every state change. All fields are copies; callers may keep them.
type Snapshot struct {
	Room          *models.Room              `json:"room"`
	Participants  []models.Participant      `json:"participants"`
	Predictions   []models.Prediction       `json:"predictions"`
	MyPredictions map[string]string         `json:"my_predictions"`
	Winners       []models.Winner           `json:"winners"`
	Leaderboard   []models.LeaderboardEntry `json:"leaderboard"`
	Complete      bool                      `json:"complete"`
}

// tableFetch tracks one table's re-read generations so races between
// overlapping reads are explicit rather than implied by callback ordering.
type tableFetch struct {
	issued  uint64 // generation of the most recently started read
	applied uint64 // generation of the most recently applied read
}

// Config wires a core to its collaborators.
type Config struct {
	Store    Store
	Channel  Channel
	Catalog  *catalog.Catalog
	Self     *session.Session // nil for a spectator with no identity
	Logger   *logrus.Entry
	OnChange func(Snapshot)
}

// Core keeps one client's view of a room consistent with the store. All
// mutation intents go through it: role/phase violations fail fast locally,
// writes are applied optimistically where the contract says so, and every
// change notification triggers an authoritative re-read of the affected
// table which replaces the local copy wholesale.
type Core struct {
	store    Store
	channel  Channel
	catalog  *catalog.Catalog
	self     *session.Session
	log      *logrus.Entry
	onChange func(Snapshot)

	mu      sync.Mutex
	snap    Snapshot
	loaded  bool
	closed  bool
	fetches map[string]*tableFetch
	sub     Subscription
}

// New builds a core. Catalog defaults to the compiled-in nominations list.
func New(cfg Config) *Core {
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Core{
		store:    cfg.Store,
		channel:  cfg.Channel,
		catalog:  cat,
		self:     cfg.Self,
		log:      logger,
		onChange: cfg.OnChange,
		fetches:  make(map[string]*tableFetch, len(notify.Tables)),
	}
	for _, table := range notify.Tables {
		c.fetches[table] = &tableFetch{}
	}
	return c
}

// Load resolves the room by code and reads the full initial state. It is
// all-or-nothing: on any fault nothing of the previous snapshot changes and
// the caller gets ErrRoomNotFound or a wrapped ErrLoadFailed.
func (c *Core) Load(ctx context.Context, roomCode string) error {
	room, err := c.store.GetRoomByCode(ctx, roomCode)
	if err != nil {
		if errors.Is(err, models.ErrRoomNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrLoadFailed, err)
	}

	participants, err := c.store.GetParticipants(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrLoadFailed, err)
	}
	winners, err := c.store.GetWinners(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrLoadFailed, err)
	}
	predictions, err := c.store.GetRoomPredictions(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrLoadFailed, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.snap.Room = room
	c.snap.Participants = participants
	c.snap.Winners = winners
	c.snap.Predictions = predictions
	c.snap.MyPredictions = c.myPredictionsLocked()
	c.loaded = true
	c.recomputeLocked()
	out := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(out)
	return nil
}

// Subscribe opens the room's four table subscriptions and starts consuming
// notifications. If a previous subscription exists (room changed), it is
// released first, so every subscribe is paired with exactly one teardown.
func (c *Core) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if !c.loaded {
		c.mu.Unlock()
		return fmt.Errorf("subscribe before load")
	}
	roomID := c.snap.Room.ID
	old := c.sub
	c.sub = nil
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	sub, err := c.channel.SubscribeRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrLoadFailed, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	c.sub = sub
	c.mu.Unlock()

	go c.consume(ctx, sub)
	return nil
}

// consume re-reads a table whenever its notification arrives. Notifications
// are processed one at a time, so intents and change handling never run
// concurrently with each other for this subscription.
func (c *Core) consume(ctx context.Context, sub Subscription) {
	for n := range sub.Events() {
		c.Refetch(ctx, n.Table)
	}
}

// Refetch performs the authoritative re-read of one table and replaces the
// local copy. Overlapping re-reads of the same table are resolved by
// generation: a read only applies if no later read has applied already, so
// the most recently issued read wins and a slow stale response is dropped.
func (c *Core) Refetch(ctx context.Context, table string) {
	c.mu.Lock()
	if c.closed || !c.loaded {
		c.mu.Unlock()
		return
	}
	f, ok := c.fetches[table]
	if !ok {
		c.mu.Unlock()
		c.log.Warnf("notification for unknown table %q ignored", table)
		return
	}
	roomID := c.snap.Room.ID
	f.issued++
	gen := f.issued
	c.mu.Unlock()

	var (
		room         *models.Room
		participants []models.Participant
		predictions  []models.Prediction
		winners      []models.Winner
		err          error
	)
	switch table {
	case notify.TableRooms:
		room, err = c.store.GetRoom(ctx, roomID)
	case notify.TableParticipants:
		participants, err = c.store.GetParticipants(ctx, roomID)
	case notify.TablePredictions:
		predictions, err = c.store.GetRoomPredictions(ctx, roomID)
	case notify.TableWinners:
		winners, err = c.store.GetWinners(ctx, roomID)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		// The next notification re-reads unconditionally, so a failed
		// re-read heals itself; nothing local is invalidated.
		c.log.Warnf("re-read of %s failed: %v", table, err)
		return
	}
	if gen <= f.applied {
		c.mu.Unlock()
		return
	}
	f.applied = gen

	switch table {
	case notify.TableRooms:
		c.snap.Room = room
	case notify.TableParticipants:
		c.snap.Participants = participants
	case notify.TablePredictions:
		c.snap.Predictions = predictions
		c.snap.MyPredictions = c.myPredictionsLocked()
	case notify.TableWinners:
		c.snap.Winners = winners
	}
	c.recomputeLocked()
	out := c.snapshotLocked()
	c.mu.Unlock()

	c.emit(out)
}

// Vote records the caller's pick for a category: applied to local state
// immediately, then written through. On write failure the optimistic entry
// is removed outright (not reverted) and the error is surfaced once; there
// is no automatic retry.
func (c *Core) Vote(ctx context.Context, categoryID, nomineeID string) error {
	c.mu.Lock()
	if c.closed || !c.loaded {
		c.mu.Unlock()
		return fmt.Errorf("room not loaded")
	}
	if c.self == nil {
		c.mu.Unlock()
		return models.ErrNoSession
	}
	// Voting is for guests; the host runs the ceremony. Room data, not the
	// cached session flag, decides who the host is.
	if c.snap.Room.HostID == c.self.ParticipantID {
		c.mu.Unlock()
		return models.ErrPhaseViolation
	}
	if c.snap.Room.Phase != models.PhaseVoting {
		c.mu.Unlock()
		return models.ErrPhaseViolation
	}
	if !c.catalog.HasNominee(categoryID, nomineeID) {
		c.mu.Unlock()
		return models.ErrUnknownNominee
	}

	roomID := c.snap.Room.ID
	participantID := c.self.ParticipantID
	c.applyPredictionLocked(participantID, roomID, categoryID, nomineeID)
	c.recomputeLocked()
	out := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(out)

	if err := c.store.SavePrediction(ctx, participantID, roomID, categoryID, nomineeID); err != nil {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil
		}
		c.removePredictionLocked(participantID, categoryID)
		c.recomputeLocked()
		rolled := c.snapshotLocked()
		c.mu.Unlock()
		c.emit(rolled)

		c.log.WithFields(logrus.Fields{
			"category_id": categoryID,
			"nominee_id":  nomineeID,
		}).Warnf("vote write failed, rolled back: %v", err)
		return wrapWrite(err)
	}
	return nil
}

// StartCeremony moves the room from VOTING to LIVE. Host-only; a no-op
// error when the phase has already advanced.
func (c *Core) StartCeremony(ctx context.Context) error {
	return c.advancePhase(ctx, models.PhaseVoting, models.PhaseLive)
}

// EndCeremony moves the room from LIVE to its terminal CLOSED phase.
func (c *Core) EndCeremony(ctx context.Context) error {
	return c.advancePhase(ctx, models.PhaseLive, models.PhaseClosed)
}

func (c *Core) advancePhase(ctx context.Context, from, to models.Phase) error {
	c.mu.Lock()
	if c.closed || !c.loaded {
		c.mu.Unlock()
		return fmt.Errorf("room not loaded")
	}
	if c.self == nil {
		c.mu.Unlock()
		return models.ErrNoSession
	}
	if c.snap.Room.HostID != c.self.ParticipantID {
		c.mu.Unlock()
		return models.ErrNotHost
	}
	if c.snap.Room.Phase != from {
		c.mu.Unlock()
		return models.ErrPhaseViolation
	}
	roomID := c.snap.Room.ID
	actorID := c.self.ParticipantID
	c.mu.Unlock()

	// No optimistic phase flip: the authoritative rooms re-read flips it
	// for every client at once, this one included.
	return wrapWrite(c.store.AdvancePhase(ctx, roomID, actorID, to))
}

// DeclareWinner upserts the outcome for a category. Host-only and
// idempotent; declaring again overwrites the earlier nominee.
func (c *Core) DeclareWinner(ctx context.Context, categoryID, nomineeID string) error {
	c.mu.Lock()
	if c.closed || !c.loaded {
		c.mu.Unlock()
		return fmt.Errorf("room not loaded")
	}
	if c.self == nil {
		c.mu.Unlock()
		return models.ErrNoSession
	}
	if c.snap.Room.HostID != c.self.ParticipantID {
		c.mu.Unlock()
		return models.ErrNotHost
	}
	if !c.catalog.HasNominee(categoryID, nomineeID) {
		c.mu.Unlock()
		return models.ErrUnknownNominee
	}
	roomID := c.snap.Room.ID
	actorID := c.self.ParticipantID
	c.mu.Unlock()

	return wrapWrite(c.store.DeclareWinner(ctx, roomID, actorID, categoryID, nomineeID))
}

// SetCurrentCategory navigates the live view; nil clears it. Host-only and
// independent of whether the category already has a winner.
func (c *Core) SetCurrentCategory(ctx context.Context, categoryID *string) error {
	c.mu.Lock()
	if c.closed || !c.loaded {
		c.mu.Unlock()
		return fmt.Errorf("room not loaded")
	}
	if c.self == nil {
		c.mu.Unlock()
		return models.ErrNoSession
	}
	if c.snap.Room.HostID != c.self.ParticipantID {
		c.mu.Unlock()
		return models.ErrNotHost
	}
	if categoryID != nil && !c.catalog.HasCategory(*categoryID) {
		c.mu.Unlock()
		return models.ErrUnknownNominee
	}
	roomID := c.snap.Room.ID
	actorID := c.self.ParticipantID
	c.mu.Unlock()

	return wrapWrite(c.store.SetCurrentCategory(ctx, roomID, actorID, categoryID))
}

// Snapshot returns a copy of the current view.
func (c *Core) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close tears the core down: the subscription is released exactly once and
// results of requests issued before teardown are no longer acted on.
func (c *Core) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		_ = sub.Close()
	}
}

// applyPredictionLocked upserts the optimistic entry into both the room-wide
// slice and the caller's own map.
func (c *Core) applyPredictionLocked(participantID, roomID uuid.UUID, categoryID, nomineeID string) {
	if c.snap.MyPredictions == nil {
		c.snap.MyPredictions = make(map[string]string)
	}
	c.snap.MyPredictions[categoryID] = nomineeID
	for i := range c.snap.Predictions {
		p := &c.snap.Predictions[i]
		if p.ParticipantID == participantID && p.CategoryID == categoryID {
			p.NomineeID = nomineeID
			p.UpdatedAt = time.Now()
			return
		}
	}
	c.snap.Predictions = append(c.snap.Predictions, models.Prediction{
		ID:            uuid.New(),
		ParticipantID: participantID,
		RoomID:        roomID,
		CategoryID:    categoryID,
		NomineeID:     nomineeID,
		UpdatedAt:     time.Now(),
	})
}

// removePredictionLocked drops the entry for (participant, category). Used
// by vote rollback: a failed write leaves no pick, it does not restore an
// older one.
func (c *Core) removePredictionLocked(participantID uuid.UUID, categoryID string) {
	delete(c.snap.MyPredictions, categoryID)
	for i := range c.snap.Predictions {
		p := c.snap.Predictions[i]
		if p.ParticipantID == participantID && p.CategoryID == categoryID {
			c.snap.Predictions = append(c.snap.Predictions[:i], c.snap.Predictions[i+1:]...)
			return
		}
	}
}

// myPredictionsLocked rebuilds the caller's category -> nominee map from the
// authoritative room-wide rows.
func (c *Core) myPredictionsLocked() map[string]string {
	mine := make(map[string]string)
	if c.self == nil {
		return mine
	}
	for _, p := range c.snap.Predictions {
		if p.ParticipantID == c.self.ParticipantID {
			mine[p.CategoryID] = p.NomineeID
		}
	}
	return mine
}

// recomputeLocked rebuilds every derived value from scratch. Nothing is
// patched incrementally, so a coalesced or missed notification cannot leave
// the leaderboard drifting from its inputs.
func (c *Core) recomputeLocked() {
	c.snap.Leaderboard = scoring.Leaderboard(c.snap.Participants, c.snap.Predictions, c.snap.Winners)
	c.snap.Complete = scoring.Complete(c.snap.Winners, c.catalog.CategoryCount())
}

// snapshotLocked copies the snapshot so emitted values are detached from
// later mutation.
func (c *Core) snapshotLocked() Snapshot {
	out := Snapshot{
		Participants: append([]models.Participant(nil), c.snap.Participants...),
		Predictions:  append([]models.Prediction(nil), c.snap.Predictions...),
		Winners:      append([]models.Winner(nil), c.snap.Winners...),
		Leaderboard:  append([]models.LeaderboardEntry(nil), c.snap.Leaderboard...),
		Complete:     c.snap.Complete,
	}
	if c.snap.Room != nil {
		room := *c.snap.Room
		out.Room = &room
	}
	out.MyPredictions = make(map[string]string, len(c.snap.MyPredictions))
	for k, v := range c.snap.MyPredictions {
		out.MyPredictions[k] = v
	}
	return out
}

func (c *Core) emit(snap Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}

// wrapWrite maps store faults into the error taxonomy: domain sentinels pass
// through, everything else becomes a wrapped ErrWriteFailed.
func wrapWrite(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrNotHost) ||
		errors.Is(err, models.ErrPhaseViolation) ||
		errors.Is(err, models.ErrRoomNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrWriteFailed, err)
}
