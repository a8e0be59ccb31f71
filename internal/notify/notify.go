// internal/notify/notify.go
package notify

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Table names for the four per-room notification topics. Subscribers get a
// "something changed" signal per table and re-query the store; the message
// body carries no payload worth trusting.
const (
	TableRooms        = "rooms"
	TableParticipants = "participants"
	TablePredictions  = "predictions"
	TableWinners      = "winners"
)

// Tables lists every notification topic a room subscription covers.
var Tables = []string{TableRooms, TableParticipants, TablePredictions, TableWinners}

// Topic builds the pub/sub channel name for one (room, table) pair.
func Topic(roomID uuid.UUID, table string) string {
	return fmt.Sprintf("room:%s:%s", roomID, table)
}

// Notification tells a subscriber that some row of a table changed for a room.
type Notification struct {
	RoomID uuid.UUID
	Table  string
}

// Connect initializes a Redis client from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func Connect() (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publisher fans out change notifications over Redis pub/sub.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher wraps a connected Redis client.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// Publish announces that a table changed for a room. Delivery is
// at-least-once fan-out to current subscribers; the payload is just the
// table name and must not be treated as a delta.
func (p *Publisher) Publish(ctx context.Context, roomID uuid.UUID, table string) error {
	if err := p.rdb.Publish(ctx, Topic(roomID, table), table).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", Topic(roomID, table), err)
	}
	return nil
}

// Subscription is one room's live notification stream across all four
// tables. Close releases every underlying topic exactly once; a leaked
// subscription is a defect, so callers pair every SubscribeRoom with one
// Close and may call Close redundantly without harm.
type Subscription struct {
	roomID uuid.UUID
	pubsub *redis.PubSub
	events chan Notification
	once   sync.Once
	done   chan struct{}
}

// SubscribeRoom opens the four per-table topics for a room and starts a
// goroutine translating raw messages into Notifications.
func SubscribeRoom(ctx context.Context, rdb *redis.Client, roomID uuid.UUID) (*Subscription, error) {
	topics := make([]string, len(Tables))
	for i, table := range Tables {
		topics[i] = Topic(roomID, table)
	}

	pubsub := rdb.Subscribe(ctx, topics...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe room %s: %w", roomID, err)
	}

	s := &Subscription{
		roomID: roomID,
		pubsub: pubsub,
		events: make(chan Notification, 16),
		done:   make(chan struct{}),
	}
	go s.pump()
	return s, nil
}

func (s *Subscription) pump() {
	defer close(s.events)
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			table := tableFromTopic(msg.Channel)
			if table == "" {
				continue
			}
			select {
			case s.events <- Notification{RoomID: s.roomID, Table: table}:
			case <-s.done:
				return
			}
		}
	}
}

// Events is the notification stream. It is closed after Close.
func (s *Subscription) Events() <-chan Notification {
	return s.events
}

// Close tears the subscription down. Safe to call more than once; only the
// first call releases the underlying topics.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

// tableFromTopic recovers the table name from "room:{id}:{table}".
func tableFromTopic(topic string) string {
	idx := strings.LastIndex(topic, ":")
	if idx < 0 || idx == len(topic)-1 {
		return ""
	}
	return topic[idx+1:]
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
