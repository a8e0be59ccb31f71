// internal/handlers/server.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oscarnight/server/internal/database"
	"github.com/oscarnight/server/internal/models"
	"github.com/oscarnight/server/internal/notify"
	"github.com/oscarnight/server/internal/roomsync"
)

// Store is the persistence surface the HTTP and websocket handlers need. The
// production implementation is *database.Store; tests substitute a fake.
type Store interface {
	roomsync.Store
	CreateRoom(ctx context.Context, hostName, customCode string) (*database.CreateRoomResult, error)
	JoinRoom(ctx context.Context, code, name string, rejoinID *uuid.UUID) (*database.JoinRoomResult, error)
	GetLeaderboard(ctx context.Context, roomID uuid.UUID) ([]models.LeaderboardEntry, error)
}

// Server bundles the handlers' shared dependencies.
type Server struct {
	Store   Store
	Channel roomsync.Channel
	Logger  *logrus.Logger
}

// NewServer wires the store and notification channel into a handler set.
func NewServer(store Store, channel roomsync.Channel, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{Store: store, Channel: channel, Logger: logger}
}

// RedisChannel adapts a Redis client to the sync core's Channel interface.
type RedisChannel struct {
	rdb *redis.Client
}

// NewRedisChannel wraps a connected Redis client.
func NewRedisChannel(rdb *redis.Client) *RedisChannel {
	return &RedisChannel{rdb: rdb}
}

// SubscribeRoom opens a room's notification stream.
func (c *RedisChannel) SubscribeRoom(ctx context.Context, roomID uuid.UUID) (roomsync.Subscription, error) {
	return notify.SubscribeRoom(ctx, c.rdb, roomID)
}

// httpStatus maps domain errors onto HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrCodeTaken):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidCode), errors.Is(err, models.ErrUnknownNominee):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotHost), errors.Is(err, models.ErrPhaseViolation):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
