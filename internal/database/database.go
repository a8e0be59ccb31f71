// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Notifier fans a "table changed" signal out to room subscribers after a
// successful write. Publishing happens here, at the store boundary, so every
// mutation path notifies the same way the hosted realtime layer would.
type Notifier interface {
	Publish(ctx context.Context, roomID uuid.UUID, table string) error
}

// Store is the persistent store for rooms, participants, predictions and
// winners, backed by postgres.
type Store struct {
	pool     *pgxpool.Pool
	notifier Notifier
}

// New wraps a connected pool. notifier may be nil (tests, migrations).
func New(pool *pgxpool.Pool, notifier Notifier) *Store {
	return &Store{pool: pool, notifier: notifier}
}

// Connect builds a pgx pool from the POSTGRES_* environment variables and
// verifies connectivity.
func Connect(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return pool, nil
}

// notify publishes a change signal, logging rather than failing the write:
// the data is already durable, and subscribers re-read on their next signal.
func (s *Store) notify(ctx context.Context, roomID uuid.UUID, table string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, roomID, table); err != nil {
		log.WithFields(log.Fields{
			"room_id": roomID,
			"table":   table,
		}).Warnf("failed to publish change notification: %v", err)
	}
}
