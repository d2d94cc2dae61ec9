package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the cached view of a running table session, keyed by
// table so the occupancy lookup path avoids the database.
type ActiveSession struct {
	SessionID        string    `json:"session_id"`
	TableID          int64     `json:"table_id"`
	UserID           int64     `json:"user_id"`
	StartTime        time.Time `json:"start_time"`
	ScheduledEndTime time.Time `json:"scheduled_end_time"`
}

// Store manages the active session cache.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(tableID int64) string {
	return fmt.Sprintf("tables:active:%d", tableID)
}

// Save caches the session under its table.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.TableID), data, s.ttl).Err()
}

// Get returns the cached session for a table.
func (s *Store) Get(ctx context.Context, tableID int64) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(tableID)).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the cached session for a table.
func (s *Store) Delete(ctx context.Context, tableID int64) error {
	return s.client.Del(ctx, s.key(tableID)).Err()
}
