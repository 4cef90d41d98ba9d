// Package redis persists the station snapshot so a restarted process can
// serve bike data before its first successful feed fetch. The in-memory
// cache stays authoritative: every write here is best effort.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/velodash/velodash/internal/stations"
)

// SnapshotTTL bounds how stale a warm-start snapshot may be.
const SnapshotTTL = 24 * time.Hour

// Store wraps a Redis client for snapshot persistence
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// SaveSnapshot serializes and stores the snapshot with a TTL
func (s *Store) SaveSnapshot(ctx context.Context, snap *stations.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, KeySnapshot, data, SnapshotTTL).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot retrieves the stored snapshot. Returns (nil, nil) when no
// snapshot is present.
func (s *Store) LoadSnapshot(ctx context.Context) (*stations.Snapshot, error) {
	data, err := s.client.Get(ctx, KeySnapshot).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap stations.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Close releases the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}
