// Package redis persists class snapshots as a single JSON value in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
)

// SnapshotStore keeps the latest snapshot under one key per class. A zero
// TTL keeps the key for the life of the server; a positive TTL lets stale
// class data age out between lessons.
type SnapshotStore struct {
	client  *redis.Client
	classID string
	ttl     time.Duration
}

func NewSnapshotStore(client *redis.Client, classID string, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, classID: classID, ttl: ttl}
}

func (s *SnapshotStore) key() string {
	return "class:snapshot:" + s.classID
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EmptySnapshot(), nil
		}
		return domain.Snapshot{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Students == nil {
		snap.Students = make(map[string]domain.StudentSnapshot)
	}
	return snap, nil
}
