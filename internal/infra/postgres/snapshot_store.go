// Package postgres persists class snapshots as JSONB rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/domain"
)

// SnapshotStore upserts one row per class in the class_snapshots table
// created by the migrate command.
type SnapshotStore struct {
	pool    *pgxpool.Pool
	classID string
}

func NewSnapshotStore(pool *pgxpool.Pool, classID string) *SnapshotStore {
	return &SnapshotStore{pool: pool, classID: classID}
}

func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO class_snapshots (class_id, data, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (class_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		s.classID, data)
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context) (domain.Snapshot, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM class_snapshots WHERE class_id = $1`, s.classID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EmptySnapshot(), nil
		}
		return domain.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Students == nil {
		snap.Students = make(map[string]domain.StudentSnapshot)
	}
	return snap, nil
}
