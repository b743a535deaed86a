package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNoSnapshot is returned by Latest when a world has never been saved.
var ErrNoSnapshot = errors.New("no snapshot")

// SnapshotRow is one stored world snapshot.
type SnapshotRow struct {
	ID       int64
	Tick     uint64
	Entities int
	Payload  []byte
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save stores a JSON snapshot payload and returns its row id.
func (r *SnapshotRepo) Save(ctx context.Context, world string, tick uint64, entities int, payload []byte) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO world_snapshots (world_name, tick, entities, payload)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		world, int64(tick), entities, payload,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return id, nil
}

// Latest loads the most recently saved snapshot of a world. Ticks restart
// with every process, so recency is the insertion order, not the tick.
func (r *SnapshotRepo) Latest(ctx context.Context, world string) (*SnapshotRow, error) {
	var (
		row  SnapshotRow
		tick int64
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, tick, entities, payload FROM world_snapshots
		 WHERE world_name = $1 ORDER BY id DESC LIMIT 1`,
		world,
	).Scan(&row.ID, &tick, &row.Entities, &row.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("latest snapshot of %s: %w", world, ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot of %s: %w", world, err)
	}
	row.Tick = uint64(tick)
	return &row, nil
}

// Prune keeps the keep most recently saved snapshots of a world and deletes
// the rest.
func (r *SnapshotRepo) Prune(ctx context.Context, world string, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM world_snapshots WHERE world_name = $1 AND id NOT IN (
			SELECT id FROM world_snapshots WHERE world_name = $1
			ORDER BY id DESC LIMIT $2)`,
		world, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
