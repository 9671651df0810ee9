package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"energy_dashboard/internal/models"
)

type SnapshotSQLite struct {
	db *sql.DB
}

func NewSnapshotSQLite(db *sql.DB) *SnapshotSQLite {
	return &SnapshotSQLite{db: db}
}

const (
	snapshotRowID = 1

	upsertSnapshotSQL = `
		INSERT INTO dashboard_snapshot (id, mode, stats, rates, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			stats=excluded.stats,
			rates=excluded.rates,
			updated_at=excluded.updated_at
	`

	selectSnapshotSQL = `
		SELECT id, mode, stats, rates, updated_at
		FROM dashboard_snapshot WHERE id=?
	`
)

// Save upserts the single snapshot row (id always 1). Stats and rates are
// stored as JSON; timestamps as UTC.
func (r *SnapshotSQLite) Save(ctx context.Context, s models.StoredSnapshot) error {
	statsJSON, err := json.Marshal(s.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	ratesJSON, err := json.Marshal(s.Rates)
	if err != nil {
		return fmt.Errorf("marshal rates: %w", err)
	}

	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}

	_, err = r.db.ExecContext(ctx, upsertSnapshotSQL,
		snapshotRowID,
		string(s.Mode),
		string(statsJSON),
		string(ratesJSON),
		ts,
	)
	return err
}

// Load fetches the snapshot row. A missing row returns a zero snapshot with
// no error, so a fresh install starts clean.
func (r *SnapshotSQLite) Load(ctx context.Context) (models.StoredSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectSnapshotSQL, snapshotRowID)

	var (
		s         models.StoredSnapshot
		mode      string
		statsJSON string
		ratesJSON string
	)
	if err := row.Scan(&s.ID, &mode, &statsJSON, &ratesJSON, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.StoredSnapshot{}, nil
		}
		return models.StoredSnapshot{}, err
	}
	s.Mode = models.Mode(mode)
	if err := json.Unmarshal([]byte(statsJSON), &s.Stats); err != nil {
		return models.StoredSnapshot{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	if err := json.Unmarshal([]byte(ratesJSON), &s.Rates); err != nil {
		return models.StoredSnapshot{}, fmt.Errorf("unmarshal rates: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
