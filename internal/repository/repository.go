package repository

import (
	"context"
	"database/sql"
	"time"

	"energy_dashboard/internal/models"
	"energy_dashboard/internal/repository/db"
)

// SnapshotRepo persists the single last-good dashboard snapshot.
type SnapshotRepo interface {
	Save(ctx context.Context, s models.StoredSnapshot) error
	Load(ctx context.Context) (models.StoredSnapshot, error)
}

// NoticeRepo is the append-only notification log.
type NoticeRepo interface {
	Append(ctx context.Context, n models.Notification) error
	List(ctx context.Context, from, to time.Time, kind string) ([]models.Notification, error)
}

// Repository aggregates the storage layer.
type Repository struct {
	Snapshots SnapshotRepo
	Notices   NoticeRepo
}

// NewRepository wires the SQLite implementations.
func NewRepository(sqlDB *sql.DB) *Repository {
	return &Repository{
		Snapshots: NewSnapshotSQLite(sqlDB),
		Notices:   NewNoticeSQLite(sqlDB),
	}
}

// InitDB re-exports the connection helper so main only imports this package.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}
