package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"energy_dashboard/internal/models"

	"github.com/google/uuid"
)

type NoticeSQLite struct {
	db *sql.DB
}

func NewNoticeSQLite(db *sql.DB) *NoticeSQLite { return &NoticeSQLite{db: db} }

const sqliteTimeLayout = "2006-01-02 15:04:05"

// Append inserts one notification, filling ID and timestamp when absent.
func (r *NoticeSQLite) Append(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	} else {
		n.OccurredAt = n.OccurredAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, occurred_at, kind, message)
		VALUES (?, ?, ?, ?)
	`,
		n.ID,
		n.OccurredAt.Format(sqliteTimeLayout),
		strings.ToUpper(strings.TrimSpace(n.Kind)),
		n.Message,
	)
	return err
}

// List returns notifications within [from, to] and/or of one kind, oldest
// first.
func (r *NoticeSQLite) List(ctx context.Context, from, to time.Time, kind string) ([]models.Notification, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, from.UTC().Format(sqliteTimeLayout))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, to.UTC().Format(sqliteTimeLayout))
	}
	if kind = strings.ToUpper(strings.TrimSpace(kind)); kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, kind)
	}

	q := `SELECT id, occurred_at, kind, message FROM notifications`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Notification, 0, 32)
	for rows.Next() {
		var (
			n  models.Notification
			ts string
		)
		if err := rows.Scan(&n.ID, &ts, &n.Kind, &n.Message); err != nil {
			return nil, err
		}
		if parsed, perr := time.Parse(sqliteTimeLayout, ts); perr == nil {
			n.OccurredAt = parsed.UTC()
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
