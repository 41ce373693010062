package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Query limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Entry is one recorded feedback update.
type Entry struct {
	ID          int64     `json:"id"`
	CoreID      string    `json:"core_id"`
	Component   string    `json:"component"`
	Control     string    `json:"control"`
	Value       float64   `json:"value"`
	Position    float64   `json:"position"`
	StringValue string    `json:"string"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Repository persists feedback entries.
type Repository interface {
	// Record stores an entry.
	Record(ctx context.Context, e Entry) error

	// GetHistory returns the newest entries for one control, newest first.
	GetHistory(ctx context.Context, component, control string, limit int) ([]Entry, error)

	// Prune deletes entries recorded before cutoff and reports how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteRepository implements Repository on the control_history table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on a migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record stores an entry. A zero RecordedAt is stamped with the current time.
func (r *SQLiteRepository) Record(ctx context.Context, e Entry) error {
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO control_history
			(core_id, component, control, value, position, string_value, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.CoreID, e.Component, e.Control,
		e.Value, e.Position, e.StringValue,
		e.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording %s/%s: %w", e.Component, e.Control, err)
	}
	return nil
}

// GetHistory returns up to limit entries for component/control, newest
// first. limit <= 0 selects DefaultLimit; larger values are capped at MaxLimit.
func (r *SQLiteRepository) GetHistory(ctx context.Context, component, control string, limit int) ([]Entry, error) {
	if component == "" || control == "" {
		return nil, ErrInvalidQuery
	}
	limit = clampLimit(limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, core_id, component, control, value, position, string_value, recorded_at
		FROM control_history
		WHERE component = ? AND control = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`,
		component, control, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recordedAt int64
		if err := rows.Scan(&e.ID, &e.CoreID, &e.Component, &e.Control,
			&e.Value, &e.Position, &e.StringValue, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.RecordedAt = time.UnixMilli(recordedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries recorded before cutoff.
func (r *SQLiteRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM control_history WHERE recorded_at < ?`,
		cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return n, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
