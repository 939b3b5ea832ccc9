package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"drowsyguard/internal/model"
)

// SessionRepository implements repository.SessionRepository for SQLite.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert adds a session that has just started.
func (r *SessionRepository) Insert(rec *model.SessionRecord) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO sessions (id, device_id, started_at, stopped_at, alert_count)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.DeviceID, rec.StartedAt, nullTime(rec.StoppedAt), rec.AlertCount)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Finish records the stop time and final alert count of a session.
func (r *SessionRepository) Finish(id string, stoppedAt time.Time, alertCount int) error {
	r.db.Lock()
	defer r.db.Unlock()

	res, err := r.db.Conn().Exec(`
		UPDATE sessions SET stopped_at = ?, alert_count = ? WHERE id = ?
	`, stoppedAt, alertCount, id)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to finish session: %s not found", id)
	}
	return nil
}

// GetByID retrieves a session by its ID. It returns nil when there is none.
func (r *SessionRepository) GetByID(id string) (*model.SessionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rec, err := scanSession(r.db.Conn().QueryRow(`
		SELECT id, device_id, started_at, stopped_at, alert_count
		FROM sessions WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return rec, nil
}

// GetAll returns sessions, newest first. limit <= 0 means no limit.
func (r *SessionRepository) GetAll(limit int) ([]model.SessionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, device_id, started_at, stopped_at, alert_count
		FROM sessions ORDER BY started_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *rec)
	}
	return sessions, rows.Err()
}

// DeleteAll removes every session and its alerts.
func (r *SessionRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM alerts`); err != nil {
		return fmt.Errorf("failed to delete alerts: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner) (*model.SessionRecord, error) {
	var rec model.SessionRecord
	var stopped sql.NullTime
	if err := s.Scan(&rec.ID, &rec.DeviceID, &rec.StartedAt, &stopped, &rec.AlertCount); err != nil {
		return nil, err
	}
	if stopped.Valid {
		t := stopped.Time
		rec.StoppedAt = &t
	}
	return &rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
