package sqlite

import (
	"database/sql"
	"fmt"

	"drowsyguard/internal/model"
)

// AlertRepository implements repository.AlertRepository for SQLite.
type AlertRepository struct {
	db *DB
}

// NewAlertRepository creates a new SQLite alert repository.
func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Insert adds a new alert record to the database.
func (r *AlertRepository) Insert(a *model.AlertRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO alerts (session_id, timestamp, filename, filepath, filesize)
		VALUES (?, ?, ?, ?, ?)
	`, a.SessionID, a.Timestamp, a.Filename, a.FilePath, a.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple alerts in a single transaction.
func (r *AlertRepository) InsertBatch(alerts []model.AlertRecord) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO alerts (session_id, timestamp, filename, filepath, filesize)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range alerts {
		if _, err := stmt.Exec(a.SessionID, a.Timestamp, a.Filename, a.FilePath, a.FileSize); err != nil {
			return fmt.Errorf("failed to insert alert: %w", err)
		}
	}

	return tx.Commit()
}

// GetByFilename retrieves an alert by its snapshot filename.
func (r *AlertRepository) GetByFilename(filename string) (*model.AlertRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var a model.AlertRecord
	err := r.db.Conn().QueryRow(`
		SELECT id, session_id, timestamp, filename, filepath, filesize
		FROM alerts WHERE filename = ? AND filename != ''
	`, filename).Scan(&a.ID, &a.SessionID, &a.Timestamp, &a.Filename, &a.FilePath, &a.FileSize)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return &a, nil
}

// where builds the WHERE clause shared by GetAll and GetTotalCount.
func where(filter *model.AlertFilter) (string, []interface{}) {
	clause := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return clause, args
	}

	if filter.SessionID != "" {
		clause += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if !filter.After.IsZero() {
		clause += " AND timestamp >= ?"
		args = append(args, filter.After)
	}
	if !filter.Before.IsZero() {
		clause += " AND timestamp <= ?"
		args = append(args, filter.Before)
	}
	return clause, args
}

// GetAll retrieves alerts matching the filter, newest first.
func (r *AlertRepository) GetAll(filter *model.AlertFilter) ([]model.AlertRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := where(filter)
	query := `SELECT id, session_id, timestamp, filename, filepath, filesize FROM alerts` + clause +
		" ORDER BY timestamp DESC, id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.AlertRecord
	for rows.Next() {
		var a model.AlertRecord
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Timestamp, &a.Filename, &a.FilePath, &a.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// GetTotalCount returns the number of alerts matching the filter.
func (r *AlertRepository) GetTotalCount(filter *model.AlertFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := where(filter)
	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM alerts`+clause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}

// GetStats summarizes the journal.
func (r *AlertRepository) GetStats() (*model.JournalStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.JournalStats{
		PerDevice: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&stats.TotalSessions); err != nil {
		return nil, err
	}
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM alerts`).Scan(&stats.TotalAlerts); err != nil {
		return nil, err
	}
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM alerts`).Scan(&stats.TotalBytes); err != nil {
		return nil, err
	}

	// Alerty per kamera
	rows, err := r.db.Conn().Query(`
		SELECT s.device_id, COUNT(a.id)
		FROM alerts a JOIN sessions s ON s.id = a.session_id
		GROUP BY s.device_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var device string
		var count int
		if err := rows.Scan(&device, &count); err != nil {
			return nil, err
		}
		if device == "" {
			device = "default"
		}
		stats.PerDevice[device] += count
	}

	return stats, rows.Err()
}

// DeleteAll removes every alert.
func (r *AlertRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM alerts`); err != nil {
		return fmt.Errorf("failed to delete alerts: %w", err)
	}
	return nil
}
