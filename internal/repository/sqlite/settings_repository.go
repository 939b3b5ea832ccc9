package sqlite

import (
	"database/sql"
	"fmt"

	"drowsyguard/internal/model"
)

// SettingsRepository implements repository.SettingsRepository for SQLite.
// The table holds a single row.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new SQLite settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load returns the saved settings, or false when none were saved.
func (r *SettingsRepository) Load() (model.Settings, bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var s model.Settings
	var mode string
	err := r.db.Conn().QueryRow(`
		SELECT sensitivity, alert_volume, alert_mode, cadence_hz, device_id
		FROM settings WHERE id = 1
	`).Scan(&s.Sensitivity, &s.AlertVolume, &mode, &s.CadenceHz, &s.SelectedDeviceID)
	if err == sql.ErrNoRows {
		return model.Settings{}, false, nil
	}
	if err != nil {
		return model.Settings{}, false, fmt.Errorf("failed to load settings: %w", err)
	}
	s.AlertMode = model.AlertMode(mode)
	return s, true, nil
}

// Save replaces the saved settings.
func (r *SettingsRepository) Save(s model.Settings) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO settings (id, sensitivity, alert_volume, alert_mode, cadence_hz, device_id, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			sensitivity = excluded.sensitivity,
			alert_volume = excluded.alert_volume,
			alert_mode = excluded.alert_mode,
			cadence_hz = excluded.cadence_hz,
			device_id = excluded.device_id,
			updated_at = excluded.updated_at
	`, s.Sensitivity, s.AlertVolume, string(s.AlertMode), s.CadenceHz, s.SelectedDeviceID)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
