package repository

import (
	"time"

	"drowsyguard/internal/model"
)

// SessionRepository stores the journal of monitoring sessions.
type SessionRepository interface {
	// Create operations
	Insert(rec *model.SessionRecord) error

	// Update operations
	Finish(id string, stoppedAt time.Time, alertCount int) error

	// Read operations
	GetByID(id string) (*model.SessionRecord, error)
	GetAll(limit int) ([]model.SessionRecord, error)

	// Delete operations
	DeleteAll() error
}

// AlertRepository stores alerts raised during sessions.
type AlertRepository interface {
	// Create operations
	Insert(a *model.AlertRecord) (int64, error)
	InsertBatch(alerts []model.AlertRecord) error

	// Read operations
	GetByFilename(filename string) (*model.AlertRecord, error)
	GetAll(filter *model.AlertFilter) ([]model.AlertRecord, error)
	GetTotalCount(filter *model.AlertFilter) (int, error)
	GetStats() (*model.JournalStats, error)

	// Delete operations
	DeleteAll() error
}

// SettingsRepository persists the last applied settings.
type SettingsRepository interface {
	// Load returns false when nothing has been saved yet.
	Load() (model.Settings, bool, error)
	Save(s model.Settings) error
}
