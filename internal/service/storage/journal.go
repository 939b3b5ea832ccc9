// Package storage keeps the session journal and the alert snapshots.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"drowsyguard/internal/config"
	"drowsyguard/internal/dto"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	"drowsyguard/internal/repository"
)

const (
	// DefaultSnapshotLimit caps how many alert frames of one session are saved.
	DefaultSnapshotLimit = 20
	// DefaultFlushInterval is how often buffered snapshots are written out.
	DefaultFlushInterval = 30 * time.Second

	timestampFormat = "2006-01-02_15-04-05.000"
)

// Journal records sessions and alerts. Alert frames are buffered in memory and
// flushed to disk with their journal rows by Run or Flush.
type Journal struct {
	imagesDir     string
	limit         int
	flushInterval time.Duration

	mu        sync.Mutex
	snapshots []dto.BufferedSnapshot
	// frames kept per session, cleared when the session stops
	bufferCount map[string]int

	logger    *logger.Logger
	sessions  repository.SessionRepository
	alertRepo repository.AlertRepository
}

// NewJournal creates a Journal writing frames to cfg.ImageDirectory.
func NewJournal(cfg *config.Config, logger *logger.Logger, sessions repository.SessionRepository, alerts repository.AlertRepository) *Journal {
	limit := cfg.SnapshotBufferLimit
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}
	interval := time.Duration(cfg.SnapshotFlushInterval) * time.Second
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Journal{
		imagesDir:     cfg.ImageDirectory,
		limit:         limit,
		flushInterval: interval,
		snapshots:     make([]dto.BufferedSnapshot, 0),
		bufferCount:   make(map[string]int),
		logger:        logger,
		sessions:      sessions,
		alertRepo:     alerts,
	}
}

// Run flushes the buffer periodically until ctx is done, then flushes once more.
func (j *Journal) Run(ctx context.Context) {
	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Flush()
		case <-ctx.Done():
			j.Flush()
			return
		}
	}
}

// SessionStarted inserts the journal row of a new session.
func (j *Journal) SessionStarted(session model.Session, deviceID string) {
	rec := &model.SessionRecord{
		ID:        session.ID,
		DeviceID:  deviceID,
		StartedAt: time.Now(),
	}
	if session.StartedAt != nil {
		rec.StartedAt = *session.StartedAt
	}
	if err := j.sessions.Insert(rec); err != nil {
		j.logger.Error("Error saving session %s: %v", session.ID, err)
	}
}

// AlertRaised buffers the frame shown with the alert. Frames over the per-session
// limit are dropped, the alert itself is still journaled.
func (j *Journal) AlertRaised(sessionID string, at time.Time, image string) {
	var data []byte
	if image != "" {
		decoded, err := model.DecodeDataURL(image)
		if err != nil {
			j.logger.Warning("Alert frame of session %s is not a data URL: %v", sessionID, err)
		} else {
			data = decoded
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if data != nil && j.bufferCount[sessionID] >= j.limit {
		data = nil
	}
	if data != nil {
		j.bufferCount[sessionID]++
		j.logger.Info("Snapshot buffer for session %s: %d/%d", sessionID, j.bufferCount[sessionID], j.limit)
	}
	j.snapshots = append(j.snapshots, dto.BufferedSnapshot{Timestamp: at, SessionID: sessionID, Data: data})
}

// SessionStopped flushes pending alerts and closes the session row.
func (j *Journal) SessionStopped(sessionID string, at time.Time, alertCount int) {
	j.Flush()

	j.mu.Lock()
	delete(j.bufferCount, sessionID)
	j.mu.Unlock()

	if err := j.sessions.Finish(sessionID, at, alertCount); err != nil {
		j.logger.Error("Error closing session %s: %v", sessionID, err)
	}
}

// Flush writes buffered frames to disk and their alerts to the journal, then
// empties the buffer. Files and rows never diverge: when the image directory
// is unusable the alerts are saved without frames, and when the rows cannot be
// saved the files written by this flush are removed.
func (j *Journal) Flush() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.snapshots) == 0 {
		return
	}
	defer func() { j.snapshots = j.snapshots[:0] }()

	dirOK := true
	if err := os.MkdirAll(j.imagesDir, 0755); err != nil {
		j.logger.Error("Error creating directory, saving alerts without snapshots: %v", err)
		dirOK = false
	}

	records := make([]model.AlertRecord, 0, len(j.snapshots))
	var written []string
	for i, snap := range j.snapshots {
		rec := model.AlertRecord{SessionID: snap.SessionID, Timestamp: snap.Timestamp}

		if dirOK && len(snap.Data) > 0 {
			// indeks chroni przed kolizją nazw w tej samej milisekundzie
			filename := fmt.Sprintf("%s_%s_%d.jpg", snap.Timestamp.Format(timestampFormat), shortID(snap.SessionID), i)
			fullpath := filepath.Join(j.imagesDir, filename)

			if err := os.WriteFile(fullpath, snap.Data, 0644); err != nil {
				j.logger.Error("Error saving snapshot %s: %v", filename, err)
			} else {
				rec.Filename = filename
				rec.FilePath = fullpath
				rec.FileSize = int64(len(snap.Data))
				written = append(written, fullpath)
			}
		}
		records = append(records, rec)
	}

	if err := j.alertRepo.InsertBatch(records); err != nil {
		j.logger.Error("Error saving %d alerts to database, removing their snapshots: %v", len(records), err)
		for _, path := range written {
			if err := os.Remove(path); err != nil {
				j.logger.Warning("Error removing snapshot %s: %v", path, err)
			}
		}
		return
	}

	j.logger.Info("Flushed %d alerts (%d snapshots) to disk", len(records), len(written))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
