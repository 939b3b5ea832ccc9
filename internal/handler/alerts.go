package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"drowsyguard/internal/config"
	"drowsyguard/internal/dto"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	"drowsyguard/internal/repository"
)

// GetAlertsHandler returns a page of journal alerts, newest first.
func GetAlertsHandler(cfg *config.Config, logger *logger.Logger, alertRepo repository.AlertRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filters := dto.AlertFilters{
			SessionID:  q.Get("session"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
		}
		filter := &model.AlertFilter{
			SessionID: filters.SessionID,
			After:     filters.DateAfter,
			Before:    endOfDay(filters.DateBefore),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		alerts, err := alertRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying alerts from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := alertRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting alerts: %v", err)
			totalCount = len(alerts)
		}

		var totalSize int64
		if stats, err := alertRepo.GetStats(); err != nil {
			logger.Error("Error getting journal stats: %v", err)
		} else {
			totalSize = stats.TotalBytes
		}

		infos := make([]dto.AlertInfo, 0, len(alerts))
		for _, a := range alerts {
			infos = append(infos, dto.AlertInfo{
				Name:      a.Filename,
				SessionID: a.SessionID,
				Date:      a.Timestamp,
				TimeOfDay: a.Timestamp,
				HasImage:  a.Filename != "",
			})
		}

		writeJSON(w, logger, http.StatusOK, dto.AlertsData{
			Alerts:      infos,
			ImagesDir:   cfg.ImageDirectory,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

// ViewAlertImageHandler serves the snapshot named by the "name" query parameter.
func ViewAlertImageHandler(logger *logger.Logger, alertRepo repository.AlertRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if !isValidFilename(name) {
			http.Error(w, "Valid name parameter is required", http.StatusBadRequest)
			return
		}

		rec, err := alertRepo.GetByFilename(name)
		if err != nil {
			logger.Error("Error looking up snapshot %s: %v", name, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if rec == nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, rec.FilePath)
	}
}

// ClearAlertsHandler deletes every snapshot file and alert row.
func ClearAlertsHandler(cfg *config.Config, logger *logger.Logger, alertRepo repository.AlertRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		files, err := os.ReadDir(cfg.ImageDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading snapshot directory: %v", err)
			http.Error(w, "Unable to read snapshot directory", http.StatusInternalServerError)
			return
		}
		for _, file := range files {
			if !file.IsDir() {
				if err := os.Remove(filepath.Join(cfg.ImageDirectory, file.Name())); err != nil {
					logger.Error("Error deleting file %s: %v", file.Name(), err)
				}
			}
		}

		if err := alertRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing alerts: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("All alerts cleared from directory: %s", cfg.ImageDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func endOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// isValidFilename accepts bare file names only.
func isValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for _, c := range name {
		if c == 0 || c == '/' || c == '\\' {
			return false
		}
	}
	return filepath.Base(name) == name
}
