package handler

import (
	"context"
	"fmt"
	"net/http"

	"drowsyguard/internal/dto"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	"drowsyguard/internal/service/session"
	"drowsyguard/internal/service/settings"
)

// SessionController is the part of the session controller used over HTTP.
type SessionController interface {
	Start(ctx context.Context, s model.Settings) (session.Handle, error)
	Stop(h session.Handle)
	Current() (session.Handle, bool)
	Snapshot() session.Snapshot
}

// SessionStatusHandler returns the current session snapshot.
func SessionStatusHandler(ctrl SessionController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, http.StatusOK, ctrl.Snapshot())
	}
}

// StartSessionHandler starts monitoring with the stored settings. The body may
// select a different camera for this session.
func StartSessionHandler(ctrl SessionController, store *settings.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req dto.StartRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, logger, fmt.Errorf("%w: %v", model.ErrInvalidSettings, err))
			return
		}

		s := store.Current()
		if req.DeviceID != nil {
			s.SelectedDeviceID = *req.DeviceID
		}

		if _, err := ctrl.Start(r.Context(), s); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, ctrl.Snapshot())
	}
}

// StopSessionHandler stops the active session, if any.
func StopSessionHandler(ctrl SessionController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if h, ok := ctrl.Current(); ok {
			ctrl.Stop(h)
		}
		writeJSON(w, logger, http.StatusOK, ctrl.Snapshot())
	}
}
