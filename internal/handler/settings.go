package handler

import (
	"fmt"
	"net/http"

	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	"drowsyguard/internal/service/settings"
)

// SettingsHandler serves GET (current settings) and POST (apply). A POST body
// may carry only the fields to change.
func SettingsHandler(store *settings.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, logger, http.StatusOK, store.Current())

		case http.MethodPost:
			next := store.Current()
			if err := readJSON(r, &next); err != nil {
				writeError(w, logger, fmt.Errorf("%w: %v", model.ErrInvalidSettings, err))
				return
			}
			if err := store.Apply(r.Context(), next); err != nil {
				writeError(w, logger, err)
				return
			}
			logger.Info("Settings updated: sensitivity %d, volume %d, mode %s, %.2f Hz",
				next.Sensitivity, next.AlertVolume, next.AlertMode, next.CadenceHz)
			writeJSON(w, logger, http.StatusOK, store.Current())

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
