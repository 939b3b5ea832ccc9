package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"drowsyguard/internal/dto"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
)

const maxRequestBody = 1 << 20

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("Error encoding JSON response: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, logger *logger.Logger, err error) {
	status := http.StatusInternalServerError
	resp := dto.ErrorResponse{Error: err.Error()}

	var camErr *model.CameraError
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrInvalidSettings):
		status = http.StatusBadRequest
	case errors.As(err, &camErr):
		resp.Kind = string(camErr.Kind)
		switch camErr.Kind {
		case model.CameraPermissionDenied:
			status = http.StatusForbidden
		case model.CameraNotFound:
			status = http.StatusNotFound
		case model.CameraBusy:
			status = http.StatusConflict
		}
	}
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	}
	writeJSON(w, logger, status, resp)
}

// readJSON decodes the request body into v. An empty body leaves v untouched.
func readJSON(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return err
	}
	return nil
}
