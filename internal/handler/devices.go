package handler

import (
	"net/http"

	"drowsyguard/internal/dto"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/service/capture"
	"drowsyguard/internal/service/settings"
)

// DevicesHandler lists the cameras that can be selected. The first one is the
// default used when no camera is selected.
func DevicesHandler(source capture.Source, store *settings.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		devices, err := source.ListDevices()
		if err != nil {
			writeError(w, logger, err)
			return
		}

		data := dto.DevicesData{
			Devices:  make([]dto.DeviceInfo, 0, len(devices)),
			Selected: store.Current().SelectedDeviceID,
		}
		for i, d := range devices {
			data.Devices = append(data.Devices, dto.DeviceInfo{ID: d.ID, Label: d.Label, IsDefault: i == 0})
		}
		writeJSON(w, logger, http.StatusOK, data)
	}
}
