package route

import (
	"net/http"
	"os"
	"path/filepath"

	"drowsyguard/internal/config"
	"drowsyguard/internal/handler"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/middleware"
	"drowsyguard/internal/repository"
	"drowsyguard/internal/service/capture"
	"drowsyguard/internal/service/settings"
	"drowsyguard/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(cfg *config.Config, log *logger.Logger, ctrl handler.SessionController, store *settings.Store,
	source capture.Source, events *websocket.HubService, alertRepo repository.AlertRepository) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Session API
	mux.HandleFunc("/api/events", handler.EventsWebsocketHandler(ctrl, events, log))
	mux.HandleFunc("/api/session", handler.SessionStatusHandler(ctrl, log))
	mux.HandleFunc("/api/session/start", handler.StartSessionHandler(ctrl, store, log))
	mux.HandleFunc("/api/session/stop", handler.StopSessionHandler(ctrl, log))
	mux.HandleFunc("/api/settings", handler.SettingsHandler(store, log))
	mux.HandleFunc("/api/devices", handler.DevicesHandler(source, store, log))

	// Journal
	mux.HandleFunc("/api/alerts", handler.GetAlertsHandler(cfg, log, alertRepo))
	mux.HandleFunc("/api/alerts/image", handler.ViewAlertImageHandler(log, alertRepo))
	mux.HandleFunc("/api/alerts/clear", handler.ClearAlertsHandler(cfg, log, alertRepo))

	// Log endpoints
	for level, file := range map[string]string{
		"info":    logger.InfoFile,
		"warning": logger.WarningFile,
		"error":   logger.ErrorFile,
	} {
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(cfg, file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDirectory))

	// Apply middleware
	return middleware.AuthMiddleware(mux, cfg.AuthRequired)
}
