package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"drowsyguard/internal/auth"
	"drowsyguard/internal/config"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	"drowsyguard/internal/repository/sqlite"
	"drowsyguard/internal/route"
	"drowsyguard/internal/service/alert"
	"drowsyguard/internal/service/capture/webcam"
	"drowsyguard/internal/service/detection"
	"drowsyguard/internal/service/encoder"
	"drowsyguard/internal/service/session"
	"drowsyguard/internal/service/settings"
	"drowsyguard/internal/service/storage"
	"drowsyguard/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	journal    *storage.Journal
	hubService *websocket.HubService
	controller *session.Controller
	settings   *settings.Store
	server     *http.Server
}

// NewApp loads configuration and wires every service.
func NewApp() (*App, error) {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, err
	}

	sessionRepo := sqlite.NewSessionRepository(db)
	alertRepo := sqlite.NewAlertRepository(db)
	guard := auth.New(cfg.AuthRequired)

	store := settings.NewStore(settings.Defaults(cfg), sqlite.NewSettingsRepository(db), guard, log)
	if err := store.Load(); err != nil {
		log.Warning("Using default settings: %v", err)
	}

	hub := websocket.NewHubService(log)
	journal := storage.NewJournal(cfg, log, sessionRepo, alertRepo)
	source := webcam.NewSource(cfg.MaxCameraDevices, log)
	for idx, label := range cfg.CameraLabels {
		source.SetLabel(idx, label)
	}

	ctrl := session.NewController(session.Options{
		Source:        source,
		Encoder:       encoder.New(encoder.DefaultQuality),
		Detector:      detection.NewClient(cfg, log),
		Notifier:      hub,
		Alerter:       alert.NewService(hub, os.Stdout, log),
		Recorder:      journal,
		Guard:         guard,
		Logger:        log,
		DetectTimeout: cfg.DetectionTimeout,
	})

	// zmiana ustawień od razu trafia do aktywnej sesji
	store.Subscribe(func(ctx context.Context, s model.Settings) {
		h, ok := ctrl.Current()
		if !ok {
			return
		}
		if err := ctrl.Reconfigure(ctx, h, s); err != nil {
			log.Error("Failed to reconfigure session %s: %v", h.SessionID, err)
		}
	})

	router := route.SetupRoutes(cfg, log, ctrl, store, source, hub, alertRepo)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		journal:    journal,
		hubService: hub,
		controller: ctrl,
		settings:   store,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves HTTP until ctx is cancelled, then stops the session, releases the
// camera and flushes the journal.
func (a *App) Run(ctx context.Context) error {
	bgCtx, cancelBg := context.WithCancel(context.Background())
	journalDone := make(chan struct{})
	go func() {
		a.journal.Run(bgCtx)
		close(journalDone)
	}()
	go a.hubService.Run(bgCtx)

	fmt.Printf("😴 Drowsiness Monitor\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🔍 Detection service: %s\n", a.config.DetectionURL)
	fmt.Printf("📁 Snapshots: %s\n", a.config.ImageDirectory)
	if a.config.AuthRequired {
		fmt.Printf("🔑 Password: %s\n", a.config.Password)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown failed: %v", err)
	}

	a.controller.Close()
	cancelBg()
	<-journalDone

	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Close()
	return serveErr
}
