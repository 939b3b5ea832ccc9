// Package settings holds the user settings applied to monitoring sessions.
package settings

import (
	"context"
	"fmt"
	"sync"

	"drowsyguard/internal/auth"
	"drowsyguard/internal/config"
	"drowsyguard/internal/logger"
	"drowsyguard/internal/model"
	"drowsyguard/internal/repository"
)

// Listener is called after settings have been applied.
type Listener func(ctx context.Context, s model.Settings)

// Store validates, persists and distributes settings.
type Store struct {
	mu        sync.RWMutex
	current   model.Settings
	listeners []Listener

	repo   repository.SettingsRepository
	guard  auth.Guard
	logger *logger.Logger
}

// Defaults builds settings from the configuration, falling back to
// model.DefaultSettings for values that do not validate.
func Defaults(cfg *config.Config) model.Settings {
	s := model.Settings{
		Sensitivity:      cfg.Sensitivity,
		AlertVolume:      cfg.AlertVolume,
		AlertMode:        model.AlertMode(cfg.AlertMode),
		CadenceHz:        cfg.CadenceHz,
		SelectedDeviceID: cfg.CameraDevice,
	}
	if err := s.Validate(); err != nil {
		d := model.DefaultSettings()
		d.SelectedDeviceID = cfg.CameraDevice
		return d
	}
	return s
}

// NewStore creates a store starting from defaults. repo may be nil.
func NewStore(defaults model.Settings, repo repository.SettingsRepository, guard auth.Guard, logger *logger.Logger) *Store {
	if guard == nil {
		guard = auth.Open{}
	}
	return &Store{current: defaults, repo: repo, guard: guard, logger: logger}
}

// Load replaces the current settings with the persisted ones, if any.
// Persisted settings that no longer validate are ignored.
func (s *Store) Load() error {
	if s.repo == nil {
		return nil
	}
	saved, ok, err := s.repo.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if !ok {
		return nil
	}
	if err := saved.Validate(); err != nil {
		s.logger.Warning("Ignoring saved settings: %v", err)
		return nil
	}

	s.mu.Lock()
	s.current = saved
	s.mu.Unlock()
	s.logger.Info("Loaded saved settings")
	return nil
}

// Current returns the settings in effect.
func (s *Store) Current() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Apply authorizes, validates and persists settings, then notifies listeners.
// Nothing changes when any step fails.
func (s *Store) Apply(ctx context.Context, settings model.Settings) error {
	if err := s.guard.Authorize(ctx); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.Save(settings); err != nil {
			return fmt.Errorf("failed to persist settings: %w", err)
		}
	}

	s.mu.Lock()
	s.current = settings
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(ctx, settings)
	}
	return nil
}

// Subscribe registers a listener for applied settings.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}
