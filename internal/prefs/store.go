package prefs

import (
	"context"
	"log/slog"
	"sync"

	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
	"github.com/Rozimuxammed/mlm-marketing/internal/storage"
)

// Defaults for a fresh install.
const (
	DefaultLocale = "en"
	DefaultTheme  = "light"
)

var allowedThemes = map[string]bool{"light": true, "dark": true}
var allowedLocales = map[string]bool{"en": true, "ru": true, "uz": true}

// Preferences is the member's display preferences. They survive logout:
// language and theme belong to the installation, not the session.
type Preferences struct {
	Locale string `json:"locale"`
	Theme  string `json:"theme"`
}

// Store holds the preferences in memory and writes changes through to
// durable storage.
type Store struct {
	mu    sync.RWMutex
	prefs Preferences

	kv     storage.Store
	logger *slog.Logger
}

// NewStore creates a preferences store with defaults applied. Call Restore
// to hydrate persisted values.
func NewStore(kv storage.Store, logger *slog.Logger) *Store {
	return &Store{
		prefs:  Preferences{Locale: DefaultLocale, Theme: DefaultTheme},
		kv:     kv,
		logger: logger,
	}
}

// Restore loads persisted preferences. Missing or unrecognized values keep
// their defaults; Restore never fails.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data, err := s.kv.Get(ctx, storage.KeyLocale); err == nil && allowedLocales[string(data)] {
		s.prefs.Locale = string(data)
	}
	if data, err := s.kv.Get(ctx, storage.KeyTheme); err == nil && allowedThemes[string(data)] {
		s.prefs.Theme = string(data)
	}
}

// Current returns the preferences.
func (s *Store) Current() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// SetLocale switches the display language.
func (s *Store) SetLocale(ctx context.Context, locale string) (Preferences, error) {
	if !allowedLocales[locale] {
		return Preferences{}, apperrors.InvalidInput("unsupported locale: " + locale)
	}

	s.mu.Lock()
	s.prefs.Locale = locale
	p := s.prefs
	s.mu.Unlock()

	if err := s.kv.Set(ctx, storage.KeyLocale, []byte(locale)); err != nil {
		s.logger.Warn("persist locale failed", slog.String("error", err.Error()))
	}
	return p, nil
}

// SetTheme switches between light and dark.
func (s *Store) SetTheme(ctx context.Context, theme string) (Preferences, error) {
	if !allowedThemes[theme] {
		return Preferences{}, apperrors.InvalidInput("unsupported theme: " + theme)
	}

	s.mu.Lock()
	s.prefs.Theme = theme
	p := s.prefs
	s.mu.Unlock()

	if err := s.kv.Set(ctx, storage.KeyTheme, []byte(theme)); err != nil {
		s.logger.Warn("persist theme failed", slog.String("error", err.Error()))
	}
	return p, nil
}
