package prefs

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
	"github.com/Rozimuxammed/mlm-marketing/internal/logger"
	"github.com/Rozimuxammed/mlm-marketing/internal/storage"
)

func newTestStore(kv storage.Store) *Store {
	return NewStore(kv, logger.NewWithWriter("test", "error", io.Discard))
}

func TestDefaults(t *testing.T) {
	s := newTestStore(storage.NewMemoryStore())

	p := s.Current()
	assert.Equal(t, DefaultLocale, p.Locale)
	assert.Equal(t, DefaultTheme, p.Theme)
}

func TestSetLocale_PersistsAndSurvivesRestart(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()

	first := newTestStore(kv)
	p, err := first.SetLocale(ctx, "uz")
	require.NoError(t, err)
	assert.Equal(t, "uz", p.Locale)

	second := newTestStore(kv)
	second.Restore(ctx)
	assert.Equal(t, "uz", second.Current().Locale)
}

func TestSetLocale_UnknownRejected(t *testing.T) {
	s := newTestStore(storage.NewMemoryStore())

	_, err := s.SetLocale(context.Background(), "fr")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, DefaultLocale, s.Current().Locale)
}

func TestSetTheme_PersistsAndSurvivesRestart(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()

	first := newTestStore(kv)
	_, err := first.SetTheme(ctx, "dark")
	require.NoError(t, err)

	second := newTestStore(kv)
	second.Restore(ctx)
	assert.Equal(t, "dark", second.Current().Theme)
}

func TestSetTheme_UnknownRejected(t *testing.T) {
	s := newTestStore(storage.NewMemoryStore())

	_, err := s.SetTheme(context.Background(), "solarized")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRestore_UnrecognizedPersistedValueKeepsDefault(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, storage.KeyTheme, []byte("garbage")))

	s := newTestStore(kv)
	s.Restore(ctx)
	assert.Equal(t, DefaultTheme, s.Current().Theme)
}

func TestPrefs_SurviveLogoutKeys(t *testing.T) {
	// Session purge deletes only session keys; prefs use their own keys.
	kv := storage.NewMemoryStore()
	ctx := context.Background()

	s := newTestStore(kv)
	_, err := s.SetLocale(ctx, "ru")
	require.NoError(t, err)

	require.NoError(t, kv.Delete(ctx, storage.KeyCredential))
	require.NoError(t, kv.Delete(ctx, storage.KeyProfile))

	second := newTestStore(kv)
	second.Restore(ctx)
	assert.Equal(t, "ru", second.Current().Locale)
}
