package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories builds each Store implementation against throwaway backends.
func storeFactories(t *testing.T) map[string]Store {
	t.Helper()

	bolt, err := OpenBolt(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return map[string]Store{
		"bolt":   bolt,
		"redis":  NewRedisStore(rdb),
		"memory": NewMemoryStore(),
	}
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Set(ctx, KeyCredential, []byte("tok-1")))

			got, err := store.Get(ctx, KeyCredential)
			require.NoError(t, err)
			assert.Equal(t, []byte("tok-1"), got)
		})
	}
}

func TestStore_GetMissingKey(t *testing.T) {
	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "no.such.key")
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Set(ctx, KeyLocale, []byte("en")))
			require.NoError(t, store.Set(ctx, KeyLocale, []byte("uz")))

			got, err := store.Get(ctx, KeyLocale)
			require.NoError(t, err)
			assert.Equal(t, []byte("uz"), got)
		})
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Set(ctx, KeyTheme, []byte("dark")))
			require.NoError(t, store.Delete(ctx, KeyTheme))
			require.NoError(t, store.Delete(ctx, KeyTheme))

			_, err := store.Get(ctx, KeyTheme)
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.Set(ctx, KeyCartLines, []byte("original")))

			got, err := store.Get(ctx, KeyCartLines)
			require.NoError(t, err)
			got[0] = 'X'

			again, err := store.Get(ctx, KeyCartLines)
			require.NoError(t, err)
			assert.Equal(t, []byte("original"), again)
		})
	}
}

func TestBolt_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenBolt(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyCredential, []byte("tok-1")))
	require.NoError(t, store.Close())

	reopened, err := OpenBolt(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, KeyCredential)
	require.NoError(t, err)
	assert.Equal(t, []byte("tok-1"), got)
}
