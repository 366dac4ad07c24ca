package cart

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rozimuxammed/mlm-marketing/internal/domain"
	apperrors "github.com/Rozimuxammed/mlm-marketing/internal/errors"
	"github.com/Rozimuxammed/mlm-marketing/internal/logger"
	"github.com/Rozimuxammed/mlm-marketing/internal/storage"
)

func testLogger() *slog.Logger {
	return logger.NewWithWriter("test", "error", io.Discard)
}

func newTestStore(kv storage.Store) *Store {
	return NewStore(kv, nil, testLogger())
}

func line(id string, priceMinor, coin int64) domain.CartLine {
	return domain.CartLine{ProductID: id, Name: "product " + id, UnitPriceMinor: priceMinor, UnitCoinPrice: coin}
}

// ============================================================================
// Mutation Tests
// ============================================================================

func TestAdd_ExampleScenario(t *testing.T) {
	s := newTestStore(storage.NewMemoryStore())
	ctx := context.Background()

	s.Add(ctx, line("p1", 1000, 20))
	s.Add(ctx, line("p2", 500, 10))
	sum := s.Add(ctx, line("p1", 1000, 20))

	assert.Len(t, sum.Lines, 2)
	assert.Equal(t, 3, sum.ItemCount)
	assert.Equal(t, int64(2500), sum.TotalMinor)
	assert.Equal(t, int64(50), sum.TotalCoin)
}

func TestSetQuantity_BelowOneRemovesLine(t *testing.T) {
	s := newTestStore(storage.NewMemoryStore())
	ctx := context.Background()

	s.Add(ctx, line("p1", 1000, 20))
	sum := s.SetQuantity(ctx, "p1", 0)

	assert.Empty(t, sum.Lines)
	assert.Equal(t, 0, sum.ItemCount)
}

func TestRemove_ClearsLineRegardlessOfQuantity(t *testing.T) {
	s := newTestStore(storage.NewMemoryStore())
	ctx := context.Background()

	s.Add(ctx, line("p1", 1000, 20))
	s.SetQuantity(ctx, "p1", 5)
	sum := s.Remove(ctx, "p1")

	assert.Empty(t, sum.Lines)
}

func TestClear_EmptiesEverything(t *testing.T) {
	s := newTestStore(storage.NewMemoryStore())
	ctx := context.Background()

	s.Add(ctx, line("p1", 1000, 20))
	s.Add(ctx, line("p2", 500, 10))
	sum := s.Clear(ctx)

	assert.Empty(t, sum.Lines)
	assert.Equal(t, int64(0), sum.TotalMinor)
}

// ============================================================================
// Persistence Tests
// ============================================================================

func TestAdd_WritesThroughToStorage(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := newTestStore(kv)
	ctx := context.Background()

	s.Add(ctx, line("p1", 1000, 20))

	data, err := kv.Get(ctx, storage.KeyCartLines)
	require.NoError(t, err)

	var lines []domain.CartLine
	require.NoError(t, json.Unmarshal(data, &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestConcurrentMutations_PersistedRecordMatchesMemory(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := newTestStore(kv)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(ctx, line("p1", 1000, 20))
		}()
	}
	wg.Wait()

	// The durable record must hold the final state, not an earlier
	// snapshot that lost the write race.
	data, err := kv.Get(ctx, storage.KeyCartLines)
	require.NoError(t, err)

	var lines []domain.CartLine
	require.NoError(t, json.Unmarshal(data, &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, 20, lines[0].Quantity)
	assert.Equal(t, s.Snapshot().ItemCount, lines[0].Quantity)
}

func TestClear_RemovesPersistedRecord(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := newTestStore(kv)
	ctx := context.Background()

	s.Add(ctx, line("p1", 1000, 20))
	s.Clear(ctx)

	_, err := kv.Get(ctx, storage.KeyCartLines)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestRestore_RoundTrip(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()

	first := newTestStore(kv)
	first.Add(ctx, line("p1", 1000, 20))
	first.Add(ctx, line("p1", 1000, 20))
	first.Add(ctx, line("p2", 500, 10))

	second := newTestStore(kv)
	second.Restore(ctx)

	sum := second.Snapshot()
	assert.Len(t, sum.Lines, 2)
	assert.Equal(t, 3, sum.ItemCount)
	assert.Equal(t, int64(2500), sum.TotalMinor)
}

func TestRestore_MissingKeyStartsEmpty(t *testing.T) {
	s := newTestStore(storage.NewMemoryStore())
	s.Restore(context.Background())
	assert.Empty(t, s.Snapshot().Lines)
}

func TestRestore_UndecodableRecordDropped(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, storage.KeyCartLines, []byte("not json")))

	s := newTestStore(kv)
	s.Restore(ctx)

	assert.Empty(t, s.Snapshot().Lines)
	_, err := kv.Get(ctx, storage.KeyCartLines)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestRestore_DropsLinesBelowQuantityFloor(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()

	lines := []domain.CartLine{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 0},
		{ProductID: "", Quantity: 3},
	}
	data, err := json.Marshal(lines)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, storage.KeyCartLines, data))

	s := newTestStore(kv)
	s.Restore(ctx)

	sum := s.Snapshot()
	require.Len(t, sum.Lines, 1)
	assert.Equal(t, "p1", sum.Lines[0].ProductID)
}

// ============================================================================
// Checkout Tests
// ============================================================================

func TestCheckout_ReturnsContentsAndClears(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := newTestStore(kv)
	ctx := context.Background()

	s.Add(ctx, line("p1", 1000, 20))
	s.Add(ctx, line("p2", 500, 10))

	sum, err := s.Checkout(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sum.Lines, 2)
	assert.Equal(t, int64(1500), sum.TotalMinor)

	assert.Empty(t, s.Snapshot().Lines)
	_, err = kv.Get(ctx, storage.KeyCartLines)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	s := newTestStore(storage.NewMemoryStore())

	_, err := s.Checkout(context.Background(), "u1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
