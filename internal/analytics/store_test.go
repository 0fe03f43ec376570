package analytics

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.ApplyMigrations())
	return store
}

func testRecord(n int) Record {
	return Record{
		ID:           fmt.Sprintf("01ARZ3NDEKTSV4RRFFQ69G5F%02d", n),
		Name:         "core:api-request-latency",
		Timestamp:    1700000000000 + int64(n),
		SessionID:    "session-1",
		Integration:  "custom",
		Endpoint:     "/v1/payment_methods",
		MerchantID:   "abc",
		AnalyticsURL: "https://analytics.example.com",
	}
}

func TestStore(t *testing.T) {
	t.Parallel()

	t.Run("enqueue and read back in insertion order", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		for n := 3; n >= 1; n-- {
			require.NoError(t, store.Enqueue(ctx, testRecord(n)))
		}

		count, err := store.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 3, count)

		batch, err := store.NextBatch(ctx, 10)
		require.NoError(t, err)
		require.Len(t, batch, 3)
		require.Equal(t, testRecord(1).ID, batch[0].ID)
		require.Equal(t, testRecord(3).ID, batch[2].ID)
	})

	t.Run("round-trips every field", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		rec := testRecord(1)
		rec.ContextID = "EC-TOKEN"
		rec.LinkType = "universal"
		rec.VaultRequest = true
		rec.StartTime = 1700000000001
		rec.EndTime = 1700000000002
		require.NoError(t, store.Enqueue(ctx, rec))

		batch, err := store.NextBatch(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, []Record{rec}, batch)
	})

	t.Run("remove deletes only the given ids", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		require.NoError(t, store.Enqueue(ctx, testRecord(1)))
		require.NoError(t, store.Enqueue(ctx, testRecord(2)))
		require.NoError(t, store.Remove(ctx, []string{testRecord(1).ID}))

		count, err := store.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, count)

		require.NoError(t, store.Remove(ctx, nil))
	})

	t.Run("trim keeps the newest records", func(t *testing.T) {
		store := newTestStore(t)
		ctx := context.Background()

		for n := 1; n <= 5; n++ {
			require.NoError(t, store.Enqueue(ctx, testRecord(n)))
		}
		require.NoError(t, store.TrimOldest(ctx, 2))

		batch, err := store.NextBatch(ctx, 10)
		require.NoError(t, err)
		require.Len(t, batch, 2)
		require.Equal(t, testRecord(4).ID, batch[0].ID)
		require.Equal(t, testRecord(5).ID, batch[1].ID)
	})

	t.Run("migrations are idempotent", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.ApplyMigrations())
	})
}
