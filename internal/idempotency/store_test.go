package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbasket/orderflow/internal/aws/dynamofake"
)

const idempTable = "idempotency"

func newStore(t *testing.T) (*Store, *dynamofake.Client) {
	t.Helper()
	fake := dynamofake.New()
	fake.CreateTable(idempTable, "idempotency_key")
	store := NewStore(fake, idempTable, 48*time.Hour)
	store.nowFunc = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return store, fake
}

func TestNewRecord(t *testing.T) {
	store, _ := newStore(t)

	rec := store.NewRecord("key-1", "ord-1")
	assert.Equal(t, "key-1", rec.IdempotencyKey)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Equal(t, "ord-1", rec.OrderID)
	assert.Equal(t, rec.CreatedAt.Add(48*time.Hour).Unix(), rec.ExpiresAt)
}

func TestGet_Missing(t *testing.T) {
	store, _ := newStore(t)

	rec, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMarkDone(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.MarkDone(context.Background(), "key-1", `{"order_id":"ord-1"}`, 201))

	rec, err := store.Get(context.Background(), "key-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusDone, rec.Status)
	assert.Equal(t, `{"order_id":"ord-1"}`, rec.ResponseBody)
	assert.Equal(t, 201, rec.ResponseStatus)
}

func TestDelete(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.MarkFailed(context.Background(), "key-1", "stock ran out"))
	require.NoError(t, store.Delete(context.Background(), "key-1"))

	rec, err := store.Get(context.Background(), "key-1")
	require.NoError(t, err)
	assert.Nil(t, rec, "deleted key no longer shields")
}

func TestMarkFailed(t *testing.T) {
	store, _ := newStore(t)

	require.NoError(t, store.MarkFailed(context.Background(), "key-1", "stock ran out"))

	rec, err := store.Get(context.Background(), "key-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "stock ran out", rec.Note)
}
