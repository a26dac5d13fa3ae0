package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbasket/orderflow/internal/aws/dynamofake"
)

const (
	ordersTable = "orders"
	idempTable  = "idempotency"
)

func newStore(t *testing.T) (*dynamofake.Client, *Store) {
	t.Helper()
	fake := dynamofake.New()
	fake.CreateTable(ordersTable, "order_id")
	fake.CreateTable(idempTable, "idempotency_key")
	return fake, NewStore(fake, ordersTable)
}

func pendingOrder(id string) Order {
	return Order{
		OrderID: id,
		UserID:  "user-1",
		LineItems: []LineItem{
			{ProductID: "p1", ProductPool: PoolCatalog, Quantity: 2, UnitPrice: 199, ProductName: "Mug"},
		},
		ShippingAddress: ShippingAddress{Name: "A", Line1: "1 Main St", City: "Bengaluru", State: "KA", PostalCode: "560001"},
		TotalAmount:     398,
		Status:          StatusPending,
	}
}

func TestStore_InsertAndGet(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, pendingOrder("ord-1")))

	got, err := store.Get(ctx, "ord-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusPending, got.Status)
	assert.Len(t, got.LineItems, 1)
	assert.False(t, got.CreatedAt.IsZero())

	missing, err := store.Get(ctx, "ord-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_InsertRejectsDuplicateID(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, pendingOrder("ord-1")))
	err := store.Insert(ctx, pendingOrder("ord-1"))
	require.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestStore_InsertWithIdempotency(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()

	idemp := map[string]interface{}{
		"idempotency_key": "key-1",
		"status":          "IN_PROGRESS",
		"order_id":        "ord-1",
	}
	require.NoError(t, store.InsertWithIdempotency(ctx, idempTable, idemp, pendingOrder("ord-1"), 0))

	got, err := store.Get(ctx, "ord-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	// a second submission with the same key cancels the transaction and
	// must not create another order
	err = store.InsertWithIdempotency(ctx, idempTable, idemp, pendingOrder("ord-2"), 0)
	require.Error(t, err)

	dup, err := store.Get(ctx, "ord-2")
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestStore_UpdateStatusConditional(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, pendingOrder("ord-1")))

	require.NoError(t, store.UpdateStatus(ctx, "ord-1", StatusPending, StatusCancelled))

	err := store.UpdateStatus(ctx, "ord-1", StatusPending, StatusPaid)
	require.ErrorIs(t, err, ErrStatusMismatch)

	got, err := store.Get(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestStore_MarkPaid(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, pendingOrder("ord-1")))

	require.NoError(t, store.MarkPaid(ctx, "ord-1", "pay_123", "gw_ord_456"))

	got, err := store.Get(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
	assert.Equal(t, "pay_123", got.PaymentReference)
	assert.Equal(t, "gw_ord_456", got.GatewayOrderRef)

	// second MarkPaid loses the condition; callers decide how to treat it
	err = store.MarkPaid(ctx, "ord-1", "pay_999", "gw_ord_456")
	require.ErrorIs(t, err, ErrStatusMismatch)

	got, err = store.Get(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "pay_123", got.PaymentReference, "failed transition must not mutate")
}

func TestStore_Delete(t *testing.T) {
	_, store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, pendingOrder("ord-1")))

	require.NoError(t, store.Delete(ctx, "ord-1"))

	got, err := store.Get(ctx, "ord-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
