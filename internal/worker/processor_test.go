package worker

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbasket/orderflow/internal/aws/dynamofake"
	"github.com/quickbasket/orderflow/internal/orders"
)

const ordersTable = "orders"

func newProcessor(t *testing.T) (*Processor, *orders.Store) {
	t.Helper()
	fake := dynamofake.New()
	fake.CreateTable(ordersTable, "order_id")
	store := orders.NewStore(fake, ordersTable)
	return NewProcessor(store, nil, nil), store
}

func seedOrder(t *testing.T, store *orders.Store, orderID, status string) {
	t.Helper()
	err := store.Insert(context.Background(), orders.Order{
		OrderID: orderID,
		UserID:  "user-1",
		LineItems: []orders.LineItem{
			{ProductID: "p1", ProductPool: orders.PoolCatalog, Quantity: 1, UnitPrice: 499, ProductName: "Coffee Mug"},
		},
		ShippingAddress: orders.ShippingAddress{
			Name: "Asha", Line1: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001",
		},
		TotalAmount: 499,
		Status:      status,
	})
	require.NoError(t, err)
}

func event(body string) events.SQSEvent {
	return events.SQSEvent{Records: []events.SQSMessage{{Body: body}}}
}

func TestHandle_PaidOrderShips(t *testing.T) {
	proc, store := newProcessor(t)
	seedOrder(t, store, "ord-1", orders.StatusPaid)

	err := proc.Handle(context.Background(), event(`{"order_id":"ord-1","payment_reference":"pay_A1","correlation_id":"corr-1"}`))
	require.NoError(t, err)

	order, err := store.Get(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, order.Status)
}

func TestHandle_DuplicateDeliveryIsNoOp(t *testing.T) {
	proc, store := newProcessor(t)
	seedOrder(t, store, "ord-1", orders.StatusPaid)

	body := `{"order_id":"ord-1","payment_reference":"pay_A1"}`
	require.NoError(t, proc.Handle(context.Background(), event(body)))
	require.NoError(t, proc.Handle(context.Background(), event(body)), "redelivery after fulfillment succeeds quietly")

	order, err := store.Get(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, order.Status)
}

func TestHandle_CancelledOrderIsSkipped(t *testing.T) {
	proc, store := newProcessor(t)
	seedOrder(t, store, "ord-1", orders.StatusCancelled)

	err := proc.Handle(context.Background(), event(`{"order_id":"ord-1"}`))
	require.NoError(t, err)

	order, gerr := store.Get(context.Background(), "ord-1")
	require.NoError(t, gerr)
	assert.Equal(t, orders.StatusCancelled, order.Status)
}

func TestHandle_PendingOrderFailsForRetry(t *testing.T) {
	proc, store := newProcessor(t)
	seedOrder(t, store, "ord-1", orders.StatusPending)

	// the paid message arrived before the payment write became visible;
	// failing the message lets the queue redeliver it
	err := proc.Handle(context.Background(), event(`{"order_id":"ord-1"}`))
	require.Error(t, err)
}

func TestHandle_MissingOrder(t *testing.T) {
	proc, _ := newProcessor(t)

	err := proc.Handle(context.Background(), event(`{"order_id":"ghost"}`))
	require.Error(t, err)
}

// vanishingClient drops the item while rejecting the conditional write, so
// the re-read after a status mismatch sees no order at all.
type vanishingClient struct {
	*dynamofake.Client
}

func (c *vanishingClient) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	_, _ = c.Client.DeleteItem(ctx, &dyn.DeleteItemInput{TableName: params.TableName, Key: params.Key})
	return nil, &types.ConditionalCheckFailedException{}
}

func TestHandle_OrderDeletedDuringTransition(t *testing.T) {
	fake := dynamofake.New()
	fake.CreateTable(ordersTable, "order_id")
	store := orders.NewStore(&vanishingClient{Client: fake}, ordersTable)
	seedOrder(t, store, "ord-1", orders.StatusPaid)

	proc := NewProcessor(store, nil, nil)
	err := proc.Handle(context.Background(), event(`{"order_id":"ord-1"}`))
	require.Error(t, err, "a vanished order fails the message for redelivery")
}

func TestHandle_MalformedBody(t *testing.T) {
	proc, _ := newProcessor(t)

	err := proc.Handle(context.Background(), event(`{not json`))
	require.Error(t, err)
}
