package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbasket/orderflow/internal/aws/dynamofake"
	"github.com/quickbasket/orderflow/internal/orders"
	"github.com/quickbasket/orderflow/internal/products"
)

const (
	catalogTable  = "catalog_products"
	listingsTable = "seller_listings"
	ordersTable   = "orders"
	idempTable    = "idempotency"
)

type fakeSQS struct {
	sent []string
}

func (s *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	s.sent = append(s.sent, *params.MessageBody)
	return &sqs.SendMessageOutput{}, nil
}

type testEnv struct {
	router *gin.Engine
	fake   *dynamofake.Client
	sqs    *fakeSQS
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := dynamofake.New()
	fake.CreateTable(catalogTable, "product_id")
	fake.CreateTable(listingsTable, "listing_id")
	fake.CreateTable(ordersTable, "order_id")
	fake.CreateTable(idempTable, "idempotency_key")

	queue := &fakeSQS{}
	router := gin.New()
	RegisterRoutes(router, HandlerConfig{
		DynamoDBClient:   fake,
		SQSClient:        queue,
		CatalogTable:     catalogTable,
		ListingsTable:    listingsTable,
		OrdersTable:      ordersTable,
		IdempotencyTable: idempTable,
		QueueURL:         "http://localhost/queue/orders-paid",
		TTLWindow:        48 * time.Hour,
	})

	return &testEnv{router: router, fake: fake, sqs: queue}
}

func (e *testEnv) seedCatalog(t *testing.T, p products.CatalogProduct) {
	t.Helper()
	item, err := attributevalue.MarshalMap(p)
	require.NoError(t, err)
	e.fake.Seed(catalogTable, item)
}

func (e *testEnv) seedListing(t *testing.T, l products.SellerListing) {
	t.Helper()
	if l.Status == "" {
		l.Status = products.ListingUnsold
	}
	item, err := attributevalue.MarshalMap(l)
	require.NoError(t, err)
	e.fake.Seed(listingsTable, item)
}

func (e *testEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func createOrderBody(productID string, quantity int, declaredTotal float64) map[string]any {
	return map[string]any{
		"user_id": "user-1",
		"items": []map[string]any{
			{"product_id": productID, "quantity": quantity},
		},
		"shipping_address": map[string]any{
			"name":        "Asha",
			"line1":       "12 MG Road",
			"city":        "Bengaluru",
			"state":       "KA",
			"postal_code": "560001",
		},
		"declared_total": declaredTotal,
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, products.CatalogProduct{ProductID: "p1", Name: "Coffee Mug", Price: 199, InStock: 5})

	w := env.do(http.MethodPost, "/orders", createOrderBody("p1", 2, 398), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order orders.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, orders.StatusPending, order.Status)
	assert.Equal(t, 398.0, order.TotalAmount)
	assert.Equal(t, "/orders/"+order.OrderID, w.Header().Get("Location"))

	// creation reserved the stock
	get := env.do(http.MethodGet, "/orders/"+order.OrderID, nil, nil)
	assert.Equal(t, http.StatusOK, get.Code)
}

func TestCreateOrderEndpoint_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	body := createOrderBody("p1", 1, 199)
	delete(body, "user_id")
	w := env.do(http.MethodPost, "/orders", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderEndpoint_ProductNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/orders", createOrderBody("ghost", 1, 100), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "product_not_found")
}

func TestCreateOrderEndpoint_InsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, products.CatalogProduct{ProductID: "p1", Name: "Coffee Mug", Price: 199, InStock: 1})

	w := env.do(http.MethodPost, "/orders", createOrderBody("p1", 3, 597), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient_stock")
}

func TestCreateOrderEndpoint_EligibilityViolation(t *testing.T) {
	env := newTestEnv(t)
	env.seedListing(t, products.SellerListing{
		ListingID: "l1", SellerID: "s1", Name: "Study Table", Price: 3200,
		StockQuantity: 1, SellingMode: products.ModeSafe,
		EligiblePostalCodes: []string{"110001"},
	})

	w := env.do(http.MethodPost, "/orders", createOrderBody("l1", 1, 3200), nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "eligibility_violation")
}

func TestCreateOrderEndpoint_IdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, products.CatalogProduct{ProductID: "p1", Name: "Coffee Mug", Price: 199, InStock: 5})

	headers := map[string]string{"Idempotency-Key": "key-1"}
	first := env.do(http.MethodPost, "/orders", createOrderBody("p1", 1, 199), headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second := env.do(http.MethodPost, "/orders", createOrderBody("p1", 1, 199), headers)
	require.Equal(t, http.StatusCreated, second.Code, "replayed from the stored response")
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	p := env.fake.Item(catalogTable, "p1")
	require.NotNil(t, p)
	var got products.CatalogProduct
	require.NoError(t, attributevalue.UnmarshalMap(p, &got))
	assert.Equal(t, 4, got.InStock, "stock decremented once across both submissions")
}

func TestCreateOrderEndpoint_KeyReusableAfterFailedAttempt(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, products.CatalogProduct{ProductID: "p1", Name: "Coffee Mug", Price: 100, InStock: 1})

	headers := map[string]string{"Idempotency-Key": "key-1"}

	// both lines pass the read-time check against the single unit; the
	// second decrement fails and the whole order rolls back
	failing := map[string]any{
		"user_id": "user-1",
		"items": []map[string]any{
			{"product_id": "p1", "quantity": 1},
			{"product_id": "p1", "quantity": 1},
		},
		"shipping_address": map[string]any{
			"name":        "Asha",
			"line1":       "12 MG Road",
			"city":        "Bengaluru",
			"state":       "KA",
			"postal_code": "560001",
		},
		"declared_total": 200,
	}
	first := env.do(http.MethodPost, "/orders", failing, headers)
	require.Equal(t, http.StatusConflict, first.Code, first.Body.String())

	// the corrected retry with the same key must not be answered from the
	// dead attempt
	retry := env.do(http.MethodPost, "/orders", createOrderBody("p1", 1, 100), headers)
	require.Equal(t, http.StatusCreated, retry.Code, retry.Body.String())

	var order orders.Order
	require.NoError(t, json.Unmarshal(retry.Body.Bytes(), &order))
	assert.Equal(t, orders.StatusPending, order.Status)

	p := env.fake.Item(catalogTable, "p1")
	var got products.CatalogProduct
	require.NoError(t, attributevalue.UnmarshalMap(p, &got))
	assert.Equal(t, 0, got.InStock)
}

func TestConfirmPaymentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, products.CatalogProduct{ProductID: "p1", Name: "Coffee Mug", Price: 199, InStock: 5})

	created := env.do(http.MethodPost, "/orders", createOrderBody("p1", 1, 199), nil)
	require.Equal(t, http.StatusCreated, created.Code)
	var order orders.Order
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &order))

	confirm := env.do(http.MethodPost, fmt.Sprintf("/orders/%s/payment", order.OrderID), map[string]any{
		"gateway_order_reference":   "order_G1",
		"gateway_payment_reference": "pay_A1",
	}, nil)
	require.Equal(t, http.StatusOK, confirm.Code, confirm.Body.String())

	var paid orders.Order
	require.NoError(t, json.Unmarshal(confirm.Body.Bytes(), &paid))
	assert.Equal(t, orders.StatusPaid, paid.Status)
	assert.Equal(t, "pay_A1", paid.PaymentReference)

	require.Len(t, env.sqs.sent, 1, "fulfillment message enqueued")
	assert.Contains(t, env.sqs.sent[0], order.OrderID)

	// confirmation never touches stock
	p := env.fake.Item(catalogTable, "p1")
	var got products.CatalogProduct
	require.NoError(t, attributevalue.UnmarshalMap(p, &got))
	assert.Equal(t, 4, got.InStock)
}

func TestConfirmPaymentEndpoint_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/orders/ghost/payment", map[string]any{
		"gateway_order_reference":   "order_G1",
		"gateway_payment_reference": "pay_A1",
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfirmPaymentEndpoint_AlreadySettled(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t, products.CatalogProduct{ProductID: "p1", Name: "Coffee Mug", Price: 199, InStock: 5})

	created := env.do(http.MethodPost, "/orders", createOrderBody("p1", 1, 199), nil)
	var order orders.Order
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &order))

	path := fmt.Sprintf("/orders/%s/payment", order.OrderID)
	first := env.do(http.MethodPost, path, map[string]any{
		"gateway_order_reference":   "order_G1",
		"gateway_payment_reference": "pay_A1",
	}, nil)
	require.Equal(t, http.StatusOK, first.Code)

	conflicting := env.do(http.MethodPost, path, map[string]any{
		"gateway_order_reference":   "order_G1",
		"gateway_payment_reference": "pay_B2",
	}, nil)
	assert.Equal(t, http.StatusConflict, conflicting.Code)
	assert.Contains(t, conflicting.Body.String(), "order_not_pending")
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/orders/ghost", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveDiscountEndpoint(t *testing.T) {
	env := newTestEnv(t)

	known := env.do(http.MethodGet, "/discounts/resolve?code=TENOFF", nil, nil)
	require.Equal(t, http.StatusOK, known.Code)
	assert.Contains(t, known.Body.String(), `"policy"`)
	assert.NotContains(t, known.Body.String(), `"policy":null`)

	unknown := env.do(http.MethodGet, "/discounts/resolve?code=NOPE", nil, nil)
	require.Equal(t, http.StatusOK, unknown.Code)
	assert.Contains(t, unknown.Body.String(), `"policy":null`)
}
