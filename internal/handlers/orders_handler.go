package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quickbasket/orderflow/internal/aws"
	"github.com/quickbasket/orderflow/internal/checkout"
	"github.com/quickbasket/orderflow/internal/discount"
	"github.com/quickbasket/orderflow/internal/idempotency"
	"github.com/quickbasket/orderflow/internal/metrics"
	"github.com/quickbasket/orderflow/internal/orders"
	"github.com/quickbasket/orderflow/internal/payment"
	"github.com/quickbasket/orderflow/internal/products"
	"github.com/quickbasket/orderflow/internal/validation"
)

// HandlerConfig groups dependencies for the order API handlers.
type HandlerConfig struct {
	DynamoDBClient   aws.DynamoDBAPI
	SQSClient        aws.SQSAPI
	CloudWatchClient aws.CloudWatchAPI
	CatalogTable     string
	ListingsTable    string
	OrdersTable      string
	IdempotencyTable string
	QueueURL         string
	TTLWindow        time.Duration
	Gateway          payment.Gateway // nil in sandbox mode
	WebhookSecret    string          // empty in sandbox mode
	Logger           *zap.Logger
}

// RegisterRoutes wires the order, payment, and discount endpoints.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	v := validation.New()
	catalogStore := products.NewCatalogStore(cfg.DynamoDBClient, cfg.CatalogTable)
	listingStore := products.NewListingStore(cfg.DynamoDBClient, cfg.ListingsTable)
	resolver := products.NewResolver(catalogStore, listingStore)
	ordersStore := orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable)
	idempStore := idempotency.NewStore(cfg.DynamoDBClient, cfg.IdempotencyTable, cfg.TTLWindow)
	publisher := aws.NewPublisher(cfg.SQSClient, cfg.QueueURL)
	meter := metrics.NewPublisher(cfg.CloudWatchClient, logger)

	svc := checkout.NewService(checkout.Config{
		Resolver:         resolver,
		Orders:           ordersStore,
		Idempotency:      idempStore,
		IdempotencyTable: cfg.IdempotencyTable,
		IdempotencyTTL:   cfg.TTLWindow,
		Gateway:          cfg.Gateway,
		Logger:           logger,
	})
	reconciler := payment.NewReconciler(ordersStore, cfg.Gateway, cfg.WebhookSecret)

	r.POST("/orders", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		idempKey := c.GetHeader("Idempotency-Key")

		items := make([]checkout.RequestedItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, checkout.RequestedItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}

		order, err := svc.CreateOrder(ctx, checkout.CreateOrderInput{
			UserID: req.UserID,
			Items:  items,
			ShippingAddress: orders.ShippingAddress{
				Name:       req.ShippingAddress.Name,
				Line1:      req.ShippingAddress.Line1,
				Line2:      req.ShippingAddress.Line2,
				City:       req.ShippingAddress.City,
				State:      req.ShippingAddress.State,
				PostalCode: req.ShippingAddress.PostalCode,
				Phone:      req.ShippingAddress.Phone,
			},
			DeclaredTotal:  req.DeclaredTotal,
			DiscountCode:   req.DiscountCode,
			IdempotencyKey: idempKey,
		})
		if err != nil {
			writeCreateOrderError(c, ctx, err, idempKey, idempStore, meter, logger)
			return
		}

		responseBody, _ := json.Marshal(order)
		if idempKey != "" {
			_ = idempStore.MarkDone(ctx, idempKey, string(responseBody), http.StatusCreated)
		}
		meter.Count(ctx, metrics.OrdersCreated, "")

		c.Header("Location", fmt.Sprintf("/orders/%s", order.OrderID))
		c.JSON(http.StatusCreated, order)
	})

	r.POST("/orders/:id/payment", func(c *gin.Context) {
		ctx := c.Request.Context()
		orderID := c.Param("id")

		var req validation.ConfirmPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		order, err := reconciler.ConfirmPayment(ctx, payment.ConfirmInput{
			OrderID:           orderID,
			GatewayOrderRef:   req.GatewayOrderRef,
			GatewayPaymentRef: req.GatewayPaymentRef,
			GatewaySignature:  req.GatewaySignature,
		})
		if err != nil {
			writeConfirmPaymentError(c, err, meter, logger)
			return
		}

		// payment is settled at this point; a failed enqueue must not fail
		// the confirmation, the fulfillment sweep will pick the order up
		payload, _ := json.Marshal(map[string]string{
			"order_id":          order.OrderID,
			"payment_reference": order.PaymentReference,
		})
		attrs := map[string]string{
			"order_id":       order.OrderID,
			"correlation_id": correlationID(c),
		}
		if err := publisher.SendOrderPaid(ctx, string(payload), attrs); err != nil {
			logger.Error("enqueue order-paid failed",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
		}
		meter.Count(ctx, metrics.PaymentsConfirmed, "")

		c.JSON(http.StatusOK, order)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := ordersStore.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable", "detail": err.Error()})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusOK, order)
	})

	r.GET("/discounts/resolve", func(c *gin.Context) {
		code := c.Query("code")
		policy, ok := discount.Resolve(code)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"code": code, "policy": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": code, "policy": policy.Kind()})
	})
}

func writeCreateOrderError(c *gin.Context, ctx context.Context, err error, idempKey string, idempStore *idempotency.Store, meter *metrics.Publisher, logger *zap.Logger) {
	var notFound *checkout.ProductNotFoundError
	var noStock *checkout.InsufficientStockError
	var ineligible *checkout.EligibilityError

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		meter.Count(ctx, metrics.OrderCreateFailed, "empty_cart")
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_cart"})
	case errors.Is(err, checkout.ErrTotalMismatch):
		meter.Count(ctx, metrics.OrderCreateFailed, "total_mismatch")
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_mismatch"})
	case errors.As(err, &notFound):
		meter.Count(ctx, metrics.OrderCreateFailed, "product_not_found")
		c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found", "product_id": notFound.ProductID})
	case errors.As(err, &noStock):
		meter.Count(ctx, metrics.OrderCreateFailed, "insufficient_stock")
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient_stock", "product_name": noStock.ProductName})
	case errors.As(err, &ineligible):
		meter.Count(ctx, metrics.OrderCreateFailed, "eligibility_violation")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "eligibility_violation", "reason": ineligible.Reason})
	default:
		// a duplicate idempotency key cancels the creation transaction; the
		// stored record decides what the duplicate submission gets back
		if idempKey != "" {
			if rec, getErr := idempStore.Get(ctx, idempKey); getErr == nil && rec != nil {
				replayIdempotent(c, rec)
				return
			}
		}
		logger.Error("create order failed", zap.Error(err))
		meter.Count(ctx, metrics.OrderCreateFailed, "internal")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order_create_failed", "detail": err.Error()})
	}
}

func replayIdempotent(c *gin.Context, rec *idempotency.Record) {
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress", "order_id": rec.OrderID})
	case idempotency.StatusFailed:
		// the failed record no longer shields the key; the client may submit
		// again immediately
		c.JSON(http.StatusConflict, gin.H{"error": "previous_attempt_failed", "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}

func writeConfirmPaymentError(c *gin.Context, err error, meter *metrics.Publisher, logger *zap.Logger) {
	ctx := c.Request.Context()
	var notSuccessful *payment.PaymentNotSuccessfulError

	switch {
	case errors.Is(err, payment.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
	case errors.Is(err, payment.ErrInvalidSignature):
		meter.Count(ctx, metrics.SignatureFailures, "")
		logger.Warn("payment signature mismatch", zap.String("order_id", c.Param("id")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
	case errors.As(err, &notSuccessful):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment_not_successful", "status": notSuccessful.Status})
	case errors.Is(err, payment.ErrAlreadySettled):
		c.JSON(http.StatusConflict, gin.H{"error": "order_not_pending"})
	default:
		logger.Error("confirm payment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment_confirm_failed", "detail": err.Error()})
	}
}

func correlationID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}
