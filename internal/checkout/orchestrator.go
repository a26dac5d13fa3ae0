// Package checkout validates a cart, reserves stock, and creates the pending
// order. Stock is reserved at creation time, not at payment time: two buyers
// racing for the last unit must not both pass validation against stale
// figures. The cost is that an abandoned unpaid order ties up stock until an
// external lifecycle expires it.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quickbasket/orderflow/internal/discount"
	"github.com/quickbasket/orderflow/internal/eligibility"
	"github.com/quickbasket/orderflow/internal/idempotency"
	"github.com/quickbasket/orderflow/internal/orders"
	"github.com/quickbasket/orderflow/internal/payment"
	"github.com/quickbasket/orderflow/internal/products"
)

const (
	orderIDPrefix = "ord_"
	currency      = "INR"
	// declared totals may drift from the recomputed subtotal by float
	// rounding; anything past one cent is a client error
	totalToleranceCents = 1
)

// RequestedItem is one cart line as submitted by the client. Pool and price
// are resolved server side.
type RequestedItem struct {
	ProductID string
	Quantity  int
}

// CreateOrderInput is the full order-creation command.
type CreateOrderInput struct {
	UserID          string
	Items           []RequestedItem
	ShippingAddress orders.ShippingAddress
	DeclaredTotal   float64
	DiscountCode    string
	IdempotencyKey  string
}

// Service orchestrates order creation against the product pools, the
// discount engine, and the orders table.
type Service struct {
	resolver         *products.Resolver
	orders           *orders.Store
	idempotency      *idempotency.Store
	idempotencyTable string
	idempotencyTTL   time.Duration
	gateway          payment.Gateway // nil when no gateway is configured
	log              *zap.Logger
	newID            func() string
}

// Config groups the orchestrator's dependencies.
type Config struct {
	Resolver         *products.Resolver
	Orders           *orders.Store
	Idempotency      *idempotency.Store
	IdempotencyTable string
	IdempotencyTTL   time.Duration
	Gateway          payment.Gateway
	Logger           *zap.Logger
}

// NewService wires the orchestrator.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver:         cfg.Resolver,
		orders:           cfg.Orders,
		idempotency:      cfg.Idempotency,
		idempotencyTable: cfg.IdempotencyTable,
		idempotencyTTL:   cfg.IdempotencyTTL,
		gateway:          cfg.Gateway,
		log:              logger,
		newID:            func() string { return orderIDPrefix + ulid.Make().String() },
	}
}

// CreateOrder runs the placement pipeline: resolve every product, check
// stock and eligibility (fail fast, no partial reservation), price the cart,
// persist the pending order, then decrement stock per item. A decrement that
// loses a write-time race rolls the whole order back.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*orders.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}

	resolved := make([]*products.Resolved, 0, len(in.Items))
	lineItems := make([]orders.LineItem, 0, len(in.Items))
	for _, req := range in.Items {
		p, err := s.resolver.Resolve(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, products.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: req.ProductID}
			}
			return nil, err
		}
		resolved = append(resolved, p)
		lineItems = append(lineItems, orders.LineItem{
			ProductID:   p.ID,
			ProductPool: p.Pool,
			Quantity:    req.Quantity,
			UnitPrice:   p.Price,
			ProductName: p.Name,
			ImageURL:    p.ImageURL,
		})
	}

	for i, p := range resolved {
		if p.Stock < in.Items[i].Quantity || p.Status == products.ListingSold {
			return nil, &InsufficientStockError{ProductName: p.Name}
		}
	}

	for _, p := range resolved {
		if res := eligibility.Check(p, in.ShippingAddress.PostalCode); !res.Eligible {
			return nil, &EligibilityError{Reason: res.Reason}
		}
	}

	subtotal := decimal.Zero
	for _, li := range lineItems {
		subtotal = subtotal.Add(decimal.NewFromFloat(li.UnitPrice).Mul(decimal.NewFromInt(int64(li.Quantity))))
	}
	total := subtotal
	if policy, ok := discount.Resolve(in.DiscountCode); ok {
		total = policy.Apply(subtotal, lineItems)
	}
	total = total.Round(2)

	// the declared total is a sanity bound, not the authoritative charge:
	// the client may only claim the recomputed subtotal or less
	declared := decimal.NewFromFloat(in.DeclaredTotal)
	if declared.Sub(subtotal).Mul(decimal.NewFromInt(100)).GreaterThan(decimal.NewFromInt(totalToleranceCents)) {
		return nil, ErrTotalMismatch
	}

	orderID := s.newID()

	order := orders.Order{
		OrderID:         orderID,
		UserID:          in.UserID,
		LineItems:       lineItems,
		ShippingAddress: in.ShippingAddress,
		TotalAmount:     total.InexactFloat64(),
		DiscountCode:    in.DiscountCode,
		Status:          orders.StatusPending,
	}

	if s.gateway != nil {
		gatewayRef, err := s.gateway.CreateOrder(ctx, total.Mul(decimal.NewFromInt(100)).IntPart(), currency, orderID)
		if err != nil {
			return nil, fmt.Errorf("checkout: gateway order: %w", err)
		}
		order.GatewayOrderRef = gatewayRef
	}

	if in.IdempotencyKey != "" && s.idempotency != nil {
		rec := s.idempotency.NewRecord(in.IdempotencyKey, orderID)
		err := s.orders.InsertWithIdempotency(ctx, s.idempotencyTable, rec, order, s.idempotencyTTL)
		if err != nil {
			// a FAILED record from an aborted earlier attempt no longer
			// shields the key; clear it and take this attempt as the retry
			prev, getErr := s.idempotency.Get(ctx, in.IdempotencyKey)
			if getErr == nil && prev != nil && prev.Status == idempotency.StatusFailed {
				if delErr := s.idempotency.Delete(ctx, in.IdempotencyKey); delErr == nil {
					err = s.orders.InsertWithIdempotency(ctx, s.idempotencyTable, rec, order, s.idempotencyTTL)
				}
			}
			if err != nil {
				return nil, err
			}
		}
	} else {
		if err := s.orders.Insert(ctx, order); err != nil {
			return nil, err
		}
	}

	for i, li := range lineItems {
		if err := s.resolver.Decrement(ctx, li.ProductPool, li.ProductID, li.Quantity); err != nil {
			s.rollback(ctx, orderID, lineItems[:i])
			if errors.Is(err, products.ErrInsufficientStock) {
				err = &InsufficientStockError{ProductName: li.ProductName}
			}
			// the key must not keep shielding a rolled-back order; FAILED
			// lets the next submission with the same key start over
			if in.IdempotencyKey != "" && s.idempotency != nil {
				if mfErr := s.idempotency.MarkFailed(ctx, in.IdempotencyKey, err.Error()); mfErr != nil {
					s.log.Error("mark idempotency record failed",
						zap.String("order_id", orderID),
						zap.Error(mfErr),
					)
				}
			}
			return nil, err
		}
	}

	s.log.Info("order created",
		zap.String("order_id", orderID),
		zap.String("user_id", in.UserID),
		zap.Int("line_items", len(lineItems)),
		zap.Float64("total_amount", order.TotalAmount),
	)

	return s.orders.Get(ctx, orderID)
}

// rollback restores stock already taken for this order and removes the
// pending order record. Best effort: failures are logged, not returned, so
// the original error reaches the caller.
func (s *Service) rollback(ctx context.Context, orderID string, decremented []orders.LineItem) {
	for _, li := range decremented {
		if err := s.resolver.Restock(ctx, li.ProductPool, li.ProductID, li.Quantity); err != nil {
			s.log.Error("rollback restock failed",
				zap.String("order_id", orderID),
				zap.String("product_id", li.ProductID),
				zap.Error(err),
			)
		}
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		s.log.Error("rollback order delete failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}
