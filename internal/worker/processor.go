// Package worker drives paid orders through fulfillment. It consumes
// order-paid messages and advances the order status with conditional
// transitions, so duplicate or competing deliveries collapse into no-ops.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/quickbasket/orderflow/internal/metrics"
	"github.com/quickbasket/orderflow/internal/orders"
)

// Processor handles SQS messages and performs fulfillment transitions.
type Processor struct {
	orderStore *orders.Store
	meter      *metrics.Publisher
	log        *zap.Logger
}

// NewProcessor wires the order store and observability.
func NewProcessor(orderStore *orders.Store, meter *metrics.Publisher, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		orderStore: orderStore,
		meter:      meter,
		log:        log,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Lambda will retry; repeated failures land the message in the DLQ
			p.log.Error("worker message failed", zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var msg OrderPaidMessage
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}

	log := p.log.With(
		zap.String("order_id", msg.OrderID),
		zap.String("correlation_id", msg.CorrelationID),
	)
	log.Info("order-paid message received")

	order, err := p.orderStore.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("fetch order: %w", err)
	}
	if order == nil {
		// should never happen; DLQ if it does
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}

	// PAID -> PROCESSING, idempotent against duplicates and racing workers
	err = p.orderStore.UpdateStatus(ctx, msg.OrderID, orders.StatusPaid, orders.StatusProcessing)
	if errors.Is(err, orders.ErrStatusMismatch) {
		current, getErr := p.orderStore.Get(ctx, msg.OrderID)
		if getErr != nil {
			return fmt.Errorf("re-fetch order: %w", getErr)
		}
		if current == nil {
			return fmt.Errorf("order disappeared during fulfillment: %s", msg.OrderID)
		}
		switch current.Status {
		case orders.StatusShipped, orders.StatusDelivered:
			log.Info("order already fulfilled")
			return nil
		case orders.StatusProcessing:
			log.Info("duplicate fulfillment event")
			return nil
		case orders.StatusCancelled:
			log.Warn("order cancelled before fulfillment")
			return nil
		default:
			return fmt.Errorf("unexpected status for order %s: %s", msg.OrderID, current.Status)
		}
	}
	if err != nil {
		return fmt.Errorf("update status to PROCESSING: %w", err)
	}

	if err := p.dispatchShipment(ctx, order); err != nil {
		return fmt.Errorf("dispatch shipment: %w", err)
	}

	if err := p.orderStore.UpdateStatus(ctx, msg.OrderID, orders.StatusProcessing, orders.StatusShipped); err != nil {
		return fmt.Errorf("update status to SHIPPED: %w", err)
	}

	p.meter.Count(ctx, metrics.OrdersFulfilled, "")
	log.Info("order shipped")
	return nil
}

// dispatchShipment hands the order to the carrier integration. Currently a
// stub that logs the parcel contents.
func (p *Processor) dispatchShipment(_ context.Context, order *orders.Order) error {
	p.log.Info("dispatching shipment",
		zap.String("order_id", order.OrderID),
		zap.Int("line_items", len(order.LineItems)),
		zap.String("postal_code", order.ShippingAddress.PostalCode),
	)
	return nil
}
