// Package payment verifies external payment confirmations and settles
// pending orders. The reconciler confirms only: stock was reserved when the
// order was created, so no path here touches inventory.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/quickbasket/orderflow/internal/orders"
)

var (
	// ErrOrderNotFound means the order id does not resolve.
	ErrOrderNotFound = errors.New("payment: order not found")
	// ErrInvalidSignature means the webhook signature did not verify.
	ErrInvalidSignature = errors.New("payment: invalid signature")
	// ErrAlreadySettled means the order left Pending through some other path
	// and this confirmation cannot apply.
	ErrAlreadySettled = errors.New("payment: order is not pending")
)

// PaymentNotSuccessfulError reports a gateway-side payment status that does
// not count as money received.
type PaymentNotSuccessfulError struct {
	Status string
}

func (e *PaymentNotSuccessfulError) Error() string {
	return fmt.Sprintf("payment: not successful (status %q)", e.Status)
}

// ConfirmInput carries the callback fields the client forwards from the
// gateway after completing payment.
type ConfirmInput struct {
	OrderID           string
	GatewayOrderRef   string
	GatewayPaymentRef string
	GatewaySignature  string
}

// Reconciler transitions pending orders to paid once the gateway confirms
// the money. With no webhook secret configured it runs in sandbox mode:
// signature and gateway checks are skipped and confirmation is trusted.
type Reconciler struct {
	orders        *orders.Store
	gateway       Gateway // nil in sandbox mode
	webhookSecret string  // empty in sandbox mode
}

// NewReconciler wires the order store and optional live-gateway credentials.
func NewReconciler(orderStore *orders.Store, gateway Gateway, webhookSecret string) *Reconciler {
	return &Reconciler{
		orders:        orderStore,
		gateway:       gateway,
		webhookSecret: webhookSecret,
	}
}

// ConfirmPayment verifies the confirmation and transitions the order
// Pending -> Paid. Every failure path leaves the order untouched, so a
// failed confirmation is always safe to retry. Confirming an already-paid
// order with the same payment reference is a no-op returning the order.
func (r *Reconciler) ConfirmPayment(ctx context.Context, in ConfirmInput) (*orders.Order, error) {
	if r.webhookSecret != "" {
		if !VerifySignature(r.webhookSecret, in.GatewayOrderRef, in.GatewayPaymentRef, in.GatewaySignature) {
			return nil, ErrInvalidSignature
		}
		if r.gateway != nil {
			status, err := r.gateway.FetchPayment(ctx, in.GatewayPaymentRef)
			if err != nil {
				return nil, fmt.Errorf("payment: fetch status: %w", err)
			}
			if status != StatusAuthorized && status != StatusCaptured {
				return nil, &PaymentNotSuccessfulError{Status: status}
			}
		}
	}

	order, err := r.orders.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, in.OrderID)
	}

	err = r.orders.MarkPaid(ctx, in.OrderID, in.GatewayPaymentRef, in.GatewayOrderRef)
	if errors.Is(err, orders.ErrStatusMismatch) {
		// lost the race or duplicate confirmation; re-read to decide
		current, getErr := r.orders.Get(ctx, in.OrderID)
		if getErr != nil {
			return nil, getErr
		}
		if current != nil && current.Status == orders.StatusPaid && current.PaymentReference == in.GatewayPaymentRef {
			return current, nil
		}
		return nil, ErrAlreadySettled
	}
	if err != nil {
		return nil, err
	}

	return r.orders.Get(ctx, in.OrderID)
}
