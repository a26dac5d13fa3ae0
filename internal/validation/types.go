package validation

// Item is a single requested order line. Price and pool are resolved server
// side; clients only say what and how many.
type Item struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// ShippingAddress is the delivery address payload. PostalCode feeds the
// safe-selling eligibility check, so it is mandatory.
type ShippingAddress struct {
	Name       string `json:"name" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Phone      string `json:"phone,omitempty"`
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	UserID          string          `json:"user_id" validate:"required"`
	Items           []Item          `json:"items" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddress `json:"shipping_address" validate:"required"`
	DeclaredTotal   float64         `json:"declared_total" validate:"gte=0"`
	DiscountCode    string          `json:"discount_code,omitempty"`
}

// ConfirmPaymentRequest is the payload for POST /orders/:id/payment, carrying
// the fields the gateway callback delivered to the client.
type ConfirmPaymentRequest struct {
	GatewayOrderRef   string `json:"gateway_order_reference" validate:"required"`
	GatewayPaymentRef string `json:"gateway_payment_reference" validate:"required"`
	GatewaySignature  string `json:"gateway_signature,omitempty"`
}
