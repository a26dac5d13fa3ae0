package orders

import "time"

// Order statuses. Pending is the only state an order is created in; the
// reconciler moves it to Paid and the fulfillment worker takes it from there.
const (
	StatusPending    = "PENDING"
	StatusPaid       = "PAID"
	StatusProcessing = "PROCESSING"
	StatusShipped    = "SHIPPED"
	StatusDelivered  = "DELIVERED"
	StatusCancelled  = "CANCELLED"
)

// Product pools a line item can come from.
const (
	PoolCatalog = "CATALOG"
	PoolListing = "SELLER_LISTING"
)

// LineItem is a single order line. Pool and unit price are resolved server
// side at order time and never change afterwards.
type LineItem struct {
	ProductID   string  `dynamodbav:"product_id" json:"product_id"`
	ProductPool string  `dynamodbav:"product_pool" json:"product_pool"`
	Quantity    int     `dynamodbav:"quantity" json:"quantity"`
	UnitPrice   float64 `dynamodbav:"unit_price" json:"unit_price"`
	ProductName string  `dynamodbav:"product_name" json:"product_name"`
	ImageURL    string  `dynamodbav:"image_url,omitempty" json:"image_url,omitempty"`
}

// ShippingAddress is the structured delivery address. PostalCode drives the
// safe-selling eligibility check.
type ShippingAddress struct {
	Name       string `dynamodbav:"name" json:"name"`
	Line1      string `dynamodbav:"line1" json:"line1"`
	Line2      string `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City       string `dynamodbav:"city" json:"city"`
	State      string `dynamodbav:"state" json:"state"`
	PostalCode string `dynamodbav:"postal_code" json:"postal_code"`
	Phone      string `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
}

// Order is the item stored in the orders table.
type Order struct {
	OrderID          string          `dynamodbav:"order_id" json:"order_id"` // PK
	UserID           string          `dynamodbav:"user_id" json:"user_id"`
	LineItems        []LineItem      `dynamodbav:"line_items" json:"line_items"`
	ShippingAddress  ShippingAddress `dynamodbav:"shipping_address" json:"shipping_address"`
	TotalAmount      float64         `dynamodbav:"total_amount" json:"total_amount"`
	DiscountCode     string          `dynamodbav:"discount_code,omitempty" json:"discount_code,omitempty"`
	Status           string          `dynamodbav:"status" json:"status"`
	PaymentReference string          `dynamodbav:"payment_reference,omitempty" json:"payment_reference,omitempty"`
	GatewayOrderRef  string          `dynamodbav:"gateway_order_reference,omitempty" json:"gateway_order_reference,omitempty"`
	CreatedAt        time.Time       `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `dynamodbav:"updated_at" json:"updated_at"`
}
