package products

import (
	"errors"
	"time"
)

// Selling modes for seller listings.
const (
	ModeNormal = "NORMAL"
	ModeSafe   = "SAFE"
)

// Listing sale states. A listing whose stock hits zero is flipped to SOLD.
const (
	ListingUnsold = "UNSOLD"
	ListingSold   = "SOLD"
)

var (
	// ErrNotFound means the product id exists in neither pool.
	ErrNotFound = errors.New("products: not found")
	// ErrInsufficientStock is returned when a conditional decrement is
	// rejected by the store, i.e. stock ran out between read and write.
	ErrInsufficientStock = errors.New("products: insufficient stock")
)

// CatalogProduct is the item stored in the curated catalog table.
// The stock attribute keeps the legacy name in_stock.
type CatalogProduct struct {
	ProductID   string    `dynamodbav:"product_id"` // PK
	Name        string    `dynamodbav:"name"`
	Description string    `dynamodbav:"description,omitempty"`
	Price       float64   `dynamodbav:"price"`
	Category    string    `dynamodbav:"category,omitempty"`
	InStock     int       `dynamodbav:"in_stock"`
	ImageURL    string    `dynamodbav:"image_url,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"`
}

// SellerListing is the item stored in the peer-to-peer listings table.
type SellerListing struct {
	ListingID           string    `dynamodbav:"listing_id"` // PK
	SellerID            string    `dynamodbav:"seller_id"`
	Name                string    `dynamodbav:"name"`
	Description         string    `dynamodbav:"description,omitempty"`
	Price               float64   `dynamodbav:"price"`
	StockQuantity       int       `dynamodbav:"stock_quantity"`
	SellingMode         string    `dynamodbav:"selling_mode"` // NORMAL | SAFE
	EligiblePostalCodes []string  `dynamodbav:"eligible_postal_codes,omitempty"`
	Status              string    `dynamodbav:"status"` // UNSOLD | SOLD
	ImageURL            string    `dynamodbav:"image_url,omitempty"`
	CreatedAt           time.Time `dynamodbav:"created_at"`
	UpdatedAt           time.Time `dynamodbav:"updated_at"`
}

// Resolved is the uniform stock-bearing view over both pools. Listing-only
// fields are zero for catalog products.
type Resolved struct {
	Pool     string // orders.PoolCatalog | orders.PoolListing
	ID       string
	Name     string
	Price    float64
	Stock    int
	ImageURL string

	SellerID            string
	SellingMode         string
	EligiblePostalCodes []string
	Status              string
}
