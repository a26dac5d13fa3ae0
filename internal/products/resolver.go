package products

import (
	"context"
	"fmt"

	"github.com/quickbasket/orderflow/internal/orders"
)

// Resolver locates a product id across the two inventory pools: the curated
// catalog is consulted first, then the seller listings.
type Resolver struct {
	catalog  *CatalogStore
	listings *ListingStore
}

// NewResolver wires the two pool stores.
func NewResolver(catalog *CatalogStore, listings *ListingStore) *Resolver {
	return &Resolver{catalog: catalog, listings: listings}
}

// Resolve returns the uniform view of whichever pool owns the id, or
// ErrNotFound when neither does.
func (r *Resolver) Resolve(ctx context.Context, productID string) (*Resolved, error) {
	p, err := r.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return &Resolved{
			Pool:     orders.PoolCatalog,
			ID:       p.ProductID,
			Name:     p.Name,
			Price:    p.Price,
			Stock:    p.InStock,
			ImageURL: p.ImageURL,
		}, nil
	}

	l, err := r.listings.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if l != nil {
		return &Resolved{
			Pool:                orders.PoolListing,
			ID:                  l.ListingID,
			Name:                l.Name,
			Price:               l.Price,
			Stock:               l.StockQuantity,
			ImageURL:            l.ImageURL,
			SellerID:            l.SellerID,
			SellingMode:         l.SellingMode,
			EligiblePostalCodes: l.EligiblePostalCodes,
			Status:              l.Status,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, productID)
}

// Decrement applies the pool-specific conditional stock decrement.
func (r *Resolver) Decrement(ctx context.Context, pool, productID string, qty int) error {
	switch pool {
	case orders.PoolCatalog:
		return r.catalog.DecrementStock(ctx, productID, qty)
	case orders.PoolListing:
		return r.listings.DecrementStock(ctx, productID, qty)
	default:
		return fmt.Errorf("products: unknown pool %q", pool)
	}
}

// Restock reverses a decrement on the owning pool.
func (r *Resolver) Restock(ctx context.Context, pool, productID string, qty int) error {
	switch pool {
	case orders.PoolCatalog:
		return r.catalog.Restock(ctx, productID, qty)
	case orders.PoolListing:
		return r.listings.Restock(ctx, productID, qty)
	default:
		return fmt.Errorf("products: unknown pool %q", pool)
	}
}
