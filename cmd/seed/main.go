// Seeds the catalog and listings tables with sample inventory for local
// development.
package main

import (
	"context"
	"log"
	"os"

	"github.com/quickbasket/orderflow/internal/aws"
	"github.com/quickbasket/orderflow/internal/products"
)

var sampleCatalog = []products.CatalogProduct{
	{
		ProductID:   "prod_earbuds",
		Name:        "Wireless Bluetooth Earbuds",
		Description: "Premium wireless earbuds with active noise cancellation and 30-hour battery life.",
		Price:       2999,
		Category:    "Electronics",
		InStock:     50,
		ImageURL:    "https://images.unsplash.com/photo-1590658268037-6bf12165a8df?w=500&h=500&fit=crop",
	},
	{
		ProductID:   "prod_tv55",
		Name:        "Smart LED TV 55 inch",
		Description: "Ultra HD 4K Smart TV with HDR10, built-in streaming apps and voice control.",
		Price:       45999,
		Category:    "Electronics",
		InStock:     25,
		ImageURL:    "https://images.unsplash.com/photo-1593359677879-a4bb92f829d1?w=500&h=500&fit=crop",
	},
	{
		ProductID:   "prod_laptop",
		Name:        "Laptop 15.6 inch",
		Description: "High-performance laptop with 16GB RAM, 512GB SSD and dedicated graphics.",
		Price:       69999,
		Category:    "Electronics",
		InStock:     30,
		ImageURL:    "https://images.unsplash.com/photo-1496181133206-80ce9b88a853?w=500&h=500&fit=crop",
	},
	{
		ProductID:   "prod_mug",
		Name:        "Coffee Mug",
		Description: "Ceramic mug for hot beverages.",
		Price:       199,
		Category:    "Kitchen",
		InStock:     100,
		ImageURL:    "https://images.unsplash.com/photo-1504674900247-0877df9cc836?w=500&h=500&fit=crop",
	},
	{
		ProductID:   "prod_yogamat",
		Name:        "Yoga Mat",
		Description: "Non-slip yoga mat for all types of exercise.",
		Price:       899,
		Category:    "Sports",
		InStock:     40,
		ImageURL:    "https://images.unsplash.com/photo-1519864600265-abb23847ef2c?w=500&h=500&fit=crop",
	},
}

var sampleListings = []products.SellerListing{
	{
		ListingID:     "lst_vintage_camera",
		SellerID:      "seller_100",
		Name:          "Vintage Film Camera",
		Description:   "Well-kept 35mm film camera, single owner.",
		Price:         5500,
		StockQuantity: 1,
		SellingMode:   products.ModeNormal,
	},
	{
		ListingID:           "lst_study_table",
		SellerID:            "seller_101",
		Name:                "Study Table (pickup nearby)",
		Description:         "Solid wood study table; heavy item sold only near the seller.",
		Price:               3200,
		StockQuantity:       1,
		SellingMode:         products.ModeSafe,
		EligiblePostalCodes: []string{"560001", "560002", "560003"},
	},
}

func main() {
	ctx := context.Background()

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	catalog := products.NewCatalogStore(clients.DynamoDB, os.Getenv("CATALOG_TABLE"))
	listings := products.NewListingStore(clients.DynamoDB, os.Getenv("LISTINGS_TABLE"))

	for _, p := range sampleCatalog {
		if err := catalog.Put(ctx, p); err != nil {
			log.Fatalf("seed catalog product %s: %v", p.ProductID, err)
		}
	}
	for _, l := range sampleListings {
		if err := listings.Put(ctx, l); err != nil {
			log.Fatalf("seed listing %s: %v", l.ListingID, err)
		}
	}

	log.Printf("seeded %d catalog products and %d listings", len(sampleCatalog), len(sampleListings))
}
