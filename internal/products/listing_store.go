package products

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/quickbasket/orderflow/internal/aws"
)

// ListingStore encapsulates operations on the seller listings table.
type ListingStore struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewListingStore creates a listing store bound to a table.
func NewListingStore(client aws.DynamoDBAPI, tableName string) *ListingStore {
	return &ListingStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Get fetches a listing by id. Returns (nil, nil) if not found.
func (s *ListingStore) Get(ctx context.Context, listingID string) (*SellerListing, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"listing_id": &types.AttributeValueMemberS{Value: listingID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var l SellerListing
	if err := attributevalue.UnmarshalMap(out.Item, &l); err != nil {
		return nil, fmt.Errorf("unmarshal listing: %w", err)
	}
	return &l, nil
}

// Put inserts or replaces a listing. Used by the seed tool.
func (s *ListingStore) Put(ctx context.Context, l SellerListing) error {
	now := s.nowFunc()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = ListingUnsold
	}
	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return fmt.Errorf("marshal listing: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put listing: %w", err)
	}
	return nil
}

// DecrementStock subtracts qty from stock_quantity with the same write-time
// sufficiency guard as the catalog. When the remaining quantity reaches zero
// the listing is flipped to SOLD so it stops surfacing as purchasable.
func (s *ListingStore) DecrementStock(ctx context.Context, listingID string, qty int) error {
	now := s.nowFunc()
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"listing_id": &types.AttributeValueMemberS{Value: listingID},
		},
		UpdateExpression:    awsString("SET stock_quantity = stock_quantity - :q, updated_at = :ua"),
		ConditionExpression: awsString("stock_quantity >= :q"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q":  &types.AttributeValueMemberN{Value: strconv.Itoa(qty)},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrInsufficientStock
		}
		return fmt.Errorf("decrement listing stock: %w", err)
	}

	remaining, ok := out.Attributes["stock_quantity"].(*types.AttributeValueMemberN)
	if !ok {
		return nil
	}
	if n, convErr := strconv.Atoi(remaining.Value); convErr == nil && n <= 0 {
		return s.markSold(ctx, listingID)
	}
	return nil
}

// markSold flips status to SOLD, guarded on the stock actually being zero so
// a concurrent restock cannot be clobbered.
func (s *ListingStore) markSold(ctx context.Context, listingID string) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"listing_id": &types.AttributeValueMemberS{Value: listingID},
		},
		UpdateExpression:         awsString("SET #s = :sold, updated_at = :ua"),
		ConditionExpression:      awsString("stock_quantity = :zero"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sold": &types.AttributeValueMemberS{Value: ListingSold},
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			// stock moved again before the flip; the later writer wins
			return nil
		}
		return fmt.Errorf("mark listing sold: %w", err)
	}
	return nil
}

// Restock adds qty back and returns the listing to UNSOLD. Compensation path
// for aborted orders.
func (s *ListingStore) Restock(ctx context.Context, listingID string, qty int) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"listing_id": &types.AttributeValueMemberS{Value: listingID},
		},
		UpdateExpression:         awsString("SET stock_quantity = stock_quantity + :q, #s = :unsold, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q":      &types.AttributeValueMemberN{Value: strconv.Itoa(qty)},
			":unsold": &types.AttributeValueMemberS{Value: ListingUnsold},
			":ua":     &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("restock listing: %w", err)
	}
	return nil
}
