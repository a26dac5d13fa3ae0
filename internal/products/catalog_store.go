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

// CatalogStore encapsulates operations on the curated catalog table.
type CatalogStore struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewCatalogStore creates a catalog store bound to a table.
func NewCatalogStore(client aws.DynamoDBAPI, tableName string) *CatalogStore {
	return &CatalogStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Get fetches a catalog product by id. Returns (nil, nil) if not found.
func (s *CatalogStore) Get(ctx context.Context, productID string) (*CatalogProduct, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get catalog product: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p CatalogProduct
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal catalog product: %w", err)
	}
	return &p, nil
}

// Put inserts or replaces a catalog product. Used by the seed tool.
func (s *CatalogStore) Put(ctx context.Context, p CatalogProduct) error {
	now := s.nowFunc()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal catalog product: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put catalog product: %w", err)
	}
	return nil
}

// DecrementStock subtracts qty from in_stock, guarded so the write only
// lands while in_stock >= qty. Concurrent orders for the same scarce product
// serialize here; the loser gets ErrInsufficientStock.
func (s *CatalogStore) DecrementStock(ctx context.Context, productID string, qty int) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
		UpdateExpression:    awsString("SET in_stock = in_stock - :q, updated_at = :ua"),
		ConditionExpression: awsString("in_stock >= :q"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q":  &types.AttributeValueMemberN{Value: strconv.Itoa(qty)},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrInsufficientStock
		}
		return fmt.Errorf("decrement catalog stock: %w", err)
	}
	return nil
}

// Restock adds qty back to in_stock. Compensation path for aborted orders.
func (s *CatalogStore) Restock(ctx context.Context, productID string, qty int) error {
	now := s.nowFunc()
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
		UpdateExpression: awsString("SET in_stock = in_stock + :q, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":q":  &types.AttributeValueMemberN{Value: strconv.Itoa(qty)},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("restock catalog product: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
