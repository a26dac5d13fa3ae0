// Package dynamofake is an in-memory stand-in for the DynamoDB client,
// covering the narrow expression vocabulary the stores rely on:
//
//	ConditionExpression: attribute_not_exists(x) | x = :v | x >= :v
//	UpdateExpression:    SET a = :v, b = b - :v, c = c + :v
//
// Names may be aliased through ExpressionAttributeNames (e.g. #s).
// It is intended for package tests only.
package dynamofake

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client stores items per table keyed by the table's single partition key.
type Client struct {
	mu     sync.Mutex
	keys   map[string]string                                 // table -> partition key attribute
	tables map[string]map[string]map[string]types.AttributeValue // table -> pk value -> item
}

// New returns an empty fake. Tables must be registered before use.
func New() *Client {
	return &Client{
		keys:   map[string]string{},
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

// CreateTable registers a table with its partition key attribute name.
func (c *Client) CreateTable(table, pkAttr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[table] = pkAttr
	if _, ok := c.tables[table]; !ok {
		c.tables[table] = map[string]map[string]types.AttributeValue{}
	}
}

// Seed inserts an item directly, bypassing conditions.
func (c *Client) Seed(table string, item map[string]types.AttributeValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pk := c.pkOf(table, item)
	c.tables[table][pk] = cloneItem(item)
}

// Item returns a copy of the stored item, or nil when absent.
func (c *Client) Item(table, pkValue string) map[string]types.AttributeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.tables[table][pkValue]
	if !ok {
		return nil
	}
	return cloneItem(item)
}

// Len reports the number of items in a table.
func (c *Client) Len(table string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables[table])
}

func (c *Client) pkOf(table string, attrs map[string]types.AttributeValue) string {
	keyAttr, ok := c.keys[table]
	if !ok {
		panic("dynamofake: unregistered table " + table)
	}
	v, ok := attrs[keyAttr].(*types.AttributeValueMemberS)
	if !ok {
		panic("dynamofake: missing partition key " + keyAttr + " for table " + table)
	}
	return v.Value
}

func (c *Client) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table := *params.TableName
	pk := c.pkOf(table, params.Key)
	item, ok := c.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: cloneItem(item)}, nil
}

func (c *Client) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.putLocked(*params.TableName, params.Item, params.ConditionExpression, params.ExpressionAttributeNames); err != nil {
		return nil, err
	}
	return &dyn.PutItemOutput{}, nil
}

func (c *Client) putLocked(table string, item map[string]types.AttributeValue, cond *string, names map[string]string) error {
	pk := c.pkOf(table, item)
	existing, exists := c.tables[table][pk]
	if cond != nil {
		ok, err := evalCondition(*cond, names, nil, existing, exists)
		if err != nil {
			return err
		}
		if !ok {
			return &types.ConditionalCheckFailedException{}
		}
	}
	c.tables[table][pk] = cloneItem(item)
	return nil
}

func (c *Client) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table := *params.TableName
	pk := c.pkOf(table, params.Key)
	delete(c.tables[table], pk)
	return &dyn.DeleteItemOutput{}, nil
}

func (c *Client) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	table := *params.TableName
	pk := c.pkOf(table, params.Key)
	item, exists := c.tables[table][pk]

	if params.ConditionExpression != nil {
		ok, err := evalCondition(*params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, item, exists)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if !exists {
		item = map[string]types.AttributeValue{}
		for k, v := range params.Key {
			item[k] = v
		}
	}

	if params.UpdateExpression != nil {
		if err := applyUpdate(item, *params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}
	c.tables[table][pk] = item
	return &dyn.UpdateItemOutput{Attributes: cloneItem(item)}, nil
}

func (c *Client) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// first pass checks every condition, second pass applies; a failed
	// condition cancels the whole transaction like the real service
	for _, it := range params.TransactItems {
		p := it.Put
		if p == nil {
			return nil, errors.New("dynamofake: only Put transact items are supported")
		}
		if p.ConditionExpression == nil {
			continue
		}
		table := *p.TableName
		pk := c.pkOf(table, p.Item)
		existing, exists := c.tables[table][pk]
		ok, err := evalCondition(*p.ConditionExpression, p.ExpressionAttributeNames, nil, existing, exists)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.TransactionCanceledException{}
		}
	}
	for _, it := range params.TransactItems {
		p := it.Put
		table := *p.TableName
		pk := c.pkOf(table, p.Item)
		c.tables[table][pk] = cloneItem(p.Item)
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if real, ok := names[name]; ok {
			return real
		}
	}
	return name
}

func evalCondition(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue, exists bool) (bool, error) {
	expr = strings.TrimSpace(expr)

	if strings.HasPrefix(expr, "attribute_not_exists(") && strings.HasSuffix(expr, ")") {
		attr := resolveName(expr[len("attribute_not_exists("):len(expr)-1], names)
		if !exists {
			return true, nil
		}
		_, has := item[attr]
		return !has, nil
	}

	var op string
	switch {
	case strings.Contains(expr, ">="):
		op = ">="
	case strings.Contains(expr, "="):
		op = "="
	default:
		return false, errors.New("dynamofake: unsupported condition " + expr)
	}

	parts := strings.SplitN(expr, op, 2)
	attr := resolveName(strings.TrimSpace(parts[0]), names)
	ref := strings.TrimSpace(parts[1])
	// conditions on a missing item always fail, matching DynamoDB
	if !exists {
		return false, nil
	}
	want, ok := values[ref]
	if !ok {
		return false, errors.New("dynamofake: missing expression value " + ref)
	}
	have, ok := item[attr]
	if !ok {
		return false, nil
	}

	switch op {
	case "=":
		return attrEqual(have, want), nil
	case ">=":
		h, err := numeric(have)
		if err != nil {
			return false, err
		}
		w, err := numeric(want)
		if err != nil {
			return false, err
		}
		return h >= w, nil
	}
	return false, nil
}

func applyUpdate(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "SET ") {
		return errors.New("dynamofake: unsupported update " + expr)
	}
	for _, clause := range strings.Split(expr[len("SET "):], ",") {
		parts := strings.SplitN(clause, "=", 2)
		if len(parts) != 2 {
			return errors.New("dynamofake: malformed clause " + clause)
		}
		target := resolveName(strings.TrimSpace(parts[0]), names)
		rhs := strings.TrimSpace(parts[1])

		var delta float64
		var base string
		switch {
		case strings.Contains(rhs, "-"):
			segs := strings.SplitN(rhs, "-", 2)
			base = resolveName(strings.TrimSpace(segs[0]), names)
			ref := strings.TrimSpace(segs[1])
			d, err := numeric(values[ref])
			if err != nil {
				return err
			}
			delta = -d
		case strings.Contains(rhs, "+"):
			segs := strings.SplitN(rhs, "+", 2)
			base = resolveName(strings.TrimSpace(segs[0]), names)
			ref := strings.TrimSpace(segs[1])
			d, err := numeric(values[ref])
			if err != nil {
				return err
			}
			delta = d
		default:
			v, ok := values[rhs]
			if !ok {
				return errors.New("dynamofake: missing expression value " + rhs)
			}
			item[target] = v
			continue
		}

		cur, err := numeric(item[base])
		if err != nil {
			return err
		}
		item[target] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(cur+delta, 'f', -1, 64)}
	}
	return nil
}

func numeric(v types.AttributeValue) (float64, error) {
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("dynamofake: attribute is not numeric")
	}
	return strconv.ParseFloat(n.Value, 64)
}

func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		an, err1 := strconv.ParseFloat(av.Value, 64)
		bn, err2 := strconv.ParseFloat(bv.Value, 64)
		return err1 == nil && err2 == nil && an == bn
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	}
	return false
}

func cloneItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
