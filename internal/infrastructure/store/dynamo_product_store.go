package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/commerce-hub/internal/domain/product"
)

// DynamoProductStore implements ProductStore using DynamoDB. The sufficiency
// predicate rides on each UpdateItem as a ConditionExpression, so the
// no-oversell guarantee holds without any read-then-write.
type DynamoProductStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoProduct represents the DynamoDB item structure
type dynamoProduct struct {
	ID        string `dynamodbav:"id"`
	SKU       string `dynamodbav:"sku"`
	Name      string `dynamodbav:"name"`
	Stock     int    `dynamodbav:"stock"`
	Price     string `dynamodbav:"price"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func NewDynamoProductStore(client *dynamodb.Client, tableName string) *DynamoProductStore {
	return &DynamoProductStore{client: client, tableName: tableName}
}

func (s *DynamoProductStore) Get(ctx context.Context, id string) (*product.Product, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, product.ErrProductNotFound
	}

	var item dynamoProduct
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	return item.toProduct()
}

func (s *DynamoProductStore) Insert(ctx context.Context, p *product.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.UpdatedAt = time.Now()

	av, err := attributevalue.MarshalMap(dynamoProduct{
		ID:        p.ID,
		SKU:       p.SKU,
		Name:      p.Name,
		Stock:     p.Stock,
		Price:     p.Price.String(),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put product: %w", err)
	}
	return nil
}

func (s *DynamoProductStore) DecrementStockIfAvailable(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	return s.conditionalStockUpdate(ctx, productID, -qty, "stock >= :abs", qty)
}

func (s *DynamoProductStore) AdjustStockIfAvailable(ctx context.Context, productID string, delta int) (bool, error) {
	if delta < 0 {
		return s.conditionalStockUpdate(ctx, productID, delta, "stock >= :abs", -delta)
	}
	// Positive deltas only require the product to exist.
	return s.conditionalStockUpdate(ctx, productID, delta, "attribute_exists(id)", 0)
}

func (s *DynamoProductStore) ForceIncrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	return s.conditionalStockUpdate(ctx, productID, qty, "attribute_exists(id)", 0)
}

// conditionalStockUpdate applies a single conditional stock delta. A failed
// condition covers both a missing product and insufficient stock; the caller
// cannot tell the two apart.
func (s *DynamoProductStore) conditionalStockUpdate(ctx context.Context, productID string, delta int, condition string, abs int) (bool, error) {
	values := map[string]types.AttributeValue{
		":delta": &types.AttributeValueMemberN{Value: strconv.Itoa(delta)},
		":now":   &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339Nano)},
	}
	if abs > 0 {
		values[":abs"] = &types.AttributeValueMemberN{Value: strconv.Itoa(abs)}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: productID},
		},
		UpdateExpression:          aws.String("SET stock = stock + :delta, updated_at = :now"),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update stock: %w", err)
	}
	return true, nil
}

func (item dynamoProduct) toProduct() (*product.Product, error) {
	price, err := decimal.NewFromString(item.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product price: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse product timestamp: %w", err)
	}
	return &product.Product{
		ID:        item.ID,
		SKU:       item.SKU,
		Name:      item.Name,
		Stock:     item.Stock,
		Price:     price,
		UpdatedAt: updatedAt,
	}, nil
}
