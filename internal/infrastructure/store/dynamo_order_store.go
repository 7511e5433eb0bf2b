package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/commerce-hub/internal/domain/order"
)

// DynamoOrderStore implements OrderStore using DynamoDB. The conditional
// replace is a full PutItem guarded on the stored status still not being
// shipped at write time.
type DynamoOrderStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoOrder represents the DynamoDB item structure
type dynamoOrder struct {
	ID         string `dynamodbav:"id"`
	CustomerID string `dynamodbav:"customer_id"`
	Items      string `dynamodbav:"items"`
	Total      string `dynamodbav:"total"`
	Status     string `dynamodbav:"status"`
	CreatedAt  string `dynamodbav:"created_at"`
	UpdatedAt  string `dynamodbav:"updated_at"`
}

func NewDynamoOrderStore(client *dynamodb.Client, tableName string) *DynamoOrderStore {
	return &DynamoOrderStore{client: client, tableName: tableName}
}

func (s *DynamoOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, order.ErrOrderNotFound
	}

	var item dynamoOrder
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return item.toOrder()
}

func (s *DynamoOrderStore) Insert(ctx context.Context, o *order.Order) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}

	av, err := marshalOrder(o)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put order: %w", err)
	}
	return nil
}

func (s *DynamoOrderStore) ReplaceIfNotShipped(ctx context.Context, id string, replacement *order.Order) (bool, error) {
	replacement.ID = id

	av, err := marshalOrder(replacement)
	if err != nil {
		return false, err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(id) AND #status <> :shipped"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":shipped": &types.AttributeValueMemberS{Value: string(order.StatusShipped)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to replace order: %w", err)
	}
	return true, nil
}

func marshalOrder(o *order.Order) (map[string]types.AttributeValue, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order items: %w", err)
	}

	av, err := attributevalue.MarshalMap(dynamoOrder{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Items:      string(itemsJSON),
		Total:      o.Total.String(),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  o.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}
	return av, nil
}

func (item dynamoOrder) toOrder() (*order.Order, error) {
	var items []order.OrderItem
	if err := json.Unmarshal([]byte(item.Items), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	total, err := decimal.NewFromString(item.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order total: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order timestamp: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order timestamp: %w", err)
	}
	return &order.Order{
		ID:         item.ID,
		CustomerID: item.CustomerID,
		Items:      items,
		Total:      total,
		Status:     order.Status(item.Status),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}
