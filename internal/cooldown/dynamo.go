package cooldown

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
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Record is the persisted cooldown row. The table uses userId as partition key
// and category as sort key, with expiresAt (epoch seconds) as its TTL
// attribute. The trigger time is kept in milliseconds so the window is never
// shortened by truncation.
type Record struct {
	UserID            string `dynamodbav:"userId"`
	Category          string `dynamodbav:"category"`
	LastTriggeredAtMs int64  `dynamodbav:"lastTriggeredAtMs"`
	ExpiresAt         int64  `dynamodbav:"expiresAt"`
}

// DynamoStore keeps cooldown records in DynamoDB. The conditional put is the
// atomic check-and-write.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	window    time.Duration
}

// NewDynamoStore builds a store backed by the provided DynamoDB client.
func NewDynamoStore(client dynamoAPI, tableName string, window time.Duration) *DynamoStore {
	if client == nil {
		panic("cooldown: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("cooldown: table name cannot be empty")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &DynamoStore{client: client, tableName: tableName, window: window}
}

// Allow implements the cooldown check.
func (s *DynamoStore) Allow(ctx context.Context, userID, category string, now time.Time) (bool, error) {
	if userID == "" {
		return true, nil
	}
	item, err := attributevalue.MarshalMap(Record{
		UserID:            userID,
		Category:          category,
		LastTriggeredAtMs: now.UnixMilli(),
		ExpiresAt:         now.Add(s.window).Unix(),
	})
	if err != nil {
		return false, fmt.Errorf("cooldown: marshal record: %w", err)
	}

	cutoff := now.Add(-s.window).UnixMilli()
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(userId) OR lastTriggeredAtMs <= :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff, 10)},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("cooldown: put record: %w", err)
	}
	return true, nil
}

// Reset deletes every record for userID.
func (s *DynamoStore) Reset(ctx context.Context, userID string) (int, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("userId = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("cooldown: query records: %w", err)
	}
	var records []Record
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return 0, fmt.Errorf("cooldown: unmarshal records: %w", err)
	}
	removed := 0
	for _, rec := range records {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"userId":   &types.AttributeValueMemberS{Value: rec.UserID},
				"category": &types.AttributeValueMemberS{Value: rec.Category},
			},
		})
		if err != nil {
			return removed, fmt.Errorf("cooldown: delete record: %w", err)
		}
		removed++
	}
	return removed, nil
}
