package cooldown

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo evaluates the store's condition expression against an in-memory table.
type fakeDynamo struct {
	mu      sync.Mutex
	items   map[string]Record
	putErr  error
	deletes int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]Record)}
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(in.Item, &rec); err != nil {
		return nil, err
	}
	cutoffAttr := in.ExpressionAttributeValues[":cutoff"].(*types.AttributeValueMemberN)
	cutoff, _ := strconv.ParseInt(cutoffAttr.Value, 10, 64)

	key := rec.UserID + "/" + rec.Category
	if existing, ok := f.items[key]; ok && existing.LastTriggeredAtMs > cutoff {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	f.items[key] = rec
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := in.ExpressionAttributeValues[":uid"].(*types.AttributeValueMemberS).Value
	var out []map[string]types.AttributeValue
	for _, rec := range f.items {
		if rec.UserID != uid {
			continue
		}
		item, err := attributevalue.MarshalMap(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := in.Key["userId"].(*types.AttributeValueMemberS).Value
	cat := in.Key["category"].(*types.AttributeValueMemberS).Value
	delete(f.items, uid+"/"+cat)
	f.deletes++
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStore_Window(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "crisis_cooldowns", 90*time.Second)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	ok, err := store.Allow(ctx, "user-1", "SELF_HARM", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Allow(ctx, "user-1", "SELF_HARM", now.Add(45*time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Allow(ctx, "user-1", "SELF_HARM", now.Add(90*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	rec := fake.items["user-1/SELF_HARM"]
	assert.Equal(t, now.Add(90*time.Second).UnixMilli(), rec.LastTriggeredAtMs)
	assert.Equal(t, now.Add(180*time.Second).Unix(), rec.ExpiresAt)
}

func TestDynamoStore_WindowKeepsSubSecondPrecision(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "crisis_cooldowns", 90*time.Second)
	ctx := context.Background()
	first := time.Unix(1_700_000_000, 0).Add(500 * time.Millisecond)

	ok, err := store.Allow(ctx, "user-1", "SELF_HARM", first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Allow(ctx, "user-1", "SELF_HARM", first.Add(90*time.Second-500*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, ok, "89.5s after the trigger the window is still open")

	ok, err = store.Allow(ctx, "user-1", "SELF_HARM", first.Add(90*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDynamoStore_AnonymousSkipsTable(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "crisis_cooldowns", time.Minute)

	ok, err := store.Allow(context.Background(), "", "SELF_HARM", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, fake.items)
}

func TestDynamoStore_PutErrorSurfaces(t *testing.T) {
	fake := newFakeDynamo()
	fake.putErr = errors.New("ProvisionedThroughputExceededException")
	store := NewDynamoStore(fake, "crisis_cooldowns", time.Minute)

	_, err := store.Allow(context.Background(), "user-1", "SELF_HARM", time.Now())
	assert.ErrorContains(t, err, "cooldown: put record")
}

func TestDynamoStore_Reset(t *testing.T) {
	fake := newFakeDynamo()
	store := NewDynamoStore(fake, "crisis_cooldowns", time.Minute)
	ctx := context.Background()
	now := time.Now()

	_, _ = store.Allow(ctx, "user-1", "SELF_HARM", now)
	_, _ = store.Allow(ctx, "user-1", "TRAFFICKING", now)
	_, _ = store.Allow(ctx, "user-2", "SELF_HARM", now)

	removed, err := store.Reset(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Len(t, fake.items, 1)
}

func TestNewDynamoStorePanicsWithoutTable(t *testing.T) {
	assert.Panics(t, func() { NewDynamoStore(newFakeDynamo(), "", time.Minute) })
}
