package ddbsdk

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type mockDynamoDBClient struct {
	getItemFunc    func(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	putItemFunc    func(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	deleteItemFunc func(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	queryFunc      func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	scanFunc       func(ctx context.Context, input *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)

	puts    []*dynamodb.PutItemInput
	deletes []*dynamodb.DeleteItemInput
	queries []*dynamodb.QueryInput
	scans   []*dynamodb.ScanInput
}

var _ AWSDynamoClientV2 = &mockDynamoDBClient{}

func (m *mockDynamoDBClient) GetItem(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getItemFunc != nil {
		return m.getItemFunc(ctx, input, opts...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.puts = append(m.puts, input)
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, input, opts...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDBClient) DeleteItem(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.deletes = append(m.deletes, input)
	if m.deleteItemFunc != nil {
		return m.deleteItemFunc(ctx, input, opts...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDynamoDBClient) Query(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.queries = append(m.queries, input)
	if m.queryFunc != nil {
		return m.queryFunc(ctx, input, opts...)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (m *mockDynamoDBClient) Scan(ctx context.Context, input *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.scans = append(m.scans, input)
	if m.scanFunc != nil {
		return m.scanFunc(ctx, input, opts...)
	}
	return &dynamodb.ScanOutput{}, nil
}

// pagedItems serves items the way DynamoDB pages them: resume after
// ExclusiveStartKey, stop at Limit, and report LastEvaluatedKey whenever the
// limit was hit, even if nothing is left.
func pagedItems(items []Item, keyAttrs []string, startKey Item, limit *int32) ([]Item, Item) {
	start := 0
	if startKey != nil {
		for i, item := range items {
			if sameKey(item, startKey, keyAttrs) {
				start = i + 1
				break
			}
		}
	}
	end := len(items)
	if limit != nil && start+int(*limit) < end {
		end = start + int(*limit)
	}
	out := items[start:end]
	if limit != nil && len(out) == int(*limit) {
		last := out[len(out)-1]
		key := Item{}
		for _, a := range keyAttrs {
			key[a] = last[a]
		}
		return out, key
	}
	return out, nil
}

func sameKey(a, b Item, attrs []string) bool {
	for _, attr := range attrs {
		x, ok1 := a[attr].(*types.AttributeValueMemberS)
		y, ok2 := b[attr].(*types.AttributeValueMemberS)
		if !ok1 || !ok2 || x.Value != y.Value {
			return false
		}
	}
	return true
}
