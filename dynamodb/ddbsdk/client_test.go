package ddbsdk

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"testing"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/acksell/tablekit/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var clientTestTable = table.SingleTable("app")

func newTestClient(t *testing.T, mock *mockDynamoDBClient) *Store {
	store, err := New(mock, clientTestTable, Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return store
}

func strAV(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func numAV(v string) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: v}
}

func nameValues(names map[string]string) []string {
	return slices.Sorted(maps.Values(names))
}

func TestNew(t *testing.T) {
	_, err := New(nil, clientTestTable, Options{})
	require.Error(t, err)

	_, err = New(&mockDynamoDBClient{}, table.Definition{}, Options{})
	require.Error(t, err)
}

func TestStore_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("lays the record out as an item", func(t *testing.T) {
		mock := &mockDynamoDBClient{}
		store := newTestClient(t, mock)

		err := store.Put(ctx, ddbstore.Record{
			PartitionKey: "U#1",
			SortKey:      "P",
			Type:         "user",
			Secondary:    map[string]ddbstore.SecondaryKey{"GSI1": {Partition: "E#a@b.c", Sort: "U#1"}},
			Attributes:   map[string]types.AttributeValue{"name": strAV("Ada")},
			CreatedAt:    100,
			UpdatedAt:    200,
		})
		require.NoError(t, err)
		require.Len(t, mock.puts, 1)

		input := mock.puts[0]
		assert.Equal(t, "app", *input.TableName)
		assert.Nil(t, input.ConditionExpression)
		assert.Equal(t, Item{
			"PK":        strAV("U#1"),
			"SK":        strAV("P"),
			"type":      strAV("user"),
			"createdAt": numAV("100"),
			"updatedAt": numAV("200"),
			"GSI1PK":    strAV("E#a@b.c"),
			"GSI1SK":    strAV("U#1"),
			"name":      strAV("Ada"),
		}, input.Item)
	})

	t.Run("require absent", func(t *testing.T) {
		mock := &mockDynamoDBClient{}
		store := newTestClient(t, mock)

		require.NoError(t, store.Put(ctx, ddbstore.Record{PartitionKey: "U#1", SortKey: "P"}, ddbstore.RequireAbsent()))

		input := mock.puts[0]
		require.NotNil(t, input.ConditionExpression)
		assert.Contains(t, *input.ConditionExpression, "attribute_not_exists")
		assert.Equal(t, []string{"PK"}, nameValues(input.ExpressionAttributeNames))
		assert.Equal(t, types.ReturnValuesOnConditionCheckFailureAllOld, input.ReturnValuesOnConditionCheckFailure)
	})

	t.Run("failed condition is already exists", func(t *testing.T) {
		mock := &mockDynamoDBClient{
			putItemFunc: func(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{
					Message: aws.String("The conditional request failed"),
					Item:    Item{"PK": strAV("U#1"), "SK": strAV("P"), "type": strAV("user")},
				}
			},
		}
		store := newTestClient(t, mock)

		err := store.Put(ctx, ddbstore.Record{PartitionKey: "U#1", SortKey: "P"}, ddbstore.RequireAbsent())
		require.ErrorIs(t, err, ddbstore.ErrAlreadyExists)
		var exists *ddbstore.AlreadyExistsError
		require.ErrorAs(t, err, &exists)
		assert.Equal(t, "user", exists.Type)
		assert.Equal(t, "U#1", exists.PartitionKey)
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		boom := errors.New("throttled")
		mock := &mockDynamoDBClient{
			putItemFunc: func(ctx context.Context, input *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
				return nil, boom
			},
		}
		store := newTestClient(t, mock)

		err := store.Put(ctx, ddbstore.Record{PartitionKey: "U#1", SortKey: "P"})
		require.ErrorIs(t, err, boom)
		assert.False(t, ddbstore.IsAlreadyExists(err))
	})

	t.Run("invalid records are not sent", func(t *testing.T) {
		mock := &mockDynamoDBClient{}
		store := newTestClient(t, mock)

		for _, rec := range []ddbstore.Record{
			{SortKey: "P"},
			{PartitionKey: "U#1", SortKey: "P", Attributes: map[string]types.AttributeValue{"GSI1PK": strAV("x")}},
			{PartitionKey: "U#1", SortKey: "P", Secondary: map[string]ddbstore.SecondaryKey{"GSI1": {Partition: "x"}}},
		} {
			err := store.Put(ctx, rec)
			require.ErrorIs(t, err, ddbstore.ErrInvalidRecord)
		}
		assert.Empty(t, mock.puts)
	})
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("missing item", func(t *testing.T) {
		store := newTestClient(t, &mockDynamoDBClient{})
		rec, err := store.Get(ctx, "U#1", "P")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("decodes the item", func(t *testing.T) {
		mock := &mockDynamoDBClient{
			getItemFunc: func(ctx context.Context, input *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
				assert.Equal(t, Item{"PK": strAV("U#1"), "SK": strAV("P")}, input.Key)
				assert.True(t, *input.ConsistentRead)
				return &dynamodb.GetItemOutput{Item: Item{
					"PK":        strAV("U#1"),
					"SK":        strAV("P"),
					"type":      strAV("user"),
					"createdAt": numAV("100"),
					"GSI2PK":    strAV("ROLE#admin"),
					"GSI2SK":    strAV("U#1"),
					"name":      strAV("Ada"),
				}}, nil
			},
		}
		store := newTestClient(t, mock)

		rec, err := store.Get(ctx, "U#1", "P")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, ddbstore.Record{
			PartitionKey: "U#1",
			SortKey:      "P",
			Type:         "user",
			Secondary:    map[string]ddbstore.SecondaryKey{"GSI2": {Partition: "ROLE#admin", Sort: "U#1"}},
			Attributes:   map[string]types.AttributeValue{"name": strAV("Ada")},
			CreatedAt:    100,
		}, *rec)
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the old item", func(t *testing.T) {
		mock := &mockDynamoDBClient{
			deleteItemFunc: func(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
				return &dynamodb.DeleteItemOutput{Attributes: Item{"PK": strAV("U#1"), "SK": strAV("P"), "type": strAV("user")}}, nil
			},
		}
		store := newTestClient(t, mock)

		rec, err := store.Delete(ctx, "U#1", "P")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "user", rec.Type)
		assert.Equal(t, types.ReturnValueAllOld, mock.deletes[0].ReturnValues)
		assert.Nil(t, mock.deletes[0].ConditionExpression)
	})

	t.Run("absent item without precondition", func(t *testing.T) {
		store := newTestClient(t, &mockDynamoDBClient{})
		rec, err := store.Delete(ctx, "U#1", "P")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("require exists", func(t *testing.T) {
		mock := &mockDynamoDBClient{
			deleteItemFunc: func(ctx context.Context, input *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
				return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
			},
		}
		store := newTestClient(t, mock)

		_, err := store.Delete(ctx, "U#9", "P", ddbstore.RequireExists(), ddbstore.WithEntityType("alert"))
		require.ErrorIs(t, err, ddbstore.ErrNotFound)
		var notFound *ddbstore.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "alert", notFound.Type)

		input := mock.deletes[0]
		require.NotNil(t, input.ConditionExpression)
		assert.Contains(t, *input.ConditionExpression, "attribute_exists")
		assert.Equal(t, []string{"PK"}, nameValues(input.ExpressionAttributeNames))
	})
}

func partitionItems(pk string, count int) []Item {
	var items []Item
	for i := 0; i < count; i++ {
		items = append(items, Item{"PK": strAV(pk), "SK": strAV(fmt.Sprintf("H#%02d", i))})
	}
	return items
}

func TestStore_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("key condition", func(t *testing.T) {
		mock := &mockDynamoDBClient{}
		store := newTestClient(t, mock)

		_, err := store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1", SortCondition: ddbstore.BeginsWith("H#")}, ddbstore.PageOptions{})
		require.NoError(t, err)
		require.Len(t, mock.queries, 1)

		input := mock.queries[0]
		assert.Nil(t, input.IndexName)
		assert.Nil(t, input.Limit)
		assert.True(t, *input.ScanIndexForward)
		assert.True(t, *input.ConsistentRead)
		assert.Contains(t, *input.KeyConditionExpression, "begins_with")
		assert.Equal(t, []string{"PK", "SK"}, nameValues(input.ExpressionAttributeNames))
		assert.ElementsMatch(t, []types.AttributeValue{strAV("U#1"), strAV("H#")}, slices.Collect(maps.Values(input.ExpressionAttributeValues)))
	})

	t.Run("conditions that match nothing are not sent", func(t *testing.T) {
		mock := &mockDynamoDBClient{}
		store := newTestClient(t, mock)

		for _, cond := range []*ddbstore.SortCondition{
			{Op: ddbstore.OpBetween, Value: "A"},
			{Op: ddbstore.OpEqual, Value: 1},
			ddbstore.Between("Z", "A"),
		} {
			page, err := store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1", SortCondition: cond}, ddbstore.PageOptions{})
			require.NoError(t, err)
			assert.Empty(t, page.Records)
			assert.True(t, page.Done())
		}
		assert.Empty(t, mock.queries)
	})

	t.Run("pages follow the cursor", func(t *testing.T) {
		items := partitionItems("U#1", 5)
		mock := &mockDynamoDBClient{
			queryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				out, last := pagedItems(items, []string{"PK", "SK"}, input.ExclusiveStartKey, input.Limit)
				return &dynamodb.QueryOutput{Items: out, LastEvaluatedKey: last}, nil
			},
		}
		store := newTestClient(t, mock)

		var got []string
		opts := ddbstore.PageOptions{Limit: 2}
		pages := 0
		for {
			page, err := store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1"}, opts)
			require.NoError(t, err)
			pages++
			assert.Equal(t, ddbstore.CountUnknown, page.Count)
			for _, r := range page.Records {
				got = append(got, r.SortKey)
			}
			if page.Done() {
				break
			}
			opts.Cursor = page.NextCursor
		}
		assert.Equal(t, []string{"H#00", "H#01", "H#02", "H#03", "H#04"}, got)
		assert.Equal(t, 3, pages)
		assert.Equal(t, int32(3), *mock.queries[0].Limit, "one extra item detects the end")
	})

	t.Run("exact exhaustion is done", func(t *testing.T) {
		items := partitionItems("U#1", 4)
		mock := &mockDynamoDBClient{
			queryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				out, last := pagedItems(items, []string{"PK", "SK"}, input.ExclusiveStartKey, input.Limit)
				return &dynamodb.QueryOutput{Items: out, LastEvaluatedKey: last}, nil
			},
		}
		store := newTestClient(t, mock)

		page, err := store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1"}, ddbstore.PageOptions{Limit: 2})
		require.NoError(t, err)
		page, err = store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1"}, ddbstore.PageOptions{Limit: 2, Cursor: page.NextCursor})
		require.NoError(t, err)
		assert.Len(t, page.Records, 2)
		assert.True(t, page.Done())
	})

	t.Run("unlimited reads follow every page", func(t *testing.T) {
		items := partitionItems("U#1", 7)
		mock := &mockDynamoDBClient{
			queryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				// simulate the 1MB response cap
				out, last := pagedItems(items, []string{"PK", "SK"}, input.ExclusiveStartKey, aws.Int32(3))
				return &dynamodb.QueryOutput{Items: out, LastEvaluatedKey: last}, nil
			},
		}
		store := newTestClient(t, mock)

		page, err := store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1"}, ddbstore.PageOptions{})
		require.NoError(t, err)
		assert.Len(t, page.Records, 7)
		assert.Equal(t, 7, page.Count)
		assert.True(t, page.Done())
	})

	t.Run("cursor of another query restarts", func(t *testing.T) {
		items := partitionItems("U#1", 4)
		mock := &mockDynamoDBClient{
			queryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				out, last := pagedItems(items, []string{"PK", "SK"}, input.ExclusiveStartKey, input.Limit)
				return &dynamodb.QueryOutput{Items: out, LastEvaluatedKey: last}, nil
			},
		}
		store := newTestClient(t, mock)

		page, err := store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1"}, ddbstore.PageOptions{Limit: 1})
		require.NoError(t, err)
		require.NotEmpty(t, page.NextCursor)

		_, err = store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#2"}, ddbstore.PageOptions{Limit: 1, Cursor: page.NextCursor})
		require.NoError(t, err)
		assert.Nil(t, mock.queries[len(mock.queries)-1].ExclusiveStartKey)

		_, err = store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1"}, ddbstore.PageOptions{Limit: 1, Cursor: "garbage"})
		require.NoError(t, err)
		assert.Nil(t, mock.queries[len(mock.queries)-1].ExclusiveStartKey)

		page, err = store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1", SortCondition: ddbstore.Between("a", "b c")}, ddbstore.PageOptions{Limit: 1})
		require.NoError(t, err)
		require.NotEmpty(t, page.NextCursor)
		_, err = store.Query(ctx, ddbstore.KeyQuery{PartitionKey: "U#1", SortCondition: ddbstore.Between("a b", "c")}, ddbstore.PageOptions{Limit: 1, Cursor: page.NextCursor})
		require.NoError(t, err)
		assert.Nil(t, mock.queries[len(mock.queries)-1].ExclusiveStartKey)
	})
}

func TestStore_QueryByAttribute(t *testing.T) {
	ctx := context.Background()

	t.Run("queries the index", func(t *testing.T) {
		items := []Item{
			{"PK": strAV("U#1"), "SK": strAV("H#AAPL"), "GSI1PK": strAV("T#AAPL"), "GSI1SK": strAV("U#1")},
			{"PK": strAV("U#2"), "SK": strAV("H#AAPL"), "GSI1PK": strAV("T#AAPL"), "GSI1SK": strAV("U#2")},
		}
		mock := &mockDynamoDBClient{
			queryFunc: func(ctx context.Context, input *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
				out, last := pagedItems(items, []string{"PK", "SK", "GSI1PK", "GSI1SK"}, input.ExclusiveStartKey, input.Limit)
				return &dynamodb.QueryOutput{Items: out, LastEvaluatedKey: last}, nil
			},
		}
		store := newTestClient(t, mock)

		page, err := store.QueryByAttribute(ctx, ddbstore.AttributeQuery{
			AttributeName:  "GSI1PK",
			AttributeValue: "T#AAPL",
			SortCondition:  ddbstore.GreaterThan("U#").On("GSI1SK"),
		}, ddbstore.PageOptions{Limit: 1})
		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		assert.False(t, page.Done())

		input := mock.queries[0]
		assert.Equal(t, "GSI1", *input.IndexName)
		assert.Nil(t, input.ConsistentRead)
		assert.Equal(t, []string{"GSI1PK", "GSI1SK"}, nameValues(input.ExpressionAttributeNames))

		page, err = store.QueryByAttribute(ctx, ddbstore.AttributeQuery{
			AttributeName:  "GSI1PK",
			AttributeValue: "T#AAPL",
			SortCondition:  ddbstore.GreaterThan("U#").On("GSI1SK"),
		}, ddbstore.PageOptions{Limit: 1, Cursor: page.NextCursor})
		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		assert.Equal(t, "U#2", page.Records[0].PartitionKey)
		assert.Equal(t, Item{"PK": strAV("U#1"), "SK": strAV("H#AAPL"), "GSI1PK": strAV("T#AAPL"), "GSI1SK": strAV("U#1")}, mock.queries[1].ExclusiveStartKey)
	})

	t.Run("shape mistakes are empty", func(t *testing.T) {
		mock := &mockDynamoDBClient{}
		store := newTestClient(t, mock)

		for _, q := range []ddbstore.AttributeQuery{
			{AttributeName: "email", AttributeValue: "x"},
			{AttributeName: "GSI1PK", AttributeValue: "x", SortCondition: ddbstore.Equals("y").On("GSI2SK")},
			{AttributeName: "GSI1PK", AttributeValue: "x", SortCondition: &ddbstore.SortCondition{Op: ddbstore.OpBetween, Value: []string{"a"}}},
		} {
			page, err := store.QueryByAttribute(ctx, q, ddbstore.PageOptions{})
			require.NoError(t, err)
			assert.Empty(t, page.Records)
		}
		assert.Empty(t, mock.queries)
	})
}

func TestStore_Scan(t *testing.T) {
	ctx := context.Background()
	items := append(partitionItems("U#1", 2), partitionItems("U#2", 2)...)
	mock := &mockDynamoDBClient{
		scanFunc: func(ctx context.Context, input *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			out, last := pagedItems(items, []string{"PK", "SK"}, input.ExclusiveStartKey, input.Limit)
			return &dynamodb.ScanOutput{Items: out, LastEvaluatedKey: last}, nil
		},
	}
	store := newTestClient(t, mock)

	page, err := store.Scan(ctx, ddbstore.PageOptions{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Records, 3)
	require.False(t, page.Done())

	page, err = store.Scan(ctx, ddbstore.PageOptions{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "U#2", page.Records[0].PartitionKey)
	assert.Equal(t, "H#01", page.Records[0].SortKey)
	assert.True(t, page.Done())
}
