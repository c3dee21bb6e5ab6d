package ddbsdk

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/acksell/tablekit/dynamodb/internal/cursor"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// readFunc issues one DynamoDB request. limit 0 means no limit.
type readFunc func(ctx context.Context, startKey Item, limit int32) (items []Item, lastKey Item, err error)

// Query reads one partition in ascending sort key order.
func (s *Store) Query(ctx context.Context, q ddbstore.KeyQuery, page ddbstore.PageOptions) (*ddbstore.Page, error) {
	strategy, ok := strategyFor(q.SortCondition)
	if !ok {
		return emptyPage(), nil
	}
	key := expression.KeyEqual(expression.Key(s.def.PartitionKey), expression.Value(q.PartitionKey))
	if strategy != nil {
		key = key.And(strategy(s.def.SortKey))
	}
	read, err := s.queryReader(key, "", aws.Bool(!s.opts.EventuallyConsistent))
	if err != nil {
		return nil, err
	}
	shape := fmt.Sprintf("query %q %s", q.PartitionKey, conditionShape(q.SortCondition))
	return s.paginate(ctx, shape, "", page, read)
}

// QueryByAttribute reads the index whose partition attribute is q.AttributeName.
// Index reads are eventually consistent.
func (s *Store) QueryByAttribute(ctx context.Context, q ddbstore.AttributeQuery, page ddbstore.PageOptions) (*ddbstore.Page, error) {
	gsi, ok := s.def.GSIByPartitionKey(q.AttributeName)
	if !ok {
		return emptyPage(), nil
	}
	if q.SortCondition != nil && q.SortCondition.Attribute != "" && q.SortCondition.Attribute != gsi.SortKey {
		return emptyPage(), nil
	}
	strategy, ok := strategyFor(q.SortCondition)
	if !ok {
		return emptyPage(), nil
	}
	key := expression.KeyEqual(expression.Key(gsi.PartitionKey), expression.Value(q.AttributeValue))
	if strategy != nil {
		key = key.And(strategy(gsi.SortKey))
	}
	read, err := s.queryReader(key, gsi.Name, nil)
	if err != nil {
		return nil, err
	}
	shape := fmt.Sprintf("index %q %q %s", gsi.Name, q.AttributeValue, conditionShape(q.SortCondition))
	return s.paginate(ctx, shape, gsi.Name, page, read)
}

// Scan reads the whole table. DynamoDB returns items in hash order of the
// partition key, which is stable but not sorted.
func (s *Store) Scan(ctx context.Context, page ddbstore.PageOptions) (*ddbstore.Page, error) {
	read := func(ctx context.Context, startKey Item, limit int32) ([]Item, Item, error) {
		input := &dynamodb.ScanInput{
			TableName:         &s.def.Name,
			ExclusiveStartKey: startKey,
			ConsistentRead:    aws.Bool(!s.opts.EventuallyConsistent),
		}
		if limit > 0 {
			input.Limit = &limit
		}
		out, err := s.awsddb.Scan(ctx, input)
		if err != nil {
			return nil, nil, s.wrapAPIError("scan", err)
		}
		return out.Items, out.LastEvaluatedKey, nil
	}
	return s.paginate(ctx, "scan", "", page, read)
}

func (s *Store) queryReader(key expression.KeyConditionBuilder, indexName string, consistent *bool) (readFunc, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(key).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}
	var index *string
	if indexName != "" {
		index = &indexName
	}
	return func(ctx context.Context, startKey Item, limit int32) ([]Item, Item, error) {
		input := &dynamodb.QueryInput{
			TableName:                 &s.def.Name,
			IndexName:                 index,
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ConsistentRead:            consistent,
			ScanIndexForward:          aws.Bool(true),
			ExclusiveStartKey:         startKey,
		}
		if limit > 0 {
			input.Limit = &limit
		}
		out, err := s.awsddb.Query(ctx, input)
		if err != nil {
			return nil, nil, s.wrapAPIError("query", err)
		}
		return out.Items, out.LastEvaluatedKey, nil
	}, nil
}

// paginate follows LastEvaluatedKey until the page is full. It asks for one
// item more than the limit, so a page that ends exactly at the last item is
// reported as done instead of costing the caller one more empty page.
func (s *Store) paginate(ctx context.Context, shape, indexName string, opts ddbstore.PageOptions, read readFunc) (*ddbstore.Page, error) {
	startKey := s.decodeCursor(shape, opts.Cursor)
	resumed := startKey != nil

	want := 0
	if opts.Limit > 0 {
		want = opts.Limit + 1
	}
	var items []Item
	for {
		var limit int32
		if want > 0 {
			limit = int32(want - len(items))
		}
		got, lastKey, err := read(ctx, startKey, limit)
		if err != nil {
			return nil, err
		}
		items = append(items, got...)
		if len(lastKey) == 0 || (want > 0 && len(items) >= want) {
			break
		}
		startKey = lastKey
	}

	page := &ddbstore.Page{Count: ddbstore.CountUnknown}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
		next, err := s.encodeCursor(shape, s.keyOf(items[len(items)-1], indexName))
		if err != nil {
			return nil, err
		}
		page.NextCursor = next
	}

	page.Records = make([]ddbstore.Record, 0, len(items))
	for _, item := range items {
		rec, err := s.fromItem(item)
		if err != nil {
			return nil, fmt.Errorf("failed to decode item: %w", err)
		}
		page.Records = append(page.Records, rec)
	}
	if page.NextCursor == "" && !resumed {
		page.Count = len(page.Records)
	}
	return page, nil
}

func (s *Store) encodeCursor(shape string, key Item) (string, error) {
	var plain map[string]string
	if err := attributevalue.UnmarshalMap(key, &plain); err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	b, err := json.Marshal(plain)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return cursor.Encode(shape, b), nil
}

// decodeCursor returns the ExclusiveStartKey stored in token, or nil to start over.
func (s *Store) decodeCursor(shape, token string) Item {
	if token == "" {
		return nil
	}
	b, ok := cursor.Decode(shape, token)
	if !ok {
		s.log.Debug("ignoring invalid cursor")
		return nil
	}
	var plain map[string]string
	if err := json.Unmarshal(b, &plain); err != nil || len(plain) == 0 {
		s.log.Debug("ignoring invalid cursor")
		return nil
	}
	key, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil
	}
	return key
}

func emptyPage() *ddbstore.Page {
	return &ddbstore.Page{Records: []ddbstore.Record{}}
}

// conditionShape identifies a sort condition inside a cursor shape. Quoting
// keeps bounds containing spaces or separators apart.
func conditionShape(c *ddbstore.SortCondition) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%q %T %q", c.Op, c.Value, c.Value)
}
