package ddbsdk

import (
	"context"
	"fmt"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/acksell/tablekit/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Get reads one record. It returns nil, nil when there is no such item.
func (s *Store) Get(ctx context.Context, partitionKey, sortKey string) (*ddbstore.Record, error) {
	out, err := s.awsddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.def.Name,
		Key:            s.def.DDB(table.PrimaryKey{PartitionKey: partitionKey, SortKey: sortKey}),
		ConsistentRead: aws.Bool(!s.opts.EventuallyConsistent),
	})
	if err != nil {
		return nil, s.wrapAPIError("get item", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	rec, err := s.fromItem(out.Item)
	if err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &rec, nil
}
