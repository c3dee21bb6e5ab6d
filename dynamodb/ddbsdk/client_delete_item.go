package ddbsdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/acksell/tablekit/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Delete removes one record and returns what was deleted, or nil if there was
// nothing. RequireExists becomes an attribute_exists condition.
func (s *Store) Delete(ctx context.Context, partitionKey, sortKey string, opts ...ddbstore.DeleteOption) (*ddbstore.Record, error) {
	input := &dynamodb.DeleteItemInput{
		TableName:    &s.def.Name,
		Key:          s.def.DDB(table.PrimaryKey{PartitionKey: partitionKey, SortKey: sortKey}),
		ReturnValues: types.ReturnValueAllOld,
	}

	o := ddbstore.ApplyDeleteOptions(opts)
	if o.RequireExists {
		expr, err := expression.NewBuilder().
			WithCondition(expression.AttributeExists(expression.Name(s.def.PartitionKey))).
			Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build condition expression: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	out, err := s.awsddb.DeleteItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, &ddbstore.NotFoundError{Type: o.EntityType, PartitionKey: partitionKey, SortKey: sortKey}
		}
		return nil, s.wrapAPIError("delete item", err)
	}
	if len(out.Attributes) == 0 {
		return nil, nil
	}
	rec, err := s.fromItem(out.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode deleted item: %w", err)
	}
	return &rec, nil
}
