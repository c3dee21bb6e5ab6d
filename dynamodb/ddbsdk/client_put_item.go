package ddbsdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Put writes the record as a full item replace. RequireAbsent becomes an
// attribute_not_exists condition on the partition key.
func (s *Store) Put(ctx context.Context, rec ddbstore.Record, opts ...ddbstore.PutOption) error {
	item, err := s.toItem(rec)
	if err != nil {
		return err
	}
	input := &dynamodb.PutItemInput{
		TableName: &s.def.Name,
		Item:      item,
	}

	o := ddbstore.ApplyPutOptions(opts)
	if o.RequireAbsent {
		expr, err := expression.NewBuilder().
			WithCondition(expression.AttributeNotExists(expression.Name(s.def.PartitionKey))).
			Build()
		if err != nil {
			return fmt.Errorf("failed to build condition expression: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
		input.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld
	}

	_, err = s.awsddb.PutItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			typ := rec.Type
			if typ == "" {
				if old, ok := ccf.Item[s.def.TypeAttribute].(*types.AttributeValueMemberS); ok {
					typ = old.Value
				}
			}
			return &ddbstore.AlreadyExistsError{Type: typ, PartitionKey: rec.PartitionKey, SortKey: rec.SortKey}
		}
		return s.wrapAPIError("put item", err)
	}
	return nil
}
