package ddbsdk

import (
	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// SortKeyStrategy defines how to filter on the sort key in a range query.
type SortKeyStrategy func(skName string) expression.KeyConditionBuilder

// strategyFor translates a sort condition into a key condition. ok is false
// for conditions that can match nothing, which are never sent to DynamoDB.
func strategyFor(cond *ddbstore.SortCondition) (SortKeyStrategy, bool) {
	if cond == nil {
		return nil, true
	}
	if !cond.Valid() {
		return nil, false
	}
	if cond.Op == ddbstore.OpBetween {
		lo, hi, _ := cond.Bounds()
		if lo > hi {
			return nil, false
		}
		return func(skName string) expression.KeyConditionBuilder {
			return expression.KeyBetween(expression.Key(skName), expression.Value(lo), expression.Value(hi))
		}, true
	}

	v := cond.Value.(string)
	switch cond.Op {
	case ddbstore.OpEqual:
		return func(skName string) expression.KeyConditionBuilder {
			return expression.KeyEqual(expression.Key(skName), expression.Value(v))
		}, true
	case ddbstore.OpBeginsWith:
		if v == "" {
			// begins_with requires a non-empty prefix; every value has the empty one.
			return nil, true
		}
		return func(skName string) expression.KeyConditionBuilder {
			return expression.KeyBeginsWith(expression.Key(skName), v)
		}, true
	case ddbstore.OpGreaterThan:
		return func(skName string) expression.KeyConditionBuilder {
			return expression.KeyGreaterThan(expression.Key(skName), expression.Value(v))
		}, true
	case ddbstore.OpGreaterOrEqual:
		return func(skName string) expression.KeyConditionBuilder {
			return expression.KeyGreaterThanEqual(expression.Key(skName), expression.Value(v))
		}, true
	case ddbstore.OpLessThan:
		return func(skName string) expression.KeyConditionBuilder {
			return expression.KeyLessThan(expression.Key(skName), expression.Value(v))
		}, true
	case ddbstore.OpLessOrEqual:
		return func(skName string) expression.KeyConditionBuilder {
			return expression.KeyLessThanEqual(expression.Key(skName), expression.Value(v))
		}, true
	}
	return nil, false
}
