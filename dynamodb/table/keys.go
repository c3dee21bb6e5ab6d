package table

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PrimaryKey is the unique identity of a record in the table.
type PrimaryKey struct {
	PartitionKey string
	SortKey      string
}

// DDB returns the key in the attribute map shape the DynamoDB API expects.
func (d Definition) DDB(k PrimaryKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		d.PartitionKey: &types.AttributeValueMemberS{Value: k.PartitionKey},
		d.SortKey:      &types.AttributeValueMemberS{Value: k.SortKey},
	}
}

// ExtractPrimaryKey reads the primary key attributes from a document.
// ok is false if either attribute is missing or not a string.
func (d Definition) ExtractPrimaryKey(doc map[string]types.AttributeValue) (PrimaryKey, bool) {
	pk, ok := stringAttr(doc, d.PartitionKey)
	if !ok {
		return PrimaryKey{}, false
	}
	sk, ok := stringAttr(doc, d.SortKey)
	if !ok {
		return PrimaryKey{}, false
	}
	return PrimaryKey{PartitionKey: pk, SortKey: sk}, true
}

func stringAttr(doc map[string]types.AttributeValue, name string) (string, bool) {
	s, ok := doc[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}
