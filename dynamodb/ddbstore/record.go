package ddbstore

import (
	"github.com/acksell/tablekit/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SecondaryKey is a record's key pair for one secondary index.
type SecondaryKey struct {
	Partition string
	Sort      string
}

// Record is the unit of storage. Its identity is (PartitionKey, SortKey).
//
// Secondary is keyed by index name (see table.GSIDefinition). A record without
// an entry for an index is not visible to queries on that index.
// Attributes, CreatedAt and UpdatedAt are owned by the caller and stored verbatim.
// Empty maps are returned as nil by reads.
type Record struct {
	PartitionKey string
	SortKey      string
	Type         string
	Secondary    map[string]SecondaryKey
	Attributes   map[string]types.AttributeValue
	CreatedAt    int64
	UpdatedAt    int64
}

// Key returns the record's identity.
func (r Record) Key() table.PrimaryKey {
	return table.PrimaryKey{PartitionKey: r.PartitionKey, SortKey: r.SortKey}
}

// Validate checks the record can be stored in a table with the given definition.
func (r Record) Validate(def table.Definition) error {
	if r.PartitionKey == "" {
		return &ValidationError{Field: "PartitionKey", Message: "is required"}
	}
	if r.SortKey == "" {
		return &ValidationError{Field: "SortKey", Message: "is required"}
	}
	if len(r.Secondary) > table.MaxGSIs {
		return &ValidationError{Field: "Secondary", Message: "has more than 3 index keys"}
	}
	for name, sk := range r.Secondary {
		if _, ok := def.GSI(name); !ok {
			return &ValidationError{Field: "Secondary", Message: "references unknown index " + name}
		}
		if sk.Partition == "" {
			return &ValidationError{Field: "Secondary", Message: "partition value for index " + name + " is required"}
		}
	}
	for name, av := range r.Attributes {
		if av == nil {
			return &ValidationError{Field: "Attributes", Message: "value for " + name + " is nil"}
		}
	}
	return nil
}
