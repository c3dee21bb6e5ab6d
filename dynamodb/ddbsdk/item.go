package ddbsdk

import (
	"fmt"
	"slices"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item represents a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// toItem lays a record out as a DynamoDB item using the table's attribute names.
func (s *Store) toItem(rec ddbstore.Record) (Item, error) {
	if err := rec.Validate(s.def); err != nil {
		return nil, err
	}
	reserved := s.def.KeyAttributes()
	item := make(Item, len(rec.Attributes)+len(reserved))
	for name, av := range rec.Attributes {
		if slices.Contains(reserved, name) {
			return nil, &ddbstore.ValidationError{Field: "Attributes", Message: "uses reserved attribute " + name}
		}
		item[name] = av
	}

	for k, v := range s.def.DDB(rec.Key()) {
		item[k] = v
	}
	if s.def.TypeAttribute != "" && rec.Type != "" {
		item[s.def.TypeAttribute] = &types.AttributeValueMemberS{Value: rec.Type}
	}
	if err := marshalTimestamp(item, s.def.CreatedAtAttribute, rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := marshalTimestamp(item, s.def.UpdatedAtAttribute, rec.UpdatedAt); err != nil {
		return nil, err
	}

	for name, sk := range rec.Secondary {
		gsi, _ := s.def.GSI(name)
		if sk.Sort == "" {
			// DynamoDB rejects empty strings in index key attributes.
			return nil, &ddbstore.ValidationError{Field: "Secondary", Message: "sort value for index " + name + " is required"}
		}
		item[gsi.PartitionKey] = &types.AttributeValueMemberS{Value: sk.Partition}
		item[gsi.SortKey] = &types.AttributeValueMemberS{Value: sk.Sort}
	}
	return item, nil
}

func marshalTimestamp(item Item, attr string, ts int64) error {
	if attr == "" {
		return nil
	}
	av, err := attributevalue.Marshal(ts)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", attr, err)
	}
	item[attr] = av
	return nil
}

// fromItem is the inverse of toItem.
func (s *Store) fromItem(item Item) (ddbstore.Record, error) {
	key, ok := s.def.ExtractPrimaryKey(item)
	if !ok {
		return ddbstore.Record{}, fmt.Errorf("item is missing string attributes %s/%s", s.def.PartitionKey, s.def.SortKey)
	}
	rec := ddbstore.Record{PartitionKey: key.PartitionKey, SortKey: key.SortKey}

	if av, ok := item[s.def.TypeAttribute]; ok {
		if err := attributevalue.Unmarshal(av, &rec.Type); err != nil {
			return ddbstore.Record{}, fmt.Errorf("unmarshal %s: %w", s.def.TypeAttribute, err)
		}
	}
	if av, ok := item[s.def.CreatedAtAttribute]; ok {
		if err := attributevalue.Unmarshal(av, &rec.CreatedAt); err != nil {
			return ddbstore.Record{}, fmt.Errorf("unmarshal %s: %w", s.def.CreatedAtAttribute, err)
		}
	}
	if av, ok := item[s.def.UpdatedAtAttribute]; ok {
		if err := attributevalue.Unmarshal(av, &rec.UpdatedAt); err != nil {
			return ddbstore.Record{}, fmt.Errorf("unmarshal %s: %w", s.def.UpdatedAtAttribute, err)
		}
	}

	for _, gsi := range s.def.GSIs {
		pk, ok := item[gsi.PartitionKey].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		var sort string
		if sk, ok := item[gsi.SortKey].(*types.AttributeValueMemberS); ok {
			sort = sk.Value
		}
		if rec.Secondary == nil {
			rec.Secondary = make(map[string]ddbstore.SecondaryKey)
		}
		rec.Secondary[gsi.Name] = ddbstore.SecondaryKey{Partition: pk.Value, Sort: sort}
	}

	reserved := s.def.KeyAttributes()
	for name, av := range item {
		if slices.Contains(reserved, name) {
			continue
		}
		if rec.Attributes == nil {
			rec.Attributes = make(map[string]types.AttributeValue)
		}
		rec.Attributes[name] = av
	}
	return rec, nil
}

// keyOf returns the attributes DynamoDB needs to resume a read after item:
// the primary key, plus the index key when reading an index.
func (s *Store) keyOf(item Item, indexName string) Item {
	attrs := []string{s.def.PartitionKey, s.def.SortKey}
	if gsi, ok := s.def.GSI(indexName); ok {
		attrs = append(attrs, gsi.PartitionKey, gsi.SortKey)
	}
	key := make(Item, len(attrs))
	for _, a := range attrs {
		if av, ok := item[a]; ok {
			key[a] = av
		}
	}
	return key
}
