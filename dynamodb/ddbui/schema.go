package ddbui

import (
	"context"
	"fmt"
	"os"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/acksell/tablekit/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"gopkg.in/yaml.v3"
)

// TableSchema is the YAML and JSON form of a table definition.
type TableSchema struct {
	Name         string      `yaml:"name" json:"name"`
	PartitionKey string      `yaml:"partitionKey,omitempty" json:"partitionKey"`
	SortKey      string      `yaml:"sortKey,omitempty" json:"sortKey"`
	GSIs         []GSISchema `yaml:"gsis,omitempty" json:"gsis"`
}

// GSISchema describes a Global Secondary Index.
type GSISchema struct {
	Name         string `yaml:"name" json:"name"`
	PartitionKey string `yaml:"partitionKey" json:"partitionKey"`
	SortKey      string `yaml:"sortKey" json:"sortKey"`
}

// Definition converts the schema to a table definition. Fields left empty
// take their value from table.SingleTable, so a schema with only a name
// describes the standard layout.
func (ts TableSchema) Definition() table.Definition {
	def := table.SingleTable(ts.Name)
	if ts.PartitionKey != "" {
		def.PartitionKey = ts.PartitionKey
	}
	if ts.SortKey != "" {
		def.SortKey = ts.SortKey
	}
	if len(ts.GSIs) > 0 {
		def.GSIs = make([]table.GSIDefinition, len(ts.GSIs))
		for i, gsi := range ts.GSIs {
			def.GSIs[i] = table.GSIDefinition{Name: gsi.Name, PartitionKey: gsi.PartitionKey, SortKey: gsi.SortKey}
		}
	}
	return def
}

// SchemaOf returns the schema describing def.
func SchemaOf(def table.Definition) TableSchema {
	ts := TableSchema{
		Name:         def.Name,
		PartitionKey: def.PartitionKey,
		SortKey:      def.SortKey,
		GSIs:         make([]GSISchema, len(def.GSIs)),
	}
	for i, gsi := range def.GSIs {
		ts.GSIs[i] = GSISchema{Name: gsi.Name, PartitionKey: gsi.PartitionKey, SortKey: gsi.SortKey}
	}
	return ts
}

// SeedFile is the YAML layout of records loaded into a fresh store.
//
//	records:
//	  - pk: U#1
//	    sk: PROFILE
//	    type: user
//	    secondary:
//	      GSI1: {partition: E#ada@example.com, sort: U#1}
//	    attributes:
//	      name: Ada
type SeedFile struct {
	Records []RecordJSON `yaml:"records"`
}

// LoadSeed reads the records of a seed file.
func LoadSeed(path string) ([]ddbstore.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	records := make([]ddbstore.Record, 0, len(sf.Records))
	for i, rj := range sf.Records {
		rec, err := rj.Record()
		if err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Seed puts every record into store, replacing what is already there.
func Seed(ctx context.Context, store ddbstore.Table, records []ddbstore.Record) error {
	for _, rec := range records {
		if err := store.Put(ctx, rec); err != nil {
			return fmt.Errorf("seeding (%q, %q): %w", rec.PartitionKey, rec.SortKey, err)
		}
	}
	return nil
}

// RecordJSON is the wire form of a record. Attributes are plain JSON (or
// YAML) values; numbers become N attributes and nested objects become maps.
type RecordJSON struct {
	PartitionKey string                      `json:"pk" yaml:"pk"`
	SortKey      string                      `json:"sk" yaml:"sk"`
	Type         string                      `json:"type,omitempty" yaml:"type,omitempty"`
	Secondary    map[string]SecondaryKeyJSON `json:"secondary,omitempty" yaml:"secondary,omitempty"`
	Attributes   map[string]any              `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	CreatedAt    int64                       `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt    int64                       `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// SecondaryKeyJSON is the wire form of ddbstore.SecondaryKey.
type SecondaryKeyJSON struct {
	Partition string `json:"partition" yaml:"partition"`
	Sort      string `json:"sort" yaml:"sort"`
}

// Record converts the wire form to a record.
func (rj RecordJSON) Record() (ddbstore.Record, error) {
	rec := ddbstore.Record{
		PartitionKey: rj.PartitionKey,
		SortKey:      rj.SortKey,
		Type:         rj.Type,
		CreatedAt:    rj.CreatedAt,
		UpdatedAt:    rj.UpdatedAt,
	}
	if len(rj.Secondary) > 0 {
		rec.Secondary = make(map[string]ddbstore.SecondaryKey, len(rj.Secondary))
		for name, sk := range rj.Secondary {
			rec.Secondary[name] = ddbstore.SecondaryKey{Partition: sk.Partition, Sort: sk.Sort}
		}
	}
	if len(rj.Attributes) > 0 {
		attrs, err := attributevalue.MarshalMap(rj.Attributes)
		if err != nil {
			return ddbstore.Record{}, fmt.Errorf("converting attributes: %w", err)
		}
		rec.Attributes = attrs
	}
	return rec, nil
}

// toRecordJSON converts a record to its wire form.
func toRecordJSON(rec ddbstore.Record) (RecordJSON, error) {
	rj := RecordJSON{
		PartitionKey: rec.PartitionKey,
		SortKey:      rec.SortKey,
		Type:         rec.Type,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if len(rec.Secondary) > 0 {
		rj.Secondary = make(map[string]SecondaryKeyJSON, len(rec.Secondary))
		for name, sk := range rec.Secondary {
			rj.Secondary[name] = SecondaryKeyJSON{Partition: sk.Partition, Sort: sk.Sort}
		}
	}
	if len(rec.Attributes) > 0 {
		if err := attributevalue.UnmarshalMap(rec.Attributes, &rj.Attributes); err != nil {
			return RecordJSON{}, fmt.Errorf("converting attributes of (%q, %q): %w", rec.PartitionKey, rec.SortKey, err)
		}
	}
	return rj, nil
}
