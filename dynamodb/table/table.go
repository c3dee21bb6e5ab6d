package table

import (
	"errors"
	"fmt"
)

// MaxGSIs is the number of secondary indexes a single table supports.
const MaxGSIs = 3

// Definition describes the single logical table every service writes to.
// The attribute names are only meaningful to backends that talk to a real
// DynamoDB table; the in-memory store keys records by their Go fields.
type Definition struct {
	Name               string
	PartitionKey       string
	SortKey            string
	TypeAttribute      string
	CreatedAtAttribute string
	UpdatedAtAttribute string
	GSIs               []GSIDefinition
}

// GSIDefinition represents a Global Secondary Index definition.
type GSIDefinition struct {
	Name         string
	PartitionKey string
	SortKey      string
}

// SingleTable returns the standard single-table layout: PK/SK primary key and
// three overloaded indexes GSI1..GSI3.
func SingleTable(name string) Definition {
	def := Definition{
		Name:               name,
		PartitionKey:       "PK",
		SortKey:            "SK",
		TypeAttribute:      "type",
		CreatedAtAttribute: "createdAt",
		UpdatedAtAttribute: "updatedAt",
	}
	for i := 1; i <= MaxGSIs; i++ {
		def.GSIs = append(def.GSIs, GSIDefinition{
			Name:         fmt.Sprintf("GSI%d", i),
			PartitionKey: fmt.Sprintf("GSI%dPK", i),
			SortKey:      fmt.Sprintf("GSI%dSK", i),
		})
	}
	return def
}

// Validate checks that the definition can be served by a store.
func (d Definition) Validate() error {
	if d.Name == "" {
		return errors.New("table name is required")
	}
	if d.PartitionKey == "" || d.SortKey == "" {
		return fmt.Errorf("table %q: partition and sort key attribute names are required", d.Name)
	}
	if len(d.GSIs) > MaxGSIs {
		return fmt.Errorf("table %q: at most %d GSIs are supported, got %d", d.Name, MaxGSIs, len(d.GSIs))
	}
	attrs := map[string]bool{d.PartitionKey: true}
	if attrs[d.SortKey] {
		return fmt.Errorf("table %q: attribute %q used twice", d.Name, d.SortKey)
	}
	attrs[d.SortKey] = true
	names := make(map[string]bool, len(d.GSIs))
	for _, gsi := range d.GSIs {
		if gsi.Name == "" || gsi.PartitionKey == "" || gsi.SortKey == "" {
			return fmt.Errorf("table %q: GSI name, partition and sort key are required", d.Name)
		}
		if names[gsi.Name] {
			return fmt.Errorf("table %q: duplicate GSI %q", d.Name, gsi.Name)
		}
		names[gsi.Name] = true
		for _, attr := range []string{gsi.PartitionKey, gsi.SortKey} {
			if attrs[attr] {
				return fmt.Errorf("table %q: attribute %q used twice", d.Name, attr)
			}
			attrs[attr] = true
		}
	}
	return nil
}

// GSI looks up an index by name.
func (d Definition) GSI(name string) (GSIDefinition, bool) {
	for _, gsi := range d.GSIs {
		if gsi.Name == name {
			return gsi, true
		}
	}
	return GSIDefinition{}, false
}

// GSIByPartitionKey looks up the index whose partition attribute is attr, e.g. "GSI1PK".
func (d Definition) GSIByPartitionKey(attr string) (GSIDefinition, bool) {
	for _, gsi := range d.GSIs {
		if gsi.PartitionKey == attr {
			return gsi, true
		}
	}
	return GSIDefinition{}, false
}

// KeyAttributes returns the names of every attribute the table reserves for
// keys, timestamps and the type tag.
func (d Definition) KeyAttributes() []string {
	attrs := []string{d.PartitionKey, d.SortKey}
	for _, a := range []string{d.TypeAttribute, d.CreatedAtAttribute, d.UpdatedAtAttribute} {
		if a != "" {
			attrs = append(attrs, a)
		}
	}
	for _, gsi := range d.GSIs {
		attrs = append(attrs, gsi.PartitionKey, gsi.SortKey)
	}
	return attrs
}
