package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/acksell/tablekit/dynamodb/table"
	"go.uber.org/zap"
)

// IndexKeys builds an entity's key pair for one secondary index. An entity
// whose Partition key comes out empty is left out of the index.
type IndexKeys struct {
	Partition table.Keyer
	Sort      table.Keyer
}

// Config describes how one entity type is laid out in the shared table.
// Keyers receive the entity marshaled with attributevalue, so they refer to
// attributes by their dynamodbav names.
type Config struct {
	// EntityType is stored as the record type tag and reported in errors.
	EntityType   string
	PartitionKey table.Keyer
	SortKey      table.Keyer
	// Indexes is keyed by index name, e.g. "GSI1".
	Indexes map[string]IndexKeys

	// Now stamps CreatedAt and UpdatedAt. Defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// validate checks the config against the table and fills in defaults.
func (c *Config) validate(def table.Definition) error {
	if c.EntityType == "" {
		return errors.New("entity type is required")
	}
	if c.PartitionKey == nil || c.SortKey == nil {
		return fmt.Errorf("%s: partition and sort keyers are required", c.EntityType)
	}
	if len(c.Indexes) > table.MaxGSIs {
		return fmt.Errorf("%s: at most %d indexes are supported", c.EntityType, table.MaxGSIs)
	}
	for name, keys := range c.Indexes {
		if _, ok := def.GSI(name); !ok {
			return fmt.Errorf("%s: table %q has no index %q", c.EntityType, def.Name, name)
		}
		if keys.Partition == nil {
			return fmt.Errorf("%s: index %q needs a partition keyer", c.EntityType, name)
		}
		if keys.Sort == nil {
			return fmt.Errorf("%s: index %q needs a sort keyer", c.EntityType, name)
		}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return nil
}
