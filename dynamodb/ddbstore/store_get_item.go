package ddbstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Get returns a copy of the record at (partitionKey, sortKey), or nil if there is none.
func (s *Store) Get(ctx context.Context, partitionKey, sortKey string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		stored, err := loadRecord(txn, s.keys.primaryKey(partitionKey, sortKey))
		if err != nil {
			return err
		}
		if stored != nil {
			r := stored.record()
			rec = &r
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}
