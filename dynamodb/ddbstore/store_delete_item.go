package ddbstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Delete removes the record at (partitionKey, sortKey) and returns it.
// Deleting an absent record returns nil, nil unless RequireExists is given,
// in which case it fails with a *NotFoundError.
func (s *Store) Delete(ctx context.Context, partitionKey, sortKey string, opts ...DeleteOption) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := ApplyDeleteOptions(opts)
	key := s.keys.primaryKey(partitionKey, sortKey)

	var deleted *Record
	err := s.db.Update(func(txn *badger.Txn) error {
		old, err := loadRecord(txn, key)
		if err != nil {
			return fmt.Errorf("read existing record: %w", err)
		}
		if old == nil {
			if o.RequireExists {
				return &NotFoundError{Type: o.EntityType, PartitionKey: partitionKey, SortKey: sortKey}
			}
			return nil
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
		if err := s.deleteIndexEntries(txn, old); err != nil {
			return err
		}
		r := old.record()
		deleted = &r
		return nil
	})
	if err != nil {
		if IsNotFound(err) {
			s.log.Debug("conditional delete failed",
				zap.String("pk", partitionKey),
				zap.String("sk", sortKey),
				zap.String("type", o.EntityType),
			)
		}
		return nil, err
	}
	return deleted, nil
}
