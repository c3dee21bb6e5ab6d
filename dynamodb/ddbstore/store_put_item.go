package ddbstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Put creates or fully replaces the record at (rec.PartitionKey, rec.SortKey).
//
// With RequireAbsent, an existing record makes Put fail with an
// *AlreadyExistsError and nothing is written. Index entries of the replaced
// record are swapped for the new ones in the same transaction. A replaced
// record keeps its position in index ordering.
func (s *Store) Put(ctx context.Context, rec Record, opts ...PutOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(s.def); err != nil {
		return err
	}
	o := ApplyPutOptions(opts)
	key := s.keys.primaryKey(rec.PartitionKey, rec.SortKey)

	err := s.db.Update(func(txn *badger.Txn) error {
		old, err := loadRecord(txn, key)
		if err != nil {
			return fmt.Errorf("read existing record: %w", err)
		}

		var seq uint64
		if old != nil {
			if o.RequireAbsent {
				typ := rec.Type
				if typ == "" {
					typ = old.Type
				}
				return &AlreadyExistsError{Type: typ, PartitionKey: rec.PartitionKey, SortKey: rec.SortKey}
			}
			seq = old.Seq
			if err := s.deleteIndexEntries(txn, old); err != nil {
				return err
			}
		} else {
			seq = s.seq.Add(1)
		}

		stored, err := toStored(rec, seq)
		if err != nil {
			return &ValidationError{Field: "Attributes", Message: err.Error()}
		}
		val, err := encodeRecord(stored)
		if err != nil {
			return err
		}
		if err := txn.Set(key, val); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		return s.putIndexEntries(txn, stored, key)
	})
	if IsAlreadyExists(err) {
		s.log.Debug("conditional put failed",
			zap.String("pk", rec.PartitionKey),
			zap.String("sk", rec.SortKey),
			zap.String("type", rec.Type),
		)
	}
	return err
}
