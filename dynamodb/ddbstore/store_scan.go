package ddbstore

import (
	"context"

	"github.com/dgraph-io/badger/v4"
)

// Scan returns every record of the table ordered by partition key, then sort key.
func (s *Store) Scan(ctx context.Context, page PageOptions) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := s.keys.tablePrefix()
	return s.paginate(scanRange{
		shape:  "scan",
		prefix: prefix,
		seek:   prefix,
		resolve: func(txn *badger.Txn, key []byte) (*storedRecord, error) {
			return loadRecord(txn, key)
		},
	}, page)
}
