package ddbstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// loadRecord reads the stored record at key. It returns nil, nil when absent.
func loadRecord(txn *badger.Txn, key []byte) (*storedRecord, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec *storedRecord
	err = item.Value(func(val []byte) error {
		rec, err = decodeRecord(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// putIndexEntries writes one GSI entry per secondary key pair, pointing at primary.
func (s *Store) putIndexEntries(txn *badger.Txn, rec *storedRecord, primary []byte) error {
	for name, sk := range rec.Secondary {
		enc, ok := s.gsis[name]
		if !ok {
			return fmt.Errorf("unknown index %q", name)
		}
		if err := txn.Set(enc.gsiKey(sk.Partition, sk.Sort, rec.Seq), primary); err != nil {
			return fmt.Errorf("write index %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) deleteIndexEntries(txn *badger.Txn, rec *storedRecord) error {
	for name, sk := range rec.Secondary {
		enc, ok := s.gsis[name]
		if !ok {
			continue
		}
		if err := txn.Delete(enc.gsiKey(sk.Partition, sk.Sort, rec.Seq)); err != nil {
			return fmt.Errorf("delete index %s: %w", name, err)
		}
	}
	return nil
}
