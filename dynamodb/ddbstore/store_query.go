package ddbstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/acksell/tablekit/dynamodb/internal/cursor"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// CountUnknown is reported in Page.Count by backends that can not size the
// matched set without reading all of it.
const CountUnknown = -1

// KeyQuery selects the records of one partition, optionally narrowed by a
// condition on the sort key. SortCondition.Attribute is ignored.
type KeyQuery struct {
	PartitionKey  string
	SortCondition *SortCondition
}

// AttributeQuery selects the records whose index partition attribute
// AttributeName (e.g. "GSI1PK") equals AttributeValue. SortCondition applies to
// the same index's sort attribute; its Attribute is either empty or the name
// of that attribute (e.g. "GSI1SK").
type AttributeQuery struct {
	AttributeName  string
	AttributeValue string
	SortCondition  *SortCondition
}

// PageOptions bounds a read. Limit <= 0 returns every remaining record.
// Cursor is the NextCursor of the previous page of the same query. Cursors
// that can not be decoded for this query restart it from the beginning.
type PageOptions struct {
	Limit  int
	Cursor string
}

// Page is one page of a read.
type Page struct {
	Records []Record
	// Count is the size of the whole matched set, before paging.
	Count int
	// NextCursor is empty when there are no more records to read.
	NextCursor string
}

// Done reports whether this is the last page.
func (p *Page) Done() bool {
	return p.NextCursor == ""
}

// Query returns the records of q.PartitionKey ordered by sort key.
func (s *Store) Query(ctx context.Context, q KeyQuery, page PageOptions) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := s.keys.partitionPrefix(q.PartitionKey)
	return s.paginate(scanRange{
		shape:  fmt.Sprintf("query %q %s", q.PartitionKey, q.SortCondition.shape()),
		prefix: prefix,
		cond:   q.SortCondition,
		seek:   seekFor(prefix, q.SortCondition),
		sortValue: func(key []byte) (string, bool) {
			return decodeSortKey(key, prefix), true
		},
		resolve: func(txn *badger.Txn, key []byte) (*storedRecord, error) {
			return loadRecord(txn, key)
		},
	}, page)
}

// QueryByAttribute returns the records that carry q.AttributeValue in the
// index whose partition attribute is q.AttributeName, ordered by the index
// sort value. Records with equal sort values are returned in the order their
// identity was first written.
//
// A query naming an attribute that is not an index partition attribute, or a
// sort condition on an attribute that is not the same index's sort attribute,
// matches nothing.
func (s *Store) QueryByAttribute(ctx context.Context, q AttributeQuery, page PageOptions) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gsi, ok := s.def.GSIByPartitionKey(q.AttributeName)
	if !ok {
		s.log.Debug("query on unknown index attribute", zap.String("attribute", q.AttributeName))
		return &Page{Records: []Record{}}, nil
	}
	if q.SortCondition != nil && q.SortCondition.Attribute != "" && q.SortCondition.Attribute != gsi.SortKey {
		s.log.Debug("sort condition does not match index",
			zap.String("index", gsi.Name),
			zap.String("attribute", q.SortCondition.Attribute),
		)
		return &Page{Records: []Record{}}, nil
	}

	enc := s.gsis[gsi.Name]
	prefix := enc.partitionPrefix(q.AttributeValue)
	return s.paginate(scanRange{
		shape:  fmt.Sprintf("index %q %q %s", gsi.Name, q.AttributeValue, q.SortCondition.shape()),
		prefix: prefix,
		cond:   q.SortCondition,
		seek:   seekFor(prefix, q.SortCondition),
		sortValue: func(key []byte) (string, bool) {
			return decodeGSISortKey(key, prefix)
		},
		resolve: func(txn *badger.Txn, key []byte) (*storedRecord, error) {
			item, err := txn.Get(key)
			if err != nil {
				return nil, err
			}
			primary, err := item.ValueCopy(nil)
			if err != nil {
				return nil, err
			}
			return loadRecord(txn, primary)
		},
	}, page)
}

// scanRange describes one ordered key range to page through.
type scanRange struct {
	// shape identifies the query. Cursors only resume the query that issued them.
	shape  string
	prefix []byte
	seek   []byte
	cond   *SortCondition
	// sortValue extracts the value cond is evaluated against.
	sortValue func(key []byte) (string, bool)
	resolve   func(txn *badger.Txn, key []byte) (*storedRecord, error)
}

func seekFor(prefix []byte, cond *SortCondition) []byte {
	if cond != nil {
		if lo, ok := cond.lowerBound(); ok {
			return append(bytes.Clone(prefix), escapeBytes([]byte(lo))...)
		}
	}
	return prefix
}

// paginate walks the keys of r in order and returns the page selected by opts.
// Keys are collected without values first, so Count covers the whole matched
// set and the cursor can resume strictly after the last returned key even if
// that key was deleted since.
func (s *Store) paginate(r scanRange, opts PageOptions) (*Page, error) {
	out := &Page{}
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.PrefetchValues = false
		itOpts.Prefix = r.prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(r.seek); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if r.cond != nil {
				v, ok := r.sortValue(key)
				if !ok {
					continue
				}
				if r.cond.exhausted(v) {
					break
				}
				if !r.cond.Matches(v) {
					continue
				}
			}
			keys = append(keys, key)
		}
		out.Count = len(keys)

		start := 0
		if opts.Cursor != "" {
			pos, ok := cursor.Decode(r.shape, opts.Cursor)
			if ok && bytes.HasPrefix(pos, r.prefix) {
				start = sort.Search(len(keys), func(i int) bool {
					return bytes.Compare(keys[i], pos) > 0
				})
			} else {
				s.log.Debug("ignoring invalid cursor")
			}
		}
		end := len(keys)
		if opts.Limit > 0 && opts.Limit < end-start {
			end = start + opts.Limit
		}

		out.Records = make([]Record, 0, end-start)
		for _, key := range keys[start:end] {
			stored, err := r.resolve(txn, key)
			if err != nil {
				return err
			}
			if stored == nil {
				continue
			}
			out.Records = append(out.Records, stored.record())
		}
		if end < len(keys) {
			out.NextCursor = cursor.Encode(r.shape, keys[end-1])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return out, nil
}
