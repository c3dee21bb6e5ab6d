package ddbstore

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/acksell/tablekit/dynamodb/table"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Table is the storage contract repositories are written against. Store
// implements it in memory; ddbsdk implements it on a live DynamoDB table.
type Table interface {
	Definition() table.Definition
	Put(ctx context.Context, rec Record, opts ...PutOption) error
	Get(ctx context.Context, partitionKey, sortKey string) (*Record, error)
	Delete(ctx context.Context, partitionKey, sortKey string, opts ...DeleteOption) (*Record, error)
	Query(ctx context.Context, q KeyQuery, page PageOptions) (*Page, error)
	QueryByAttribute(ctx context.Context, q AttributeQuery, page PageOptions) (*Page, error)
	Scan(ctx context.Context, page PageOptions) (*Page, error)
}

var _ Table = (*Store)(nil)

// Store is an in-memory single table backed by BadgerDB.
// Every call runs in its own badger transaction, so each call is atomic.
// A Store is meant to be shared by all repositories of a process or test.
type Store struct {
	db     *badger.DB
	def    table.Definition
	log    *zap.Logger
	keys   keyEncoder
	gsis   map[string]keyEncoder
	seq    atomic.Uint64
	closed atomic.Bool
}

// StoreOptions configures the store.
type StoreOptions struct {
	// Logger receives the store's debug logs and badger's own logs. Nil disables logging.
	Logger *zap.Logger
}

// New creates an empty store for the table described by def.
func New(opts StoreOptions, def table.Definition) (*Store, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table definition: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	badgerOpts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(newBadgerLogger(logger))

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	gsis := make(map[string]keyEncoder, len(def.GSIs))
	for _, gsi := range def.GSIs {
		gsis[gsi.Name] = newGSIKeyEncoder(def.Name, gsi.Name)
	}

	return &Store{
		db:   db,
		def:  def,
		log:  logger.With(zap.String("table", def.Name)),
		keys: newTableKeyEncoder(def.Name),
		gsis: gsis,
	}, nil
}

// Close releases the underlying database. It is safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// Definition returns the table definition the store was created with.
func (s *Store) Definition() table.Definition {
	return s.def
}

// Size returns the number of records in the table.
func (s *Store) Size(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.keys.tablePrefix()
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Clear removes every record and index entry.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("clear table: %w", err)
	}
	s.log.Debug("table cleared")
	return nil
}
