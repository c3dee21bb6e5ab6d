// Package repository maps domain entities onto records of the shared table.
//
// Several repositories, one per entity type, are expected to share a single
// ddbstore.Table. Each stamps its records with its entity type and builds keys
// with the keyers from its Config.
package repository

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/acksell/tablekit/dynamodb/ddbstore"
	"github.com/acksell/tablekit/dynamodb/table"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Timestamped is implemented by entities that want to see the record timestamps.
type Timestamped interface {
	SetTimestamps(created, updated time.Time)
}

// Repository stores entities of type T.
type Repository[T any] struct {
	store ddbstore.Table
	def   table.Definition
	cfg   Config
	log   *zap.Logger
}

// New creates a repository for T on a store that may be shared with other repositories.
func New[T any](store ddbstore.Table, cfg Config) (*Repository[T], error) {
	def := store.Definition()
	if err := cfg.validate(def); err != nil {
		return nil, fmt.Errorf("invalid repository config: %w", err)
	}
	return &Repository[T]{
		store: store,
		def:   def,
		cfg:   cfg,
		log:   cfg.Logger.With(zap.String("entity", cfg.EntityType)),
	}, nil
}

// EntityType returns the type tag of the repository's records.
func (r *Repository[T]) EntityType() string {
	return r.cfg.EntityType
}

// Key returns the primary key v is stored under.
func (r *Repository[T]) Key(v *T) (table.PrimaryKey, error) {
	doc, err := attributevalue.MarshalMap(v)
	if err != nil {
		return table.PrimaryKey{}, fmt.Errorf("marshal %s: %w", r.cfg.EntityType, err)
	}
	return r.keyOf(doc)
}

// Create stores a new entity. It fails with a *ddbstore.AlreadyExistsError if
// an entity with the same key exists.
func (r *Repository[T]) Create(ctx context.Context, v *T) error {
	now := r.cfg.Now().UnixMilli()
	rec, err := r.toRecord(v, now, now)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, rec, ddbstore.RequireAbsent()); err != nil {
		return err
	}
	r.log.Debug("created", zap.String("pk", rec.PartitionKey), zap.String("sk", rec.SortKey))
	stamp(v, rec)
	return nil
}

// Update replaces an existing entity, keeping its creation time. It fails
// with a *ddbstore.NotFoundError if there is nothing to update.
func (r *Repository[T]) Update(ctx context.Context, v *T) error {
	return r.replace(ctx, v, true)
}

// Save creates or replaces an entity.
func (r *Repository[T]) Save(ctx context.Context, v *T) error {
	return r.replace(ctx, v, false)
}

func (r *Repository[T]) replace(ctx context.Context, v *T, mustExist bool) error {
	now := r.cfg.Now().UnixMilli()
	rec, err := r.toRecord(v, now, now)
	if err != nil {
		return err
	}
	old, err := r.store.Get(ctx, rec.PartitionKey, rec.SortKey)
	if err != nil {
		return err
	}
	switch {
	case old != nil:
		rec.CreatedAt = old.CreatedAt
	case mustExist:
		return &ddbstore.NotFoundError{Type: r.cfg.EntityType, PartitionKey: rec.PartitionKey, SortKey: rec.SortKey}
	}
	if err := r.store.Put(ctx, rec); err != nil {
		return err
	}
	stamp(v, rec)
	return nil
}

// Get loads one entity. It fails with a *ddbstore.NotFoundError if there is
// none, or if the record under the key belongs to another entity type.
func (r *Repository[T]) Get(ctx context.Context, partitionKey, sortKey string) (*T, error) {
	rec, err := r.store.Get(ctx, partitionKey, sortKey)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Type != r.cfg.EntityType {
		return nil, &ddbstore.NotFoundError{Type: r.cfg.EntityType, PartitionKey: partitionKey, SortKey: sortKey}
	}
	return r.fromRecord(*rec)
}

// Delete removes one entity. It fails with a *ddbstore.NotFoundError if there is none.
func (r *Repository[T]) Delete(ctx context.Context, partitionKey, sortKey string) error {
	_, err := r.store.Delete(ctx, partitionKey, sortKey, ddbstore.RequireExists(), ddbstore.WithEntityType(r.cfg.EntityType))
	return err
}

// Page is one page of entities.
type Page[T any] struct {
	Items []*T
	// Count is the number of records matched by the query before paging,
	// including records of other entity types that share the partition.
	Count      int
	NextCursor string
}

// Query lists the entities in a partition. Records of other entity types in
// the same partition are skipped.
func (r *Repository[T]) Query(ctx context.Context, partitionKey string, cond *ddbstore.SortCondition, page ddbstore.PageOptions) (*Page[T], error) {
	res, err := r.store.Query(ctx, ddbstore.KeyQuery{PartitionKey: partitionKey, SortCondition: cond}, page)
	if err != nil {
		return nil, err
	}
	return r.page(res)
}

// QueryIndex lists the entities whose key pair for the named index has the
// given partition value.
func (r *Repository[T]) QueryIndex(ctx context.Context, index, value string, cond *ddbstore.SortCondition, page ddbstore.PageOptions) (*Page[T], error) {
	gsi, ok := r.def.GSI(index)
	if !ok {
		return nil, fmt.Errorf("table %q has no index %q", r.def.Name, index)
	}
	if cond != nil {
		cond = cond.On(gsi.SortKey)
	}
	res, err := r.store.QueryByAttribute(ctx, ddbstore.AttributeQuery{
		AttributeName:  gsi.PartitionKey,
		AttributeValue: value,
		SortCondition:  cond,
	}, page)
	if err != nil {
		return nil, err
	}
	return r.page(res)
}

func (r *Repository[T]) page(res *ddbstore.Page) (*Page[T], error) {
	out := &Page[T]{Items: make([]*T, 0, len(res.Records)), Count: res.Count, NextCursor: res.NextCursor}
	for _, rec := range res.Records {
		if rec.Type != r.cfg.EntityType {
			continue
		}
		v, err := r.fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, v)
	}
	return out, nil
}

func (r *Repository[T]) keyOf(doc map[string]types.AttributeValue) (table.PrimaryKey, error) {
	pk, err := r.cfg.PartitionKey.Key(doc)
	if err != nil {
		return table.PrimaryKey{}, fmt.Errorf("%s partition key: %w", r.cfg.EntityType, err)
	}
	sk, err := r.cfg.SortKey.Key(doc)
	if err != nil {
		return table.PrimaryKey{}, fmt.Errorf("%s sort key: %w", r.cfg.EntityType, err)
	}
	return table.PrimaryKey{PartitionKey: pk, SortKey: sk}, nil
}

func (r *Repository[T]) toRecord(v *T, createdAt, updatedAt int64) (ddbstore.Record, error) {
	doc, err := attributevalue.MarshalMap(v)
	if err != nil {
		return ddbstore.Record{}, fmt.Errorf("marshal %s: %w", r.cfg.EntityType, err)
	}
	key, err := r.keyOf(doc)
	if err != nil {
		return ddbstore.Record{}, err
	}
	rec := ddbstore.Record{
		PartitionKey: key.PartitionKey,
		SortKey:      key.SortKey,
		Type:         r.cfg.EntityType,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}

	for name, keys := range r.cfg.Indexes {
		p, err := keys.Partition.Key(doc)
		if err != nil {
			return ddbstore.Record{}, fmt.Errorf("%s index %s partition key: %w", r.cfg.EntityType, name, err)
		}
		if p == "" {
			continue
		}
		s, err := keys.Sort.Key(doc)
		if err != nil {
			return ddbstore.Record{}, fmt.Errorf("%s index %s sort key: %w", r.cfg.EntityType, name, err)
		}
		if rec.Secondary == nil {
			rec.Secondary = make(map[string]ddbstore.SecondaryKey, len(r.cfg.Indexes))
		}
		rec.Secondary[name] = ddbstore.SecondaryKey{Partition: p, Sort: s}
	}

	reserved := r.def.KeyAttributes()
	for name, av := range doc {
		if slices.Contains(reserved, name) {
			continue
		}
		if rec.Attributes == nil {
			rec.Attributes = make(map[string]types.AttributeValue, len(doc))
		}
		rec.Attributes[name] = av
	}
	return rec, nil
}

func (r *Repository[T]) fromRecord(rec ddbstore.Record) (*T, error) {
	v := new(T)
	if err := attributevalue.UnmarshalMap(rec.Attributes, v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", r.cfg.EntityType, err)
	}
	stamp(v, rec)
	return v, nil
}

func stamp(v any, rec ddbstore.Record) {
	if ts, ok := v.(Timestamped); ok {
		ts.SetTimestamps(time.UnixMilli(rec.CreatedAt), time.UnixMilli(rec.UpdatedAt))
	}
}
