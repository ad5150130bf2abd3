package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is a typed gorm store shared by the raw and merged event tables.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, conds ...Cond) ([]*T, error)
	FindOne(ctx context.Context, conds ...Cond) (*T, error)
	Count(ctx context.Context, conds ...Cond) (int64, error)
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, resource *T) error
	// BatchCreateIgnoreConflicts inserts in chunks, skipping rows that
	// violate a unique constraint instead of failing the batch.
	BatchCreateIgnoreConflicts(ctx context.Context, resources []*T, chunkSize int) error
	// MaxInt64 returns MAX(column) over rows matching conds, 0 when empty.
	MaxInt64(ctx context.Context, column string, conds ...Cond) (int64, error)
}

// Cond is a query fragment applied as a gorm Where or Order clause.
type Cond struct {
	Query string
	Args  []any
	order string
}

func Where(query string, args ...any) Cond {
	return Cond{Query: query, Args: args}
}

func OrderBy(expr string) Cond {
	return Cond{order: expr}
}

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx}
}

func (r *store[T]) Find(ctx context.Context, conds ...Cond) ([]*T, error) {
	var result []*T
	err := r.buildQuery(ctx, conds).Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, conds ...Cond) (*T, error) {
	var result T
	err := r.buildQuery(ctx, conds).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Count(ctx context.Context, conds ...Cond) (int64, error) {
	var count int64
	err := r.buildQuery(ctx, conds).Model(new(T)).Count(&count).Error
	return count, err
}

func (r *store[T]) Exists(ctx context.Context) (bool, error) {
	count, err := r.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

func (r *store[T]) BatchCreateIgnoreConflicts(ctx context.Context, resources []*T, chunkSize int) error {
	if len(resources) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = len(resources)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(resources, chunkSize).Error
}

func (r *store[T]) MaxInt64(ctx context.Context, column string, conds ...Cond) (int64, error) {
	var max *int64
	err := r.buildQuery(ctx, conds).Model(new(T)).
		Select("MAX(" + column + ")").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *store[T]) buildQuery(ctx context.Context, conds []Cond) *gorm.DB {
	stmt := r.db.WithContext(ctx)
	for _, cond := range conds {
		if cond.order != "" {
			stmt = stmt.Order(cond.order)
			continue
		}
		stmt = stmt.Where(cond.Query, cond.Args...)
	}
	return stmt
}
