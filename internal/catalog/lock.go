package catalog

import (
	"context"

	"github.com/simp-lee/catalog/internal/domain"
	"gorm.io/gorm/clause"
)

// Locker is the pessimistic-lock part of a catalog repository.
type Locker[T any] interface {
	WithPessimisticLockByID(ctx context.Context, id uint, fn func(ctx context.Context, entity *T) error) error
	WithPessimisticLockByUUID(ctx context.Context, uuid string, fn func(ctx context.Context, entity *T) error) error
}

// WithPessimisticLockByID loads the row with SELECT ... FOR UPDATE and runs fn
// with it inside the transaction carried by ctx, opening one when there is
// none. The lock is held until that transaction ends. A missing row yields
// domain.ErrNotFound and fn is not called. Locking the same row twice in one
// call chain is not supported.
func (r *Repository[T]) WithPessimisticLockByID(ctx context.Context, id uint, fn func(ctx context.Context, entity *T) error) error {
	return r.withLock(ctx, r.pk, id, fn)
}

// WithPessimisticLockByUUID is WithPessimisticLockByID keyed by the secondary key.
func (r *Repository[T]) WithPessimisticLockByUUID(ctx context.Context, uuid string, fn func(ctx context.Context, entity *T) error) error {
	if err := r.requireUUID(); err != nil {
		return err
	}
	return r.withLock(ctx, r.uuidCol, uuid, fn)
}

func (r *Repository[T]) withLock(ctx context.Context, column string, key any, fn func(ctx context.Context, entity *T) error) error {
	return r.tx.Transaction(ctx, func(ctx context.Context) error {
		entity, err := r.take(r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), column, key)
		if err != nil {
			return err
		}
		return fn(ctx, entity)
	})
}

// LockByID runs fn under a row lock and returns its result.
func LockByID[T, R any](ctx context.Context, repo Locker[T], id uint, fn func(ctx context.Context, entity *T) (R, error)) (R, error) {
	var out R
	err := repo.WithPessimisticLockByID(ctx, id, func(ctx context.Context, entity *T) error {
		var err error
		out, err = fn(ctx, entity)
		return err
	})
	return out, err
}

// LockByUUID runs fn under a row lock keyed by the secondary key and returns its result.
func LockByUUID[T, R any](ctx context.Context, repo Locker[T], uuid string, fn func(ctx context.Context, entity *T) (R, error)) (R, error) {
	var out R
	err := repo.WithPessimisticLockByUUID(ctx, uuid, func(ctx context.Context, entity *T) error {
		var err error
		out, err = fn(ctx, entity)
		return err
	})
	return out, err
}

// CountForUpdate counts the live rows matching filters and locks every one of
// them with SELECT ... FOR UPDATE until the transaction carried by ctx ends.
// Rows are locked in primary key order. Without a transaction in ctx the locks
// are released as soon as the count returns.
func (r *Repository[T]) CountForUpdate(ctx context.Context, filters ...domain.Filter) (int64, error) {
	var locked []T
	err := r.scoped(ctx, "", filters, domain.TrashedNone).
		Select(r.pk).
		Order(clause.OrderByColumn{Column: clause.Column{Name: r.pk}}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Find(&locked).Error
	if err != nil {
		return 0, mapError(err)
	}
	return int64(len(locked)), nil
}
