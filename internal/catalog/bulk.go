package catalog

import (
	"context"

	"gorm.io/gorm/clause"
)

// Every bulk mutation is a single UPDATE or DELETE statement, so it either
// applies to the whole key set or fails as a whole. An empty key set returns
// 0 without touching storage.

// BulkDeleteByIDs soft-deletes (or hard-deletes, without soft delete support) the rows with the given ids.
func (r *Repository[T]) BulkDeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.bulkDelete(ctx, r.pk, keyValues(ids), false)
}

// BulkDeleteByUUIDs is BulkDeleteByIDs keyed by the secondary key.
func (r *Repository[T]) BulkDeleteByUUIDs(ctx context.Context, uuids []string) (int64, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	if err := r.requireUUID(); err != nil {
		return 0, err
	}
	return r.bulkDelete(ctx, r.uuidCol, keyValues(uuids), false)
}

// BulkForceDeleteByIDs permanently removes the rows with the given ids, trashed or not.
func (r *Repository[T]) BulkForceDeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.bulkDelete(ctx, r.pk, keyValues(ids), true)
}

// BulkForceDeleteByUUIDs is BulkForceDeleteByIDs keyed by the secondary key.
func (r *Repository[T]) BulkForceDeleteByUUIDs(ctx context.Context, uuids []string) (int64, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	if err := r.requireUUID(); err != nil {
		return 0, err
	}
	return r.bulkDelete(ctx, r.uuidCol, keyValues(uuids), true)
}

// BulkRestoreByIDs restores the trashed rows among ids.
func (r *Repository[T]) BulkRestoreByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.bulkRestore(ctx, r.pk, keyValues(ids))
}

// BulkRestoreByUUIDs is BulkRestoreByIDs keyed by the secondary key.
func (r *Repository[T]) BulkRestoreByUUIDs(ctx context.Context, uuids []string) (int64, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	if err := r.requireUUID(); err != nil {
		return 0, err
	}
	return r.bulkRestore(ctx, r.uuidCol, keyValues(uuids))
}

// BulkSetActiveByIDs sets the active flag of the live rows among ids.
func (r *Repository[T]) BulkSetActiveByIDs(ctx context.Context, ids []uint, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return r.bulkSetActive(ctx, r.pk, keyValues(ids), active)
}

// BulkSetActiveByUUIDs is BulkSetActiveByIDs keyed by the secondary key.
func (r *Repository[T]) BulkSetActiveByUUIDs(ctx context.Context, uuids []string, active bool) (int64, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	if err := r.requireUUID(); err != nil {
		return 0, err
	}
	return r.bulkSetActive(ctx, r.uuidCol, keyValues(uuids), active)
}

func (r *Repository[T]) bulkDelete(ctx context.Context, column string, keys []any, force bool) (int64, error) {
	db := r.conn(ctx)
	if force {
		db = db.Unscoped()
	}
	res := db.Where(clause.IN{Column: clause.Column{Name: column}, Values: keys}).Delete(new(T))
	if res.Error != nil {
		return 0, mapError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *Repository[T]) bulkRestore(ctx context.Context, column string, keys []any) (int64, error) {
	if r.deleted == "" {
		return 0, nil
	}
	res := r.model(ctx).Unscoped().
		Where(clause.IN{Column: clause.Column{Name: column}, Values: keys}).
		Where(clause.Neq{Column: clause.Column{Name: r.deleted}, Value: nil}).
		Update(r.deleted, nil)
	if res.Error != nil {
		return 0, mapError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *Repository[T]) bulkSetActive(ctx context.Context, column string, keys []any, active bool) (int64, error) {
	if err := r.requireActive(); err != nil {
		return 0, err
	}
	res := r.model(ctx).
		Where(clause.IN{Column: clause.Column{Name: column}, Values: keys}).
		Update(r.activeCol, active)
	if res.Error != nil {
		return 0, mapError(res.Error)
	}
	return res.RowsAffected, nil
}
