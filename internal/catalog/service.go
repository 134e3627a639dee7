package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/simp-lee/catalog/internal/domain"
	"github.com/simp-lee/catalog/internal/metrics"
)

const defaultExportChunkSize = 500

// DefaultExportColumns are exported when the caller names no columns.
var DefaultExportColumns = []string{"id", "created_at", "updated_at"}

// ExporterResolver looks up an exporter by its registry key.
type ExporterResolver interface {
	Resolve(key string) (domain.Exporter, bool)
}

// ServiceOptions configures a Service for one resource.
type ServiceOptions[T any] struct {
	// Resource names the resource in logs, metrics and default export filenames.
	Resource string
	// ToRow maps an entity to its output row. Defaults to the repository's Attributes.
	ToRow func(entity *T) domain.Row
	// Exporters resolves "exporter.<format>" keys.
	Exporters ExporterResolver
	// ExportChunkSize is the internal page size of exports. Defaults to 500.
	ExportChunkSize int
	// DefaultColumns replaces DefaultExportColumns for this resource.
	DefaultColumns []string
	// ActivationGuard runs under a row lock inside the SetActive transaction.
	// A non-nil error aborts the change.
	ActivationGuard func(ctx context.Context, entity *T, active bool) error
	Logger          *slog.Logger
	// Now is the clock used for default export filenames.
	Now func() time.Time
}

// Service puts transaction boundaries, row mapping and export on top of a
// catalog repository. It is safe for concurrent use.
type Service[T any] struct {
	repo   domain.CatalogRepository[T]
	tx     domain.Transactor
	opts   ServiceOptions[T]
	logger *slog.Logger
}

// NewService creates a Service for repo. tx opens the transactions the
// service's write operations run in.
func NewService[T any](repo domain.CatalogRepository[T], tx domain.Transactor, opts ServiceOptions[T]) *Service[T] {
	if opts.ToRow == nil {
		opts.ToRow = repo.Attributes
	}
	if opts.ExportChunkSize < 1 {
		opts.ExportChunkSize = defaultExportChunkSize
	}
	if len(opts.DefaultColumns) == 0 {
		opts.DefaultColumns = DefaultExportColumns
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service[T]{
		repo:   repo,
		tx:     tx,
		opts:   opts,
		logger: logger.With("resource", opts.Resource),
	}
}

// Resource returns the resource name.
func (s *Service[T]) Resource() string { return s.opts.Resource }

// ToRow maps entity to its output row.
func (s *Service[T]) ToRow(entity *T) domain.Row {
	return s.opts.ToRow(entity)
}

// List returns one page of mapped rows. Requested relation counts are merged
// into each row.
func (s *Service[T]) List(ctx context.Context, q domain.ListQuery, with, withCount []string) (*domain.ListResult, error) {
	page, err := s.repo.Paginate(ctx, q, with, withCount)
	if err != nil {
		return nil, err
	}
	return s.result(page), nil
}

// ListByIDsDesc is List restricted to ids, newest first.
func (s *Service[T]) ListByIDsDesc(ctx context.Context, ids []uint, perPage int, with, withCount []string) (*domain.ListResult, error) {
	page, err := s.repo.PaginateByIDsDesc(ctx, ids, perPage, with, withCount)
	if err != nil {
		return nil, err
	}
	return s.result(page), nil
}

func (s *Service[T]) result(page *domain.Page[T]) *domain.ListResult {
	rows := make([]domain.Row, len(page.Items))
	for i := range page.Items {
		row := s.ToRow(&page.Items[i])
		if i < len(page.Counts) {
			for k, v := range page.Counts[i] {
				row[k] = v
			}
		}
		rows[i] = row
	}
	return &domain.ListResult{Rows: rows, Meta: page.Meta()}
}

// GetByID returns the row with id, or nil when there is none.
func (s *Service[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	return s.repo.FindByID(ctx, id)
}

// GetOrFailByID returns the row with id or domain.ErrNotFound.
func (s *Service[T]) GetOrFailByID(ctx context.Context, id uint) (*T, error) {
	return s.repo.FindOrFailByID(ctx, id)
}

// GetByUUID returns the row with the secondary key, or nil when there is none.
func (s *Service[T]) GetByUUID(ctx context.Context, uuid string) (*T, error) {
	return s.repo.FindByUUID(ctx, uuid)
}

// GetOrFailByUUID returns the row with the secondary key or domain.ErrNotFound.
func (s *Service[T]) GetOrFailByUUID(ctx context.Context, uuid string) (*T, error) {
	return s.repo.FindOrFailByUUID(ctx, uuid)
}

// Create inserts entity in its own transaction.
func (s *Service[T]) Create(ctx context.Context, entity *T) (*T, error) {
	return InTransaction(ctx, s.tx, func(ctx context.Context) (*T, error) {
		return s.repo.Create(ctx, entity)
	})
}

// CreateMany inserts entities atomically.
func (s *Service[T]) CreateMany(ctx context.Context, entities []*T) ([]*T, error) {
	return InTransaction(ctx, s.tx, func(ctx context.Context) ([]*T, error) {
		return s.repo.CreateMany(ctx, entities)
	})
}

// Update applies attrs to the row with id atomically.
func (s *Service[T]) Update(ctx context.Context, id uint, attrs map[string]any) (*T, error) {
	return InTransaction(ctx, s.tx, func(ctx context.Context) (*T, error) {
		return s.repo.Update(ctx, id, attrs)
	})
}

// UpdateEntity applies attrs to a loaded entity atomically.
func (s *Service[T]) UpdateEntity(ctx context.Context, entity *T, attrs map[string]any) (*T, error) {
	return InTransaction(ctx, s.tx, func(ctx context.Context) (*T, error) {
		return s.repo.UpdateEntity(ctx, entity, attrs)
	})
}

// Upsert inserts or updates rows atomically.
func (s *Service[T]) Upsert(ctx context.Context, rows []*T, uniqueBy, updateColumns []string) (int64, error) {
	return InTransaction(ctx, s.tx, func(ctx context.Context) (int64, error) {
		return s.repo.Upsert(ctx, rows, uniqueBy, updateColumns)
	})
}

// Delete soft-deletes the row with id and reports whether a row was affected.
func (s *Service[T]) Delete(ctx context.Context, id uint) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// ForceDelete permanently removes the row with id, trashed or not.
func (s *Service[T]) ForceDelete(ctx context.Context, id uint) (bool, error) {
	return s.repo.ForceDelete(ctx, id)
}

// Restore brings back a soft-deleted row and reports whether it was trashed.
func (s *Service[T]) Restore(ctx context.Context, id uint) (bool, error) {
	return s.repo.Restore(ctx, id)
}

// SetActive changes the active flag in a transaction. When an activation
// guard is configured it runs first, with the row locked, in the same
// transaction.
func (s *Service[T]) SetActive(ctx context.Context, id uint, active bool) (*T, error) {
	return InTransaction(ctx, s.tx, func(ctx context.Context) (*T, error) {
		if guard := s.opts.ActivationGuard; guard != nil {
			err := s.repo.WithPessimisticLockByID(ctx, id, func(ctx context.Context, entity *T) error {
				return guard(ctx, entity, active)
			})
			if err != nil {
				return nil, err
			}
		}
		return s.repo.SetActive(ctx, id, active)
	})
}

// BulkDeleteByIDs soft-deletes the rows with the given ids and returns the affected count.
func (s *Service[T]) BulkDeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	return s.bulk(ctx, "delete", len(ids), func() (int64, error) { return s.repo.BulkDeleteByIDs(ctx, ids) })
}

// BulkDeleteByUUIDs is BulkDeleteByIDs keyed by the secondary key.
func (s *Service[T]) BulkDeleteByUUIDs(ctx context.Context, uuids []string) (int64, error) {
	return s.bulk(ctx, "delete", len(uuids), func() (int64, error) { return s.repo.BulkDeleteByUUIDs(ctx, uuids) })
}

// BulkForceDeleteByIDs permanently removes the rows with the given ids.
func (s *Service[T]) BulkForceDeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	return s.bulk(ctx, "force_delete", len(ids), func() (int64, error) { return s.repo.BulkForceDeleteByIDs(ctx, ids) })
}

// BulkForceDeleteByUUIDs is BulkForceDeleteByIDs keyed by the secondary key.
func (s *Service[T]) BulkForceDeleteByUUIDs(ctx context.Context, uuids []string) (int64, error) {
	return s.bulk(ctx, "force_delete", len(uuids), func() (int64, error) { return s.repo.BulkForceDeleteByUUIDs(ctx, uuids) })
}

// BulkRestoreByIDs restores the trashed rows among ids.
func (s *Service[T]) BulkRestoreByIDs(ctx context.Context, ids []uint) (int64, error) {
	return s.bulk(ctx, "restore", len(ids), func() (int64, error) { return s.repo.BulkRestoreByIDs(ctx, ids) })
}

// BulkRestoreByUUIDs is BulkRestoreByIDs keyed by the secondary key.
func (s *Service[T]) BulkRestoreByUUIDs(ctx context.Context, uuids []string) (int64, error) {
	return s.bulk(ctx, "restore", len(uuids), func() (int64, error) { return s.repo.BulkRestoreByUUIDs(ctx, uuids) })
}

// BulkSetActiveByIDs sets the active flag of the live rows among ids. The
// activation guard is not consulted.
func (s *Service[T]) BulkSetActiveByIDs(ctx context.Context, ids []uint, active bool) (int64, error) {
	return s.bulk(ctx, "set_active", len(ids), func() (int64, error) { return s.repo.BulkSetActiveByIDs(ctx, ids, active) })
}

// BulkSetActiveByUUIDs is BulkSetActiveByIDs keyed by the secondary key.
func (s *Service[T]) BulkSetActiveByUUIDs(ctx context.Context, uuids []string, active bool) (int64, error) {
	return s.bulk(ctx, "set_active", len(uuids), func() (int64, error) { return s.repo.BulkSetActiveByUUIDs(ctx, uuids, active) })
}

func (s *Service[T]) bulk(ctx context.Context, op string, requested int, fn func() (int64, error)) (int64, error) {
	affected, err := fn()
	if err != nil {
		return 0, err
	}
	metrics.RecordBulk(s.opts.Resource, op, affected)
	s.logger.DebugContext(ctx, "bulk operation", "operation", op, "requested", requested, "affected", affected)
	return affected, nil
}

// Transaction runs fn as one unit of work; repository calls made with the ctx
// passed to fn join it.
func (s *Service[T]) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.tx.Transaction(ctx, fn)
}

// InTransaction runs fn in a transaction of tx and returns its result.
func InTransaction[R any](ctx context.Context, tx domain.Transactor, fn func(ctx context.Context) (R, error)) (R, error) {
	var out R
	err := tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}
