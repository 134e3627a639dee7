package domain

import (
	"context"
	"io"
	"iter"
)

// CatalogRepository is the storage contract every catalog resource is served by.
// Implementations join the transaction carried by ctx, if any.
type CatalogRepository[T any] interface {
	Paginate(ctx context.Context, q ListQuery, with, withCount []string) (*Page[T], error)
	PaginateByIDsDesc(ctx context.Context, ids []uint, perPage int, with, withCount []string) (*Page[T], error)
	All(ctx context.Context) ([]T, error)
	Count(ctx context.Context, filters ...Filter) (int64, error)
	ExistsByID(ctx context.Context, id uint) (bool, error)
	ExistsByUUID(ctx context.Context, uuid string) (bool, error)

	FindByID(ctx context.Context, id uint) (*T, error)
	FindByUUID(ctx context.Context, uuid string) (*T, error)
	FindOrFailByID(ctx context.Context, id uint) (*T, error)
	FindOrFailByUUID(ctx context.Context, uuid string) (*T, error)

	Create(ctx context.Context, entity *T) (*T, error)
	CreateMany(ctx context.Context, entities []*T) ([]*T, error)
	Update(ctx context.Context, id uint, attrs map[string]any) (*T, error)
	UpdateEntity(ctx context.Context, entity *T, attrs map[string]any) (*T, error)
	Upsert(ctx context.Context, rows []*T, uniqueBy, updateColumns []string) (int64, error)

	Delete(ctx context.Context, id uint) (bool, error)
	ForceDelete(ctx context.Context, id uint) (bool, error)
	Restore(ctx context.Context, id uint) (bool, error)
	SetActive(ctx context.Context, id uint, active bool) (*T, error)

	BulkDeleteByIDs(ctx context.Context, ids []uint) (int64, error)
	BulkDeleteByUUIDs(ctx context.Context, uuids []string) (int64, error)
	BulkForceDeleteByIDs(ctx context.Context, ids []uint) (int64, error)
	BulkForceDeleteByUUIDs(ctx context.Context, uuids []string) (int64, error)
	BulkRestoreByIDs(ctx context.Context, ids []uint) (int64, error)
	BulkRestoreByUUIDs(ctx context.Context, uuids []string) (int64, error)
	BulkSetActiveByIDs(ctx context.Context, ids []uint, active bool) (int64, error)
	BulkSetActiveByUUIDs(ctx context.Context, uuids []string, active bool) (int64, error)

	WithPessimisticLockByID(ctx context.Context, id uint, fn func(ctx context.Context, entity *T) error) error
	WithPessimisticLockByUUID(ctx context.Context, uuid string, fn func(ctx context.Context, entity *T) error) error

	// Attributes returns every persisted column of entity keyed by column name.
	Attributes(entity *T) Row
}

// Transactor runs fn as one atomic unit of work. The ctx passed to fn carries
// the transaction; nested calls join it.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ExporterKey is the registry key of the exporter for format, e.g. "exporter.csv".
func ExporterKey(format string) string {
	return "exporter." + format
}

// Exporter writes a lazy sequence of rows in one file format. Export must
// consume rows until exhausted or until the sequence yields an error, and
// returns the number of rows written.
type Exporter interface {
	Format() string
	Extension() string
	ContentType() string
	Export(w io.Writer, rows iter.Seq2[Row, error], columns []string) (int, error)
}
