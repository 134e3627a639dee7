package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/simp-lee/catalog/internal/domain"
	"github.com/simp-lee/catalog/internal/pkg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var deletedAtType = reflect.TypeOf(gorm.DeletedAt{})

// Options declares what a resource exposes to listings.
type Options struct {
	// Searchable columns take part in the free-text search.
	Searchable []string
	// Sortable columns may be requested as sort column. The primary key is always sortable.
	Sortable []string
	// Filterable columns accept filters; filters on other columns are ignored.
	Filterable []string
	// UUIDColumn names the secondary unique key. Defaults to "uuid".
	UUIDColumn string
	// ActiveColumn names the boolean active flag. Defaults to "active".
	ActiveColumn string
}

// Repository is the gorm implementation of domain.CatalogRepository for one
// model type. Capabilities (secondary key, active flag, soft delete) are
// detected from the model's gorm schema.
type Repository[T any] struct {
	db        *gorm.DB
	tx        *pkg.TxManager
	opts      Options
	schema    *schema.Schema
	pk        string
	uuidCol   string
	activeCol string
	deleted   string
	relations map[string]*schema.Relationship
}

var _ domain.CatalogRepository[domain.Market] = (*Repository[domain.Market])(nil)

// NewRepository parses T's gorm schema and creates a Repository for it.
func NewRepository[T any](db *gorm.DB, opts Options) (*Repository[T], error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("parse model schema: %w", err)
	}
	s := stmt.Schema
	if s.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("model %s has no primary key", s.Name)
	}

	if opts.UUIDColumn == "" {
		opts.UUIDColumn = "uuid"
	}
	if opts.ActiveColumn == "" {
		opts.ActiveColumn = "active"
	}

	r := &Repository[T]{
		db:        db,
		tx:        pkg.NewTxManager(db),
		schema:    s,
		pk:        s.PrioritizedPrimaryField.DBName,
		relations: make(map[string]*schema.Relationship),
	}
	if f := s.LookUpField(opts.UUIDColumn); f != nil && f.DBName != "" {
		r.uuidCol = f.DBName
	}
	if f := s.LookUpField(opts.ActiveColumn); f != nil && f.DBName != "" {
		r.activeCol = f.DBName
	}
	r.deleted = softDeleteColumn(s)

	if !slices.Contains(opts.Sortable, r.pk) {
		opts.Sortable = append(slices.Clone(opts.Sortable), r.pk)
	}
	r.opts = opts

	for name, rel := range s.Relationships.Relations {
		r.relations[strings.ToLower(name)] = rel
		r.relations[db.NamingStrategy.ColumnName("", name)] = rel
	}

	return r, nil
}

func softDeleteColumn(s *schema.Schema) string {
	for _, f := range s.Fields {
		if f.FieldType == deletedAtType && f.DBName != "" {
			return f.DBName
		}
	}
	return ""
}

// PrimaryKey returns the primary key column name.
func (r *Repository[T]) PrimaryKey() string { return r.pk }

// SoftDeletes reports whether T carries a soft-delete column.
func (r *Repository[T]) SoftDeletes() bool { return r.deleted != "" }

// conn returns the connection for ctx, joining its transaction if any.
func (r *Repository[T]) conn(ctx context.Context) *gorm.DB {
	return pkg.Conn(ctx, r.db)
}

func (r *Repository[T]) model(ctx context.Context) *gorm.DB {
	return r.conn(ctx).Model(new(T))
}

func (r *Repository[T]) byPK(id any) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: r.pk}, Value: id}
}

// scoped builds the shared WHERE part of a listing. The returned handle is a
// fresh session and can be reused for Count and Find.
func (r *Repository[T]) scoped(ctx context.Context, search string, filters []domain.Filter, trashed domain.TrashedMode) *gorm.DB {
	db := r.model(ctx)
	db = pkg.Trashed(trashed, r.deleted)(db)
	db = pkg.Search(search, r.opts.Searchable)(db)
	db = pkg.Filter(filters, r.opts.Filterable)(db)
	return db.Session(&gorm.Session{})
}

// Paginate lists one page of T matching q. Unknown relation names in with or
// withCount are a validation error.
func (r *Repository[T]) Paginate(ctx context.Context, q domain.ListQuery, with, withCount []string) (*domain.Page[T], error) {
	if err := r.checkRelations(with, withCount); err != nil {
		return nil, err
	}

	base := r.scoped(ctx, q.Search(), q.Filters(), q.Trashed())

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, mapError(err)
	}

	page := pkg.NewPage[T](nil, total, q.Page(), q.PerPage())
	if total == 0 || page.CurrentPage > page.LastPage {
		return page, nil
	}

	query := pkg.Sort(q.SortColumn(), q.SortDirection(), r.opts.Sortable, r.pk)(base)
	query = pkg.Paginate(page.CurrentPage, page.PerPage)(query)
	query = r.preload(query, with)

	var items []T
	if err := query.Find(&items).Error; err != nil {
		return nil, mapError(err)
	}
	page.Items = items

	counts, err := r.relationCounts(ctx, items, withCount)
	if err != nil {
		return nil, err
	}
	page.Counts = counts
	return page, nil
}

// PaginateByIDsDesc returns the first page of the rows whose primary key is in
// ids, ordered by primary key descending regardless of the order of ids.
func (r *Repository[T]) PaginateByIDsDesc(ctx context.Context, ids []uint, perPage int, with, withCount []string) (*domain.Page[T], error) {
	if err := r.checkRelations(with, withCount); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return pkg.NewPage[T](nil, 0, 1, perPage), nil
	}

	base := r.model(ctx).
		Where(clause.IN{Column: clause.Column{Name: r.pk}, Values: keyValues(ids)}).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, mapError(err)
	}

	page := pkg.NewPage[T](nil, total, 1, perPage)
	if total == 0 {
		return page, nil
	}

	query := base.
		Order(clause.OrderByColumn{Column: clause.Column{Name: r.pk}, Desc: true}).
		Limit(page.PerPage)
	query = r.preload(query, with)

	var items []T
	if err := query.Find(&items).Error; err != nil {
		return nil, mapError(err)
	}
	page.Items = items

	counts, err := r.relationCounts(ctx, items, withCount)
	if err != nil {
		return nil, err
	}
	page.Counts = counts
	return page, nil
}

// All returns every live row ordered by primary key.
func (r *Repository[T]) All(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.conn(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: r.pk}}).Find(&items).Error; err != nil {
		return nil, mapError(err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Count returns the number of live rows matching filters, applied as in Paginate.
func (r *Repository[T]) Count(ctx context.Context, filters ...domain.Filter) (int64, error) {
	var total int64
	if err := r.scoped(ctx, "", filters, domain.TrashedNone).Count(&total).Error; err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

// ExistsByID reports whether a live row with the primary key exists.
func (r *Repository[T]) ExistsByID(ctx context.Context, id uint) (bool, error) {
	return r.exists(ctx, r.pk, id)
}

// ExistsByUUID reports whether a live row with the secondary key exists.
func (r *Repository[T]) ExistsByUUID(ctx context.Context, uuid string) (bool, error) {
	if err := r.requireUUID(); err != nil {
		return false, err
	}
	return r.exists(ctx, r.uuidCol, uuid)
}

func (r *Repository[T]) exists(ctx context.Context, column string, key any) (bool, error) {
	var n int64
	err := r.model(ctx).Where(clause.Eq{Column: clause.Column{Name: column}, Value: key}).Count(&n).Error
	if err != nil {
		return false, mapError(err)
	}
	return n > 0, nil
}

// FindByID returns the row with the primary key, or nil when there is none.
func (r *Repository[T]) FindByID(ctx context.Context, id uint) (*T, error) {
	return orNil(r.FindOrFailByID(ctx, id))
}

// FindByUUID returns the row with the secondary key, or nil when there is none.
func (r *Repository[T]) FindByUUID(ctx context.Context, uuid string) (*T, error) {
	return orNil(r.FindOrFailByUUID(ctx, uuid))
}

// FindOrFailByID returns the row with the primary key or domain.ErrNotFound.
func (r *Repository[T]) FindOrFailByID(ctx context.Context, id uint) (*T, error) {
	return r.take(r.conn(ctx), r.pk, id)
}

// FindOrFailByUUID returns the row with the secondary key or domain.ErrNotFound.
func (r *Repository[T]) FindOrFailByUUID(ctx context.Context, uuid string) (*T, error) {
	if err := r.requireUUID(); err != nil {
		return nil, err
	}
	return r.take(r.conn(ctx), r.uuidCol, uuid)
}

func (r *Repository[T]) take(db *gorm.DB, column string, key any) (*T, error) {
	var entity T
	if err := db.Where(clause.Eq{Column: clause.Column{Name: column}, Value: key}).Take(&entity).Error; err != nil {
		return nil, mapError(err)
	}
	return &entity, nil
}

func orNil[T any](entity *T, err error) (*T, error) {
	if domain.IsNotFound(err) {
		return nil, nil
	}
	return entity, err
}

// Create inserts entity and returns it with generated keys filled in.
func (r *Repository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	if err := r.conn(ctx).Create(entity).Error; err != nil {
		return nil, mapError(err)
	}
	return entity, nil
}

// CreateMany inserts entities in one statement.
func (r *Repository[T]) CreateMany(ctx context.Context, entities []*T) ([]*T, error) {
	if len(entities) == 0 {
		return []*T{}, nil
	}
	if err := r.conn(ctx).Create(entities).Error; err != nil {
		return nil, mapError(err)
	}
	return entities, nil
}

// Update applies attrs to the row with the primary key and returns the reloaded row.
func (r *Repository[T]) Update(ctx context.Context, id uint, attrs map[string]any) (*T, error) {
	entity, err := r.FindOrFailByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.UpdateEntity(ctx, entity, attrs)
}

// UpdateEntity applies attrs to a loaded entity and returns the reloaded row.
// Keys may be column or field names; unknown or immutable keys are a
// validation error.
func (r *Repository[T]) UpdateEntity(ctx context.Context, entity *T, attrs map[string]any) (*T, error) {
	if entity == nil {
		return nil, domain.Invalid("entity is required")
	}
	values, err := r.normalizeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	id := r.primaryValue(entity)

	if len(values) > 0 {
		if err := r.conn(ctx).Model(entity).Updates(values).Error; err != nil {
			return nil, mapError(err)
		}
	}
	return r.take(r.conn(ctx).Unscoped(), r.pk, id)
}

// normalizeAttributes maps attribute keys to column names and rejects keys
// that are unknown or must not change through an update.
func (r *Repository[T]) normalizeAttributes(attrs map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(attrs))
	for key, v := range attrs {
		f := r.schema.LookUpField(key)
		if f == nil || f.DBName == "" {
			return nil, domain.Invalid("unknown attribute %q", key)
		}
		if f.PrimaryKey || !f.Updatable || f.DBName == r.uuidCol || f.DBName == r.deleted {
			return nil, domain.Invalid("attribute %q cannot be updated", key)
		}
		values[f.DBName] = v
	}
	return values, nil
}

// Upsert inserts rows, updating updateColumns of the rows that clash on
// uniqueBy. With no updateColumns clashing rows are left untouched. It returns
// the number of rows inserted or updated as reported by the driver.
func (r *Repository[T]) Upsert(ctx context.Context, rows []*T, uniqueBy, updateColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(uniqueBy) == 0 {
		return 0, domain.Invalid("upsert requires at least one unique column")
	}

	conflict := clause.OnConflict{}
	for _, name := range uniqueBy {
		col, err := r.column(name)
		if err != nil {
			return 0, err
		}
		conflict.Columns = append(conflict.Columns, clause.Column{Name: col})
	}

	if len(updateColumns) == 0 {
		conflict.DoNothing = true
	} else {
		cols := make([]string, 0, len(updateColumns)+1)
		for _, name := range updateColumns {
			col, err := r.column(name)
			if err != nil {
				return 0, err
			}
			cols = append(cols, col)
		}
		if f := r.schema.LookUpField("updated_at"); f != nil && !slices.Contains(cols, f.DBName) {
			cols = append(cols, f.DBName)
		}
		conflict.DoUpdates = clause.AssignmentColumns(cols)
	}

	res := r.conn(ctx).Clauses(conflict).Create(rows)
	if res.Error != nil {
		return 0, mapError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *Repository[T]) column(name string) (string, error) {
	f := r.schema.LookUpField(name)
	if f == nil || f.DBName == "" {
		return "", domain.Invalid("unknown column %q", name)
	}
	return f.DBName, nil
}

// Delete soft-deletes the row when T supports it and hard-deletes it otherwise.
// It reports whether a row was affected.
func (r *Repository[T]) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.conn(ctx).Where(r.byPK(id)).Delete(new(T))
	if res.Error != nil {
		return false, mapError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ForceDelete permanently removes the row, trashed or not.
func (r *Repository[T]) ForceDelete(ctx context.Context, id uint) (bool, error) {
	res := r.conn(ctx).Unscoped().Where(r.byPK(id)).Delete(new(T))
	if res.Error != nil {
		return false, mapError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Restore clears the soft-delete timestamp. It reports false for rows that
// are not trashed and for models without soft delete.
func (r *Repository[T]) Restore(ctx context.Context, id uint) (bool, error) {
	if r.deleted == "" {
		return false, nil
	}
	res := r.model(ctx).Unscoped().
		Where(r.byPK(id)).
		Where(clause.Neq{Column: clause.Column{Name: r.deleted}, Value: nil}).
		Update(r.deleted, nil)
	if res.Error != nil {
		return false, mapError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SetActive sets the active flag of the row and returns the reloaded row.
func (r *Repository[T]) SetActive(ctx context.Context, id uint, active bool) (*T, error) {
	if err := r.requireActive(); err != nil {
		return nil, err
	}
	entity, err := r.FindOrFailByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.conn(ctx).Model(entity).Update(r.activeCol, active).Error; err != nil {
		return nil, mapError(err)
	}
	return r.FindOrFailByID(ctx, id)
}

// Attributes returns every persisted column of entity keyed by column name.
// The soft-delete column is flattened to nil or its time.Time.
func (r *Repository[T]) Attributes(entity *T) domain.Row {
	row := make(domain.Row, len(r.schema.DBNames))
	if entity == nil {
		return row
	}
	rv := reflect.ValueOf(entity).Elem()
	for _, f := range r.schema.Fields {
		if f.DBName == "" {
			continue
		}
		v, _ := f.ValueOf(context.Background(), rv)
		if d, ok := v.(gorm.DeletedAt); ok {
			if d.Valid {
				v = d.Time
			} else {
				v = nil
			}
		}
		row[f.DBName] = v
	}
	return row
}

func (r *Repository[T]) primaryValue(entity *T) any {
	v, _ := r.schema.PrioritizedPrimaryField.ValueOf(context.Background(), reflect.ValueOf(entity).Elem())
	return v
}

func (r *Repository[T]) requireUUID() error {
	if r.uuidCol == "" {
		return domain.Invalid("%s has no uuid column", r.schema.Name)
	}
	return nil
}

func (r *Repository[T]) requireActive() error {
	if r.activeCol == "" {
		return domain.Invalid("%s has no active column", r.schema.Name)
	}
	return nil
}

// keyValues deduplicates keys for an IN clause.
func keyValues[K comparable](keys []K) []any {
	seen := make(map[K]struct{}, len(keys))
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// mapError converts GORM errors to domain errors, keeping the original
// error reachable through errors.Is and errors.As.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "already exists", err)
	}
	if isConflictError(err) {
		return domain.NewAppError(domain.CodeConflict, "concurrent update conflict, retry the request", err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) || isConstraintError(err) {
		return domain.NewAppError(domain.CodeConstraint, "constraint violation", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations by examining the
// error message. This is needed because not all GORM dialectors translate
// driver-level errors to gorm.ErrDuplicatedKey (e.g. the pure-Go SQLite driver).
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

func isConstraintError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "violates foreign key") ||
		strings.Contains(msg, "violates check constraint") ||
		strings.Contains(msg, "violates not-null constraint")
}

// isConflictError detects transactions the server aborted in favour of a
// concurrent one: postgres deadlocks (40P01) and serialization failures (40001).
func isConflictError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "sqlstate 40p01") ||
		strings.Contains(msg, "sqlstate 40001")
}
