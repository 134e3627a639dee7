package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Defaults applied when a ListQuery is built without explicit paging.
const (
	DefaultPage    = 1
	DefaultPerPage = 15
)

// Filter key suffixes recognized by ParseFilter.
const (
	suffixLike    = "_like"
	suffixBetween = "_between"
	suffixIn      = "_in"
)

// SortDirection is the ordering direction of a listing.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection maps user input to a SortDirection. Anything other than
// "desc" (case-insensitive) sorts ascending.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(s), string(SortDesc)) {
		return SortDesc
	}
	return SortAsc
}

// TrashedMode controls whether soft-deleted rows take part in a listing.
type TrashedMode string

const (
	TrashedNone TrashedMode = ""
	TrashedWith TrashedMode = "with"
	TrashedOnly TrashedMode = "only"
)

// ParseTrashedMode maps user input to a TrashedMode; unknown values mean TrashedNone.
func ParseTrashedMode(s string) TrashedMode {
	switch TrashedMode(strings.ToLower(strings.TrimSpace(s))) {
	case TrashedWith:
		return TrashedWith
	case TrashedOnly:
		return TrashedOnly
	default:
		return TrashedNone
	}
}

// FilterKind enumerates the predicate shapes a filter can take.
type FilterKind int

const (
	FilterEquals FilterKind = iota
	FilterContains
	FilterBetween
	FilterIn
)

// String returns the filter key suffix of the kind, or "eq" for equality.
func (k FilterKind) String() string {
	switch k {
	case FilterContains:
		return "like"
	case FilterBetween:
		return "between"
	case FilterIn:
		return "in"
	default:
		return "eq"
	}
}

// FilterValue is a closed sum type over the supported predicates. Build it with
// Equals, Contains, Between or In.
type FilterValue struct {
	Kind   FilterKind
	Value  any   // Equals, Contains
	From   any   // Between; nil leaves the lower bound open
	To     any   // Between; nil leaves the upper bound open
	Values []any // In
}

// Equals matches rows whose column equals v (IS NULL when v is nil).
func Equals(v any) FilterValue {
	return FilterValue{Kind: FilterEquals, Value: v}
}

// Contains matches rows whose column contains s, ignoring case.
func Contains(s string) FilterValue {
	return FilterValue{Kind: FilterContains, Value: s}
}

// Between matches rows whose column lies in [from, to]. A nil bound is open.
func Between(from, to any) FilterValue {
	return FilterValue{Kind: FilterBetween, From: from, To: to}
}

// In matches rows whose column is one of values. An empty list matches nothing.
func In(values ...any) FilterValue {
	if values == nil {
		values = []any{}
	}
	return FilterValue{Kind: FilterIn, Values: values}
}

// Filter binds a FilterValue to a column.
type Filter struct {
	Column string
	Value  FilterValue
}

// ParseFilter decides the predicate shape of an untyped filter from its key
// suffix. It reports false when the entry carries no constraint (an empty bare
// value, a range with both bounds missing, or an empty column name).
func ParseFilter(key string, raw any) (Filter, bool) {
	key = strings.TrimSpace(key)

	switch {
	case strings.HasSuffix(key, suffixLike):
		column := strings.TrimSuffix(key, suffixLike)
		s := scalarString(raw)
		if column == "" || s == "" {
			return Filter{}, false
		}
		return Filter{Column: column, Value: Contains(s)}, true

	case strings.HasSuffix(key, suffixBetween):
		column := strings.TrimSuffix(key, suffixBetween)
		from, to := rangeBounds(raw)
		if column == "" || (from == nil && to == nil) {
			return Filter{}, false
		}
		return Filter{Column: column, Value: Between(from, to)}, true

	case strings.HasSuffix(key, suffixIn):
		column := strings.TrimSuffix(key, suffixIn)
		if column == "" {
			return Filter{}, false
		}
		return Filter{Column: column, Value: In(listValues(raw)...)}, true

	default:
		if key == "" || raw == nil {
			return Filter{}, false
		}
		if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
			return Filter{}, false
		}
		return Filter{Column: key, Value: Equals(raw)}, true
	}
}

// ParseFilters converts an untyped filter map (decoded JSON or query
// parameters) into typed filters, ordered by key.
func ParseFilters(raw map[string]any) []Filter {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	filters := make([]Filter, 0, len(keys))
	for _, k := range keys {
		if f, ok := ParseFilter(k, raw[k]); ok {
			filters = append(filters, f)
		}
	}
	return filters
}

func scalarString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// rangeBounds accepts {from, to} maps, two-element lists and "from,to" strings.
func rangeBounds(raw any) (from, to any) {
	switch v := raw.(type) {
	case map[string]any:
		return emptyToNil(v["from"]), emptyToNil(v["to"])
	case map[string]string:
		return emptyToNil(v["from"]), emptyToNil(v["to"])
	case []any:
		if len(v) == 2 {
			return emptyToNil(v[0]), emptyToNil(v[1])
		}
	case []string:
		if len(v) == 2 {
			return emptyToNil(v[0]), emptyToNil(v[1])
		}
	case string:
		lo, hi, found := strings.Cut(v, ",")
		if !found {
			return emptyToNil(lo), nil
		}
		return emptyToNil(lo), emptyToNil(hi)
	}
	return nil, nil
}

// listValues accepts lists and comma-separated strings. Any other scalar is a
// single-element list.
func listValues(raw any) []any {
	switch v := raw.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	case []string:
		out := make([]any, 0, len(v))
		for _, s := range v {
			out = append(out, splitList(s)...)
		}
		return out
	case string:
		return splitList(v)
	default:
		return []any{v}
	}
}

func splitList(s string) []any {
	out := []any{}
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func emptyToNil(v any) any {
	if s, ok := v.(string); ok {
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
		return s
	}
	return v
}

// ListQuery describes one listing or export request. It is immutable once
// built; use NewListQuery with options, or AtPage for a re-paged copy.
type ListQuery struct {
	search        string
	page          int
	perPage       int
	sortColumn    string
	sortDirection SortDirection
	filters       []Filter
	trashed       TrashedMode
}

// ListQueryOption configures a ListQuery under construction.
type ListQueryOption func(*ListQuery)

// NewListQuery builds a ListQuery. Without options it asks for the first page
// of DefaultPerPage rows in the default order.
func NewListQuery(opts ...ListQueryOption) ListQuery {
	q := ListQuery{
		page:          DefaultPage,
		perPage:       DefaultPerPage,
		sortDirection: SortDesc,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// WithSearch sets the free-text search term.
func WithSearch(term string) ListQueryOption {
	return func(q *ListQuery) {
		q.search = strings.TrimSpace(term)
	}
}

// WithPage sets page number and page size. Values below 1 fall back to the defaults.
func WithPage(page, perPage int) ListQueryOption {
	return func(q *ListQuery) {
		if page < 1 {
			page = DefaultPage
		}
		if perPage < 1 {
			perPage = DefaultPerPage
		}
		q.page = page
		q.perPage = perPage
	}
}

// WithSort sets the requested sort column and direction. Whether the column is
// honored is decided by the repository's allow-list.
func WithSort(column string, dir SortDirection) ListQueryOption {
	return func(q *ListQuery) {
		q.sortColumn = strings.TrimSpace(column)
		if dir != SortAsc && dir != SortDesc {
			dir = SortAsc
		}
		q.sortDirection = dir
	}
}

// WithFilter adds a typed filter on column.
func WithFilter(column string, v FilterValue) ListQueryOption {
	return func(q *ListQuery) {
		q.filters = append(q.filters, Filter{Column: column, Value: v})
	}
}

// WithFilters adds already parsed filters.
func WithFilters(filters ...Filter) ListQueryOption {
	return func(q *ListQuery) {
		q.filters = append(q.filters, filters...)
	}
}

// WithTrashed opts soft-deleted rows into the listing.
func WithTrashed(mode TrashedMode) ListQueryOption {
	return func(q *ListQuery) {
		q.trashed = mode
	}
}

// Search returns the free-text term; empty means no search.
func (q ListQuery) Search() string { return q.search }

// Page returns the 1-based page number.
func (q ListQuery) Page() int { return q.page }

// PerPage returns the page size.
func (q ListQuery) PerPage() int { return q.perPage }

// SortColumn returns the requested sort column, possibly empty.
func (q ListQuery) SortColumn() string { return q.sortColumn }

// SortDirection returns the requested sort direction.
func (q ListQuery) SortDirection() SortDirection { return q.sortDirection }

// Trashed returns whether soft-deleted rows are included.
func (q ListQuery) Trashed() TrashedMode { return q.trashed }

// Filters returns a copy of the query's filters.
func (q ListQuery) Filters() []Filter {
	return slices.Clone(q.filters)
}

// AtPage returns a copy of q asking for another page.
func (q ListQuery) AtPage(page, perPage int) ListQuery {
	c := q
	c.filters = slices.Clone(q.filters)
	WithPage(page, perPage)(&c)
	return c
}
