package pkg

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/catalog/internal/domain"
	"gorm.io/gorm"
)

const maxPerPage = 100

// reservedParams lists query parameter names that drive the listing itself and
// are therefore never treated as filters.
var reservedParams = map[string]bool{
	"page":       true,
	"per_page":   true,
	"search":     true,
	"sort":       true,
	"direction":  true,
	"with":       true,
	"with_count": true,
	"trashed":    true,
	"ids":        true,
	"format":     true,
	"columns":    true,
	"filename":   true,
}

// ListRequest is a parsed listing request: the query plus the relations to
// eager load or count.
type ListRequest struct {
	Query     domain.ListQuery
	With      []string
	WithCount []string
}

// ParseListRequest extracts paging, sorting, search, trashed mode, relations
// and filters from query params. Every non-reserved parameter is a filter:
//
//	?country=DE&name_like=bank&priority_in=1,2&priority_between=1,5
//	?created_at_between[from]=2024-01-01
func ParseListRequest(c *gin.Context) ListRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(domain.DefaultPage)))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(domain.DefaultPerPage)))
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	opts := []domain.ListQueryOption{
		domain.WithPage(page, perPage),
		domain.WithSearch(c.Query("search")),
		domain.WithTrashed(domain.ParseTrashedMode(c.Query("trashed"))),
		domain.WithFilters(domain.ParseFilters(queryFilters(c))...),
	}
	if sort := c.Query("sort"); sort != "" {
		opts = append(opts, domain.WithSort(sort, domain.ParseSortDirection(c.DefaultQuery("direction", "asc"))))
	}

	return ListRequest{
		Query:     domain.NewListQuery(opts...),
		With:      SplitList(c.QueryArray("with")),
		WithCount: SplitList(c.QueryArray("with_count")),
	}
}

// queryFilters collects the non-reserved query params into the untyped shape
// accepted by domain.ParseFilters.
func queryFilters(c *gin.Context) map[string]any {
	raw := make(map[string]any)
	for key, values := range c.Request.URL.Query() {
		if len(values) == 0 {
			continue
		}

		// col_between[from]=x style bounds
		if base, bound, ok := bracketKey(key); ok {
			if reservedParams[base] {
				continue
			}
			bounds, _ := raw[base].(map[string]any)
			if bounds == nil {
				bounds = make(map[string]any, 2)
				raw[base] = bounds
			}
			bounds[bound] = values[0]
			continue
		}

		if reservedParams[key] {
			continue
		}
		if strings.HasSuffix(key, "_in") {
			raw[key] = values
			continue
		}
		raw[key] = values[0]
	}
	return raw
}

func bracketKey(key string) (base, inner string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", "", false
	}
	return key[:open], key[open+1 : len(key)-1], true
}

// SplitList flattens repeated and comma-separated values, dropping blanks.
func SplitList(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET for the given page.
func Paginate(page, perPage int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		offset := (page - 1) * perPage
		return db.Offset(offset).Limit(perPage)
	}
}

// NewPageMeta computes pagination metadata. LastPage is never below 1.
func NewPageMeta(total int64, page, perPage int) domain.PageMeta {
	if perPage < 1 {
		perPage = domain.DefaultPerPage
	}
	if page < 1 {
		page = domain.DefaultPage
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}

	return domain.PageMeta{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}
}

// NewPage creates a Page with computed LastPage. Nil items become an empty slice.
func NewPage[T any](items []T, total int64, page, perPage int) *domain.Page[T] {
	if items == nil {
		items = []T{}
	}
	meta := NewPageMeta(total, page, perPage)

	return &domain.Page[T]{
		Items:       items,
		Total:       meta.Total,
		PerPage:     meta.PerPage,
		CurrentPage: meta.CurrentPage,
		LastPage:    meta.LastPage,
	}
}
