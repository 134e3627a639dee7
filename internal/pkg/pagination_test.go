package pkg

import (
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/simp-lee/catalog/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(queryParams url.Values) *gin.Context {
	req := httptest.NewRequest(http.MethodGet, "/?"+queryParams.Encode(), nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

func newRawQueryContext(rawQuery string) *gin.Context {
	req := httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

func filterMap(filters []domain.Filter) map[string]domain.FilterValue {
	m := make(map[string]domain.FilterValue, len(filters))
	for _, f := range filters {
		m[f.Column] = f.Value
	}
	return m
}

func TestParseListRequest_Defaults(t *testing.T) {
	req := ParseListRequest(newTestContext(url.Values{}))
	q := req.Query

	if q.Page() != 1 {
		t.Errorf("expected Page=1, got %d", q.Page())
	}
	if q.PerPage() != 15 {
		t.Errorf("expected PerPage=15, got %d", q.PerPage())
	}
	if q.SortColumn() != "" {
		t.Errorf("expected no sort column, got %s", q.SortColumn())
	}
	if len(q.Filters()) != 0 {
		t.Errorf("expected no filters, got %v", q.Filters())
	}
	if req.With != nil || req.WithCount != nil {
		t.Errorf("expected no relations, got %v / %v", req.With, req.WithCount)
	}
}

func TestParseListRequest_CustomValues(t *testing.T) {
	req := ParseListRequest(newTestContext(url.Values{
		"page":       {"3"},
		"per_page":   {"50"},
		"sort":       {"name"},
		"direction":  {"desc"},
		"search":     {"acme"},
		"trashed":    {"only"},
		"with":       {"branches"},
		"with_count": {"branches"},
		"country":    {"DE"},
		"name_like":  {"bank"},
		"format":     {"csv"},
	}))
	q := req.Query

	if q.Page() != 3 || q.PerPage() != 50 {
		t.Errorf("expected page 3/50, got %d/%d", q.Page(), q.PerPage())
	}
	if q.SortColumn() != "name" || q.SortDirection() != domain.SortDesc {
		t.Errorf("expected sort name desc, got %s %s", q.SortColumn(), q.SortDirection())
	}
	if q.Search() != "acme" {
		t.Errorf("expected search acme, got %q", q.Search())
	}
	if q.Trashed() != domain.TrashedOnly {
		t.Errorf("expected trashed only, got %q", q.Trashed())
	}
	if !reflect.DeepEqual(req.With, []string{"branches"}) || !reflect.DeepEqual(req.WithCount, []string{"branches"}) {
		t.Errorf("unexpected relations %v / %v", req.With, req.WithCount)
	}

	filters := filterMap(q.Filters())
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters (reserved params excluded), got %v", filters)
	}
	if !reflect.DeepEqual(filters["country"], domain.Equals("DE")) {
		t.Errorf("country filter = %+v", filters["country"])
	}
	if !reflect.DeepEqual(filters["name"], domain.Contains("bank")) {
		t.Errorf("name filter = %+v", filters["name"])
	}
}

func TestParseListRequest_SortDefaultsToAsc(t *testing.T) {
	req := ParseListRequest(newTestContext(url.Values{"sort": {"name"}}))
	if req.Query.SortDirection() != domain.SortAsc {
		t.Errorf("expected asc, got %s", req.Query.SortDirection())
	}
}

func TestParseListRequest_Clamping(t *testing.T) {
	tests := []struct {
		name        string
		params      url.Values
		wantPage    int
		wantPerPage int
	}{
		{"page below minimum", url.Values{"page": {"0"}}, 1, 15},
		{"negative page", url.Values{"page": {"-1"}}, 1, 15},
		{"non numeric page", url.Values{"page": {"abc"}}, 1, 15},
		{"per page above maximum", url.Values{"per_page": {"1000"}}, 1, 100},
		{"negative per page", url.Values{"per_page": {"-5"}}, 1, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ParseListRequest(newTestContext(tt.params)).Query
			if q.Page() != tt.wantPage || q.PerPage() != tt.wantPerPage {
				t.Errorf("got %d/%d, want %d/%d", q.Page(), q.PerPage(), tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestParseListRequest_FilterShapes(t *testing.T) {
	c := newRawQueryContext(
		"priority_in=10&priority_in=30" +
			"&code_in=A,B" +
			"&created_at_between%5Bfrom%5D=2024-01-01" +
			"&score_between=1,5" +
			"&region=",
	)
	filters := filterMap(ParseListRequest(c).Query.Filters())

	if got := filters["priority"]; !reflect.DeepEqual(got, domain.In("10", "30")) {
		t.Errorf("priority filter = %+v", got)
	}
	if got := filters["code"]; !reflect.DeepEqual(got, domain.In("A", "B")) {
		t.Errorf("code filter = %+v", got)
	}
	if got := filters["created_at"]; !reflect.DeepEqual(got, domain.Between("2024-01-01", nil)) {
		t.Errorf("created_at filter = %+v", got)
	}
	if got := filters["score"]; !reflect.DeepEqual(got, domain.Between("1", "5")) {
		t.Errorf("score filter = %+v", got)
	}
	if _, ok := filters["region"]; ok {
		t.Error("empty bare value should not become a filter")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList([]string{"a,b", " c ", "", "d,,"})
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList = %v; want %v", got, want)
	}
	if SplitList(nil) != nil {
		t.Error("SplitList(nil) should be nil")
	}
}

func TestNewPageMeta(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		page     int
		perPage  int
		wantLast int
	}{
		{"empty result", 0, 1, 15, 1},
		{"exact division", 30, 1, 15, 2},
		{"remainder", 31, 2, 15, 3},
		{"single item", 1, 1, 15, 1},
		{"per page one", 7, 3, 1, 7},
		{"invalid per page uses default", 16, 1, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := NewPageMeta(tt.total, tt.page, tt.perPage)
			if meta.LastPage != tt.wantLast {
				t.Errorf("LastPage = %d; want %d", meta.LastPage, tt.wantLast)
			}
			if meta.Total != tt.total {
				t.Errorf("Total = %d; want %d", meta.Total, tt.total)
			}
		})
	}
}

func TestNewPage_NilItemsBecomesEmptySlice(t *testing.T) {
	page := NewPage[string](nil, 0, 1, 10)
	if page.Items == nil {
		t.Fatal("expected non-nil Items slice")
	}
	if len(page.Items) != 0 {
		t.Errorf("expected empty Items, got %d", len(page.Items))
	}
	if page.LastPage != 1 {
		t.Errorf("expected LastPage=1, got %d", page.LastPage)
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		wantOffset string
	}{
		{"first page", 1, 10, "LIMIT 10"},
		{"second page", 2, 20, "LIMIT 20 OFFSET 20"},
		{"large page number", 100, 50, "LIMIT 50 OFFSET 4950"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql := renderSQL(t, Paginate(tt.page, tt.perPage))
			if !strings.HasSuffix(sql, tt.wantOffset) {
				t.Errorf("sql %q does not end with %q", sql, tt.wantOffset)
			}
		})
	}
}

// TestNewPageMeta_Properties checks the paginator invariants over random inputs:
// LastPage == max(1, ceil(total/perPage)), and the window of a page never holds
// more than perPage rows nor starts past total unless the page is beyond LastPage.
func TestNewPageMeta_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("last page is max(1, ceil(total/perPage))", prop.ForAll(
		func(total int64, perPage int) bool {
			meta := NewPageMeta(total, 1, perPage)
			want := int(math.Max(1, math.Ceil(float64(total)/float64(perPage))))
			return meta.LastPage == want
		},
		gen.Int64Range(0, 1_000_000),
		gen.IntRange(1, 500),
	))

	properties.Property("page window holds at most perPage rows", prop.ForAll(
		func(total int64, perPage, page int) bool {
			meta := NewPageMeta(total, page, perPage)
			start := int64(page-1) * int64(perPage)
			rows := total - start
			if rows < 0 {
				rows = 0
			}
			if rows > int64(perPage) {
				rows = int64(perPage)
			}
			empty := rows == 0
			return rows <= int64(perPage) && empty == (total == 0 || page > meta.LastPage)
		},
		gen.Int64Range(0, 10_000),
		gen.IntRange(1, 100),
		gen.IntRange(1, 200),
	))

	properties.TestingRun(t)
}
